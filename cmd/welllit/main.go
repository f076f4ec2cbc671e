package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/franksops/welllit/config"
	"github.com/franksops/welllit/store"
)

var (
	// Global flags
	configPath         string
	verbose            bool
	stateDir           string
	outputDir          string
	defaultDestination string

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "welllit",
	Short: "Step an operator through a grouped transfer protocol",
	Long: `welllit walks an operator through a CSV transfer protocol one record at a
time. Every action is written to an append-only audit log and the run is
checkpointed so an interrupted session can be resumed.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("state-dir") {
			cfg.StateDir = stateDir
		}
		if cmd.Flags().Changed("output-dir") {
			cfg.OutputDir = outputDir
		}
		if cmd.Flags().Changed("default-destination") {
			cfg.DefaultDestination = defaultDestination
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		// The console owns the terminal, so logs go to a file while it runs.
		var paths []string
		if cmd == runCmd && runTUI {
			if err := os.MkdirAll(cfg.StateDir, 0755); err != nil {
				return fmt.Errorf("failed to create state directory: %w", err)
			}
			paths = []string{filepath.Join(cfg.StateDir, "welllit.log")}
		}
		logger, err = newLogger(cfg.Log, paths)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultFile, "Config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&stateDir, "state-dir", "", "Directory for checkpoints and the audit log")
	rootCmd.PersistentFlags().StringVar(&outputDir, "output-dir", "", "Directory for audit exports")
	rootCmd.PersistentFlags().StringVar(&defaultDestination, "default-destination", "", "Destination container for rows that name none")

	rootCmd.AddCommand(validateCmd, runCmd, statusCmd, exportCmd)
}

func newLogger(lc config.Log, paths []string) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if lc.Development {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(lc.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	if len(paths) > 0 {
		zc.OutputPaths = paths
		zc.ErrorOutputPaths = paths
	}

	l, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return l, nil
}

func openStore() (*store.BoltStore, error) {
	if err := os.MkdirAll(cfg.StateDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return store.NewBoltStore(filepath.Join(cfg.StateDir, "state.db"))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
