package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/franksops/welllit/audit"
	"github.com/franksops/welllit/engine"
	"github.com/franksops/welllit/provider"
	"github.com/franksops/welllit/store"
	"github.com/franksops/welllit/ui"
)

var (
	runTUI    bool
	runFresh  bool
	runID     string
	runScript string
)

var runCmd = &cobra.Command{
	Use:   "run <protocol>",
	Short: "Run a protocol, resuming it if it was interrupted",
	Long: `Starts or resumes a run over a protocol (a local path or s3://bucket/key).

By default the run is named after the protocol file and its checksum, so
running the same file again resumes where it stopped. With --tui=false the
run reads line commands from stdin (or --script):

  complete | skip | fail | undo | next | override on|off | status | quit

When every record is finalized the audit log is exported to the output
directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runProtocol,
}

func init() {
	runCmd.Flags().BoolVar(&runTUI, "tui", true, "Use the interactive console (disable for headless operation)")
	runCmd.Flags().BoolVar(&runFresh, "fresh", false, "Start a new run instead of resuming")
	runCmd.Flags().StringVar(&runID, "run-id", "", "Run identifier (default: protocol name and checksum)")
	runCmd.Flags().StringVar(&runScript, "script", "", "Read headless commands from this file instead of stdin")
}

func runProtocol(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	p, err := loadProtocol(ctx, args[0])
	if err != nil {
		printDiagnostics(cmd.ErrOrStderr(), err)
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	id := runID
	if id == "" {
		id = p.defaultRunID()
		if runFresh {
			id += "-" + uuid.NewString()[:8]
		}
	}
	if runFresh {
		if _, err := st.GetCheckpoint(id); err == nil {
			return fmt.Errorf("run %s already exists, choose another --run-id", id)
		}
	}
	log := logger.With(zap.String("run_id", id), zap.String("protocol", p.Name))

	e, err := openRun(st, p, id, log)
	if err != nil {
		return err
	}

	tracker := engine.NewTracker(st, cfg.CheckpointConfig(), engine.RunInfo{
		ID:       id,
		Protocol: p.Name,
		Checksum: p.Checksum,
	}, logger)
	if err := tracker.Attach(e); err != nil {
		return fmt.Errorf("failed to save initial checkpoint: %w", err)
	}
	e.Subscribe(audit.LogSubscriber(log))

	fmt.Fprintf(cmd.ErrOrStderr(), "run %s: %d transfers in %d groups\n", id, e.Len(), len(e.Groups()))
	if runTUI {
		m := ui.NewModel(e, ui.WithTitle(p.Name), ui.WithPersistence(tracker.Err))
		if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("console failed: %w", err)
		}
	} else {
		in, closeIn, err := scriptInput()
		if err != nil {
			return err
		}
		defer closeIn()
		if err := ui.RunScript(ctx, in, cmd.OutOrStdout(), e); err != nil {
			return err
		}
	}

	if err := tracker.Flush(); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	if err := tracker.Err(); err != nil {
		log.Warn("run finished with unsaved progress", zap.Error(err))
	}

	if !e.ProtocolComplete() {
		fmt.Fprintf(cmd.ErrOrStderr(), "run %s saved, resume with: welllit run %s\n", id, args[0])
		return nil
	}
	log.Info("protocol complete")
	dest := filepath.Join(cfg.OutputDir, id+".csv")
	if err := exportRun(ctx, st, id, dest); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Protocol complete, audit written to %s\n", dest)
	return nil
}

// openRun resumes id when it has a checkpoint, otherwise starts p's fresh
// engine under id.
func openRun(st store.Store, p *protocol, id string, log *zap.Logger) (*engine.Engine, error) {
	e, cp, err := engine.Resume(st, id, p.Checksum)
	switch {
	case err == nil:
		log.Info("resuming run", zap.Time("saved_at", cp.SavedAt))
		return e, nil
	case errors.Is(err, store.ErrCheckpointNotFound):
		log.Info("starting run", zap.Int("rows", p.Rows))
		return p.Engine, nil
	case errors.Is(err, engine.ErrInvalidSnapshot):
		return nil, fmt.Errorf("cannot resume run %s (use --fresh to start over): %w", id, err)
	}
	return nil, fmt.Errorf("failed to load run %s: %w", id, err)
}

func scriptInput() (io.Reader, func(), error) {
	if runScript == "" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(runScript)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open script: %w", err)
	}
	return f, func() { f.Close() }, nil
}

// exportRun writes the audit log of id to dest, a local path or s3:// URI.
func exportRun(ctx context.Context, st store.Store, id, dest string) error {
	cp, err := st.GetCheckpoint(id)
	if err != nil {
		return fmt.Errorf("failed to load run %s: %w", id, err)
	}
	events, err := st.Events(id)
	if err != nil {
		return fmt.Errorf("failed to read audit log: %w", err)
	}

	p, pth, err := provider.Open(ctx, dest)
	if err != nil {
		return err
	}
	// Rendered in full first so a failed render never reaches the destination.
	var buf bytes.Buffer
	if err := audit.WriteCSV(&buf, audit.Preamble{
		Protocol: cp.Protocol,
		RunID:    id,
		Exported: time.Now(),
	}, events); err != nil {
		return err
	}

	w, err := p.OpenWrite(ctx, pth)
	if err != nil {
		return fmt.Errorf("failed to open export: %w", err)
	}
	if _, err := buf.WriteTo(w); err != nil {
		_ = provider.Abort(w)
		return fmt.Errorf("failed to write export: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish export: %w", err)
	}
	logger.Info("audit exported", zap.String("run_id", id), zap.String("dest", dest), zap.Int("events", len(events)))
	return nil
}
