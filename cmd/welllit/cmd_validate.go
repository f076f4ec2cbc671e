package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var validateCmd = &cobra.Command{
	Use:   "validate <protocol>",
	Short: "Check a protocol without starting a run",
	Long: `Reads a protocol (a local path or s3://bucket/key) and reports every
missing field and duplicate source or destination it contains.`,
	Args: cobra.ExactArgs(1),
	RunE: validateProtocol,
}

func validateProtocol(cmd *cobra.Command, args []string) error {
	p, err := loadProtocol(cmd.Context(), args[0])
	if err != nil {
		printDiagnostics(cmd.ErrOrStderr(), err)
		return err
	}

	groups := p.Engine.Groups()
	logger.Debug("protocol validated",
		zap.String("protocol", p.Name),
		zap.Int("records", p.Engine.Len()),
		zap.Int("groups", len(groups)),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d transfers in %d groups (%d bytes, checksum %016x)\n",
		p.Name, p.Engine.Len(), len(groups), p.Size, p.Checksum)
	for _, g := range groups {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s: %d\n", g.Name, g.Len())
	}
	return nil
}
