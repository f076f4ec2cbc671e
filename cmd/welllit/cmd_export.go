package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export <run-id> [dest]",
	Short: "Write a run's audit log as CSV",
	Long: `Writes the audit log of a run to dest, a local path or s3://bucket/key.
Without dest the file is written to <output-dir>/<run-id>.csv.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: exportAudit,
}

func exportAudit(cmd *cobra.Command, args []string) error {
	id := args[0]
	dest := filepath.Join(cfg.OutputDir, id+".csv")
	if len(args) == 2 {
		dest = args[1]
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := exportRun(cmd.Context(), st, id, dest); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "audit for %s written to %s\n", id, dest)
	return nil
}
