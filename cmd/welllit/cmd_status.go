package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/franksops/welllit/engine"
	"github.com/franksops/welllit/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status [run-id]",
	Short: "Show the saved state of a run, or list runs",
	Args:  cobra.MaximumNArgs(1),
	RunE:  showStatus,
}

func showStatus(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		runs, err := st.Runs()
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(out, "no runs")
		}
		for _, id := range runs {
			fmt.Fprintln(out, id)
		}
		return nil
	}

	cp, err := st.GetCheckpoint(args[0])
	if err != nil {
		return fmt.Errorf("failed to load run %s: %w", args[0], err)
	}
	var snap engine.Snapshot
	if err := json.Unmarshal(cp.Snapshot, &snap); err != nil {
		return fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	e, err := engine.Restore(snap)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "run %s\nprotocol %s (checksum %016x)\nsaved %s\n",
		cp.RunID, cp.Protocol, cp.Checksum, cp.SavedAt.UTC().Format(engine.TimestampLayout))
	ui.WriteStatus(out, e)
	if e.ProtocolComplete() {
		fmt.Fprintln(out, "Protocol complete")
	}
	return nil
}
