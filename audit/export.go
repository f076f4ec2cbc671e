// Package audit renders a run's event log for operators: a CSV export and a
// structured log stream.
package audit

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/franksops/welllit/engine"
	"github.com/franksops/welllit/store"
)

// Header is the column row of an export.
var Header = []string{"timestamp", "record_id", "group", "source", "destination", "action", "previous", "new"}

// Preamble is written as '%' comment lines before the header.
type Preamble struct {
	Protocol string
	RunID    string
	Exported time.Time
}

// WriteCSV writes the preamble, the header and one row per event in log order.
func WriteCSV(w io.Writer, p Preamble, events []store.EventRecord) error {
	if p.Protocol != "" {
		if _, err := fmt.Fprintf(w, "%%Protocol: %s\n", p.Protocol); err != nil {
			return fmt.Errorf("failed to write preamble: %w", err)
		}
	}
	if p.RunID != "" {
		if _, err := fmt.Fprintf(w, "%%Run: %s\n", p.RunID); err != nil {
			return fmt.Errorf("failed to write preamble: %w", err)
		}
	}
	if !p.Exported.IsZero() {
		if _, err := fmt.Fprintf(w, "%%Exported: %s\n", p.Exported.UTC().Format(engine.TimestampLayout)); err != nil {
			return fmt.Errorf("failed to write preamble: %w", err)
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, ev := range events {
		row := []string{ev.Timestamp, ev.RecordID, ev.Group, ev.Source, ev.Destination, ev.Action, ev.Previous, ev.New}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write event %d: %w", ev.Seq, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
