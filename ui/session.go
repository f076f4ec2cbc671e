package ui

import (
	"fmt"
	"strings"

	"github.com/franksops/welllit/engine"
)

// Observer is the read-only view of a run the console renders.
type Observer interface {
	Classify() engine.Classification
	Record(id string) (engine.Record, bool)
	Current() engine.Record
	CurrentGroup() engine.Group
	Groups() []engine.Group
	GroupRecords(name string) []string
	Remaining(name string) int
	ProtocolComplete() bool
	Override() bool
	CanUndo() bool
	Len() int
}

// Controller carries operator actions to the engine.
type Controller interface {
	Complete() error
	Skip() error
	Fail() error
	Undo() error
	NextGroup() (engine.GroupAdvance, error)
	SetOverride(on bool)
}

// Session is satisfied by *engine.Engine.
type Session interface {
	Observer
	Controller
}

var _ Session = (*engine.Engine)(nil)

// terminalCount is the number of completed, skipped and failed records.
func terminalCount(c engine.Classification) int {
	return c.Count(engine.StatusCompleted) + c.Count(engine.StatusSkipped) + c.Count(engine.StatusFailed)
}

func groupPosition(obs Observer) (int, int) {
	groups := obs.Groups()
	name := obs.CurrentGroup().Name
	for i, g := range groups {
		if g.Name == name {
			return i + 1, len(groups)
		}
	}
	return 0, len(groups)
}

// countsLine renders the classification as "completed 3 | skipped 1 | ...".
func countsLine(c engine.Classification) string {
	parts := make([]string, 0, len(engine.Statuses))
	for _, s := range engine.Statuses {
		parts = append(parts, fmt.Sprintf("%s %d", s, c.Count(s)))
	}
	return strings.Join(parts, " | ")
}

func describe(r engine.Record) string {
	return fmt.Sprintf("%s -> %s (%s)", r.Source, r.Destination, r.DestinationGroup)
}

// advanceMessage reports a successful NextGroup.
func advanceMessage(adv engine.GroupAdvance) string {
	switch {
	case adv.Moved() && len(adv.ForceSkipped) > 0:
		return fmt.Sprintf("Skipped %d in %s, now on %s", len(adv.ForceSkipped), adv.From, adv.To)
	case adv.Moved():
		return fmt.Sprintf("Now on %s", adv.To)
	case adv.Done:
		return "Protocol complete"
	}
	return fmt.Sprintf("%s is the last group", adv.From)
}
