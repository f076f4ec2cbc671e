package engine

import "time"

// Action names the operator action that produced an event.
type Action string

const (
	ActionComplete  Action = "complete"
	ActionSkip      Action = "skip"
	ActionFail      Action = "fail"
	ActionUndo      Action = "undo"
	ActionForceSkip Action = "force_skip"
)

// Event is one append-only audit entry. Events are published after the
// mutation that produced them has fully committed.
type Event struct {
	RecordID  string    `json:"record_id"`
	Action    Action    `json:"action"`
	Previous  Status    `json:"previous"`
	New       Status    `json:"new"`
	Timestamp time.Time `json:"timestamp"`
}

// TimestampUTC formats the event time as YYYY-MM-DD HH:MM:SS.mmm.
func (e Event) TimestampUTC() string {
	return e.Timestamp.UTC().Format(TimestampLayout)
}

// EventHandler receives committed events.
type EventHandler func(Event)
