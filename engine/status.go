package engine

// Status is the lifecycle state of a single transfer record.
type Status string

const (
	StatusUncompleted Status = "uncompleted"
	StatusStarted     Status = "started"
	StatusCompleted   Status = "completed"
	StatusSkipped     Status = "skipped"
	StatusFailed      Status = "failed"
)

// Statuses lists every status in display order.
var Statuses = []Status{
	StatusUncompleted,
	StatusStarted,
	StatusCompleted,
	StatusSkipped,
	StatusFailed,
}

// validTransitions defines the legal status transitions.
// Terminal statuses only leave through undo, which resets them to uncompleted.
var validTransitions = map[Status][]Status{
	StatusUncompleted: {StatusStarted, StatusSkipped}, // skipped: group override
	StatusStarted:     {StatusCompleted, StatusSkipped, StatusFailed, StatusUncompleted},
	StatusCompleted:   {StatusUncompleted},
	StatusSkipped:     {StatusUncompleted},
	StatusFailed:      {StatusUncompleted},
}

// CanTransition reports whether a record may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, v := range validTransitions[from] {
		if v == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status carries a timestamp.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusSkipped || s == StatusFailed
}

// IsKnown reports whether s is one of the defined statuses.
func (s Status) IsKnown() bool {
	_, ok := validTransitions[s]
	return ok
}

func (s Status) String() string { return string(s) }
