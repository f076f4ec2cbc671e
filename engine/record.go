package engine

import (
	"fmt"
	"time"
)

// TimestampLayout is the audit timestamp format, UTC with millisecond precision.
const TimestampLayout = "2006-01-02 15:04:05.000"

// Record represents a single locator-to-locator transfer and its outcome.
type Record struct {
	// ID is the opaque, immutable identifier assigned at build time.
	ID string `json:"id"`

	// Group is the name of the batch the record belongs to.
	Group string `json:"group"`

	// Source is the locator material is taken from.
	Source string `json:"source"`

	// Destination is the locator material is moved to.
	Destination string `json:"destination"`

	// DestinationGroup labels the container holding Destination.
	DestinationGroup string `json:"destination_group,omitempty"`

	Status Status `json:"status"`

	// Timestamp is set exactly when Status is terminal.
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// Terminal reports whether the record has been finalized.
func (r *Record) Terminal() bool {
	return r.Timestamp != nil
}

// consistent reports whether the timestamp and status agree.
func (r *Record) consistent() bool {
	return r.Status.IsKnown() && (r.Timestamp != nil) == r.Status.IsTerminal()
}

// transition moves the record to status to. Terminal statuses are stamped
// with at in UTC, truncated to the millisecond; other statuses carry no
// timestamp. Moves not allowed by CanTransition are refused.
func (r *Record) transition(to Status, at time.Time) error {
	if !CanTransition(r.Status, to) {
		return &StateError{Op: "transition", RecordID: r.ID, Reason: fmt.Sprintf("%s to %s is not allowed", r.Status, to)}
	}
	r.Status = to
	if to.IsTerminal() {
		ts := at.UTC().Truncate(time.Millisecond)
		r.Timestamp = &ts
	} else {
		r.Timestamp = nil
	}
	return nil
}

// clear puts an incoming record in its initial state, whatever it held.
func (r *Record) clear() {
	r.Status = StatusUncompleted
	r.Timestamp = nil
}

// clone returns a copy that shares no memory with r.
func (r *Record) clone() Record {
	c := *r
	if r.Timestamp != nil {
		ts := *r.Timestamp
		c.Timestamp = &ts
	}
	return c
}
