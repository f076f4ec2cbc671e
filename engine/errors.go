package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrState is matched by every rejected action. The engine is unchanged.
	ErrState = errors.New("invalid engine state")

	// ErrGroupIncomplete is returned by NextGroup when the current group still
	// has non-terminal records and override is not set.
	ErrGroupIncomplete = errors.New("group incomplete")

	// ErrOutOfBounds is returned when the cursor cannot move any further.
	ErrOutOfBounds = errors.New("cursor at end of sequence")

	// ErrInvalidDefinition is returned when a definition cannot form a sequence.
	ErrInvalidDefinition = errors.New("invalid sequence definition")

	// ErrInvalidSnapshot is returned when a snapshot violates an engine invariant.
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)

// StateError describes an action rejected by the consistency gate.
type StateError struct {
	Op       string
	RecordID string
	Reason   string
}

func (e *StateError) Error() string {
	if e.RecordID == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.RecordID, e.Reason)
}

func (e *StateError) Is(target error) bool {
	return target == ErrState
}

// GroupIncompleteError reports how many records block a group advance.
type GroupIncompleteError struct {
	Group     string
	Remaining int
}

func (e *GroupIncompleteError) Error() string {
	return fmt.Sprintf("group %s has %d remaining, set override to skip them", e.Group, e.Remaining)
}

func (e *GroupIncompleteError) Is(target error) bool {
	return target == ErrState || target == ErrGroupIncomplete
}
