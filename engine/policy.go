package engine

// Cursor is the position information handed to an AdvancePolicy.
type Cursor struct {
	// Index is the current position in the sequence.
	Index int

	// GroupStart and GroupEnd bound the active group, end exclusive.
	GroupStart int
	GroupEnd   int

	// Len is the length of the whole sequence.
	Len int
}

// AdvancePolicy chooses the next cursor position after a finalize.
// Returned indexes are clamped to the active group.
type AdvancePolicy interface {
	Next(c Cursor) int
}

// AdvanceFunc adapts a function to AdvancePolicy.
type AdvanceFunc func(c Cursor) int

func (f AdvanceFunc) Next(c Cursor) int { return f(c) }

// StepPolicy moves the cursor one record forward and stops on the last
// record of the active group.
type StepPolicy struct{}

func (StepPolicy) Next(c Cursor) int {
	if c.Index+1 >= c.GroupEnd {
		return c.GroupEnd - 1
	}
	return c.Index + 1
}
