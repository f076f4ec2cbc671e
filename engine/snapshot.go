package engine

import (
	"fmt"
	"slices"
)

// Snapshot is the persisted shape of an Engine, used to save and resume a run.
// The override flag is transient and never persisted.
type Snapshot struct {
	Records     map[string]Record   `json:"records"`
	Sequence    []string            `json:"sequence"`
	Groups      map[string][]string `json:"groups"`
	CursorIndex int                 `json:"cursor_index"`
	CanUndo     bool                `json:"can_undo"`
	UndoIndex   int                 `json:"undo_index"`
}

// Snapshot returns a deep copy of the engine state.
func (e *Engine) Snapshot() Snapshot {
	s := Snapshot{
		Records:     make(map[string]Record, len(e.records)),
		Sequence:    e.Sequence(),
		Groups:      make(map[string][]string, len(e.groups)),
		CursorIndex: e.current,
		CanUndo:     e.canUndo,
	}
	if e.canUndo {
		s.UndoIndex = e.undoIndex
	}
	for id, r := range e.records {
		s.Records[id] = r.clone()
	}
	for _, g := range e.groups {
		s.Groups[g.Name] = e.GroupRecords(g.Name)
	}
	return s
}

// Restore rebuilds an engine from a snapshot. Every invariant is checked;
// group order is taken from the sequence.
func Restore(s Snapshot, opts ...Option) (*Engine, error) {
	if len(s.Sequence) == 0 {
		return nil, fmt.Errorf("%w: empty sequence", ErrInvalidSnapshot)
	}
	if len(s.Records) != len(s.Sequence) {
		return nil, fmt.Errorf("%w: %d records for %d sequence entries", ErrInvalidSnapshot, len(s.Records), len(s.Sequence))
	}
	if s.CursorIndex < 0 || s.CursorIndex >= len(s.Sequence) {
		return nil, fmt.Errorf("%w: cursor %d out of range", ErrInvalidSnapshot, s.CursorIndex)
	}

	e := newEngine(opts)
	for i, id := range s.Sequence {
		rec, ok := s.Records[id]
		if !ok || rec.ID != id {
			return nil, fmt.Errorf("%w: sequence entry %q has no record", ErrInvalidSnapshot, id)
		}
		if _, dup := e.records[id]; dup {
			return nil, fmt.Errorf("%w: duplicate sequence entry %q", ErrInvalidSnapshot, id)
		}
		if !rec.consistent() {
			return nil, fmt.Errorf("%w: record %q has status %s and timestamp %v", ErrInvalidSnapshot, id, rec.Status, rec.Timestamp)
		}
		if rec.Status == StatusStarted && i != s.CursorIndex {
			return nil, fmt.Errorf("%w: record %q started away from the cursor", ErrInvalidSnapshot, id)
		}

		if n := len(e.groups); n == 0 || e.groups[n-1].Name != rec.Group {
			if _, seen := e.groupIdx[rec.Group]; seen {
				return nil, fmt.Errorf("%w: group %q is not contiguous", ErrInvalidSnapshot, rec.Group)
			}
			e.groupIdx[rec.Group] = n
			e.groups = append(e.groups, Group{Name: rec.Group, Start: i})
		}
		e.groups[len(e.groups)-1].End = i + 1

		r := rec.clone()
		e.records[id] = &r
		e.sequence = append(e.sequence, id)
	}

	if len(s.Groups) != len(e.groups) {
		return nil, fmt.Errorf("%w: %d groups listed, %d in sequence", ErrInvalidSnapshot, len(s.Groups), len(e.groups))
	}
	for _, g := range e.groups {
		if !slices.Equal(s.Groups[g.Name], e.sequence[g.Start:g.End]) {
			return nil, fmt.Errorf("%w: membership of group %q does not match the sequence", ErrInvalidSnapshot, g.Name)
		}
	}

	for _, g := range e.groups[:e.groupAt(s.CursorIndex)] {
		if n := len(e.pending(g)); n > 0 {
			return nil, fmt.Errorf("%w: cursor is past group %q with %d unfinished records", ErrInvalidSnapshot, g.Name, n)
		}
	}

	if s.CanUndo {
		if s.UndoIndex < 0 || s.UndoIndex >= len(s.Sequence) || !e.records[s.Sequence[s.UndoIndex]].Terminal() {
			return nil, fmt.Errorf("%w: undo target %d is not finalized", ErrInvalidSnapshot, s.UndoIndex)
		}
		e.canUndo = true
		e.undoIndex = s.UndoIndex
	}

	e.setCursor(s.CursorIndex)
	e.start()
	return e, nil
}
