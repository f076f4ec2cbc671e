package engine

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_RoundTripThroughJSON(t *testing.T) {
	e, _ := newTestEngine(t, group("A", "a1", "a2"), group("B", "b1", "b2"))
	require.NoError(t, e.Complete())
	require.NoError(t, e.Fail())
	_, err := e.NextGroup()
	require.NoError(t, err)
	require.NoError(t, e.Skip())

	data, err := json.Marshal(e.Snapshot())
	require.NoError(t, err)

	var snap Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Equal(t, []string{"a1", "a2"}, snap.Groups["A"])
	assert.Equal(t, 3, snap.CursorIndex)
	assert.True(t, snap.CanUndo)
	assert.Equal(t, 2, snap.UndoIndex)

	restored, err := Restore(snap, WithClock(tickingClock()))
	require.NoError(t, err)
	checkInvariants(t, restored)
	assert.Equal(t, e.Snapshot(), restored.Snapshot())
	assert.Equal(t, e.Classify(), restored.Classify())
	assert.Equal(t, "B", restored.CurrentGroup().Name)

	require.NoError(t, restored.Undo())
	assert.Equal(t, "b1", restored.Current().ID)
	checkInvariants(t, restored)
}

func TestSnapshot_IsIndependentOfEngine(t *testing.T) {
	e, _ := newTestEngine(t, group("A", "a1", "a2"))
	snap := e.Snapshot()
	require.NoError(t, e.Complete())

	assert.Equal(t, StatusStarted, snap.Records["a1"].Status)
	assert.Nil(t, snap.Records["a1"].Timestamp)
}

func TestRestore_RejectsInconsistentSnapshots(t *testing.T) {
	e, _ := newTestEngine(t, group("A", "a1", "a2"), group("B", "b1"))
	require.NoError(t, e.Complete())
	ts := baseTime

	tests := []struct {
		name   string
		mutate func(s *Snapshot)
	}{
		{"empty sequence", func(s *Snapshot) { s.Sequence = nil }},
		{"cursor out of range", func(s *Snapshot) { s.CursorIndex = 3 }},
		{"negative cursor", func(s *Snapshot) { s.CursorIndex = -1 }},
		{"unknown id", func(s *Snapshot) { s.Sequence[2] = "zz" }},
		{"timestamp without terminal status", func(s *Snapshot) {
			r := s.Records["a2"]
			r.Timestamp = &ts
			s.Records["a2"] = r
		}},
		{"terminal status without timestamp", func(s *Snapshot) {
			r := s.Records["a1"]
			r.Timestamp = nil
			s.Records["a1"] = r
		}},
		{"started away from cursor", func(s *Snapshot) {
			r := s.Records["b1"]
			r.Status = StatusStarted
			s.Records["b1"] = r
		}},
		{"non contiguous group", func(s *Snapshot) {
			s.Sequence = []string{"a1", "b1", "a2"}
			s.CursorIndex = 2
		}},
		{"membership mismatch", func(s *Snapshot) { s.Groups["A"] = []string{"a1"} }},
		{"undo target not finalized", func(s *Snapshot) { s.UndoIndex = 2 }},
		{"cursor past unfinished group", func(s *Snapshot) {
			r := s.Records["a2"]
			r.Status = StatusUncompleted
			s.Records["a2"] = r
			s.CursorIndex = 2
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := e.Snapshot()
			tt.mutate(&snap)
			restored, err := Restore(snap)
			assert.ErrorIs(t, err, ErrInvalidSnapshot)
			assert.Nil(t, restored)
		})
	}
}

func TestRestore_ArmsUncompletedCursorRecord(t *testing.T) {
	e, _ := newTestEngine(t, group("A", "a1", "a2"))
	snap := e.Snapshot()
	r := snap.Records["a1"]
	r.Status = StatusUncompleted
	snap.Records["a1"] = r

	restored, err := Restore(snap, WithClock(func() time.Time { return baseTime }))
	require.NoError(t, err)
	assert.Equal(t, StatusStarted, restored.Current().Status)
}
