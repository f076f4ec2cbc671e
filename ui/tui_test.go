package ui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/franksops/welllit/engine"
)

func newSession(t *testing.T, groups ...engine.GroupDefinition) *engine.Engine {
	t.Helper()
	e, err := engine.New(engine.Definition{Groups: groups})
	require.NoError(t, err)
	return e
}

func group(name string, ids ...string) engine.GroupDefinition {
	g := engine.GroupDefinition{Name: name}
	for _, id := range ids {
		g.Records = append(g.Records, engine.Record{
			ID: id, Group: name, Source: "S-" + id, Destination: "D-" + id, DestinationGroup: "DEST",
		})
	}
	return g
}

func key(k string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(key(k))
		m = next.(Model)
	}
	return m
}

func sized(m Model) Model {
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(Model)
}

func TestModel_InitializingUntilSized(t *testing.T) {
	m := NewModel(newSession(t, group("P1", "a1")))
	assert.Equal(t, "Initializing...", m.View())
	assert.NotNil(t, m.Init())

	view := sized(m).View()
	assert.Contains(t, view, "Group P1 (1/1)")
	assert.Contains(t, view, "Current: S-a1 -> D-a1 (DEST)")
}

func TestModel_KeysDriveSession(t *testing.T) {
	e := newSession(t, group("P1", "a1", "a2", "a3"))
	m := sized(NewModel(e, WithTitle("plate1.csv")))

	m = press(t, m, "c")
	assert.Equal(t, "a2", e.Current().ID)
	assert.Equal(t, "Completed S-a1 -> D-a1 (DEST)", m.message)

	m = press(t, m, "s", "f")
	r, _ := e.Record("a2")
	assert.Equal(t, engine.StatusSkipped, r.Status)
	assert.Equal(t, "a3", e.Current().ID)
	assert.Equal(t, engine.StatusFailed, e.Current().Status, "cursor stays on the last record of the group")

	m = press(t, m, "f")
	assert.True(t, m.failed, "a3 is already failed")

	m = press(t, m, "u")
	assert.Equal(t, "a3", e.Current().ID)
	assert.Equal(t, engine.StatusStarted, e.Current().Status)
	assert.False(t, m.failed)
	assert.Equal(t, "Undo: back to S-a3 -> D-a3 (DEST)", m.message)

	view := m.View()
	assert.Contains(t, view, "plate1.csv")
	assert.Contains(t, view, "completed 1")
	assert.Contains(t, view, "> ")
}

func TestModel_NextGroupAsksBeforeSkipping(t *testing.T) {
	e := newSession(t, group("P1", "a1", "a2"), group("P2", "b1"))
	m := sized(NewModel(e))

	m = press(t, m, "c", "n")
	assert.True(t, m.confirmSkip)
	assert.Contains(t, m.message, "P1 has 1 remaining")
	assert.Equal(t, "a2", e.Current().ID)

	m = press(t, m, "y")
	assert.False(t, m.confirmSkip)
	assert.Equal(t, "b1", e.Current().ID)
	assert.Equal(t, "Skipped 1 in P1, now on P2", m.message)
	r, _ := e.Record("a2")
	assert.Equal(t, engine.StatusSkipped, r.Status)
	assert.False(t, e.Override())
}

func TestModel_NextGroupSkipCancelled(t *testing.T) {
	e := newSession(t, group("P1", "a1", "a2"), group("P2", "b1"))
	m := sized(NewModel(e))

	m = press(t, m, "n", "x")
	assert.False(t, m.confirmSkip)
	assert.Equal(t, "Group skip cancelled", m.message)
	assert.Equal(t, "a1", e.Current().ID)
	assert.False(t, e.Override())
}

func TestModel_OverrideToggle(t *testing.T) {
	e := newSession(t, group("P1", "a1", "a2"), group("P2", "b1"))
	m := sized(NewModel(e))

	m = press(t, m, "o")
	assert.True(t, e.Override())
	assert.Contains(t, m.View(), "override on")

	m = press(t, m, "n")
	assert.Equal(t, "b1", e.Current().ID)
	assert.Equal(t, "Skipped 2 in P1, now on P2", m.message)
}

func TestModel_ProtocolComplete(t *testing.T) {
	e := newSession(t, group("P1", "a1"))
	m := sized(NewModel(e))

	m = press(t, m, "c")
	assert.True(t, e.ProtocolComplete())
	assert.Contains(t, m.View(), "Protocol complete")

	m = press(t, m, "n")
	assert.Equal(t, "Protocol complete", m.message)
}

func TestModel_ReportsPersistenceFailure(t *testing.T) {
	e := newSession(t, group("P1", "a1", "a2"))
	m := sized(NewModel(e, WithPersistence(func() error { return errors.New("disk full") })))

	m = press(t, m, "c")
	assert.True(t, m.failed)
	assert.Equal(t, "Progress is not being saved: disk full", m.message)
}

func TestModel_Quit(t *testing.T) {
	m := sized(NewModel(newSession(t, group("P1", "a1"))))
	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModel_PromptsNextGroupWhenGroupFinished(t *testing.T) {
	e := newSession(t, group("P1", "a1"), group("P2", "b1"))
	m := sized(NewModel(e))

	m = press(t, m, "c")
	assert.Equal(t, engine.StatusCompleted, e.Current().Status)
	view := m.View()
	assert.Contains(t, view, "P1 finished. Press n for the next group.")
	assert.NotContains(t, view, "Current:")

	m = press(t, m, "n")
	assert.Contains(t, m.View(), "Current: S-b1 -> D-b1 (DEST)")
}
