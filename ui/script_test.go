package ui

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/franksops/welllit/engine"
)

func TestRunScript(t *testing.T) {
	e := newSession(t, group("P1", "a1", "a2"), group("P2", "b1"))
	script := `
# operator session
complete
next
override on
next
status
fail
`
	var out strings.Builder
	require.NoError(t, RunScript(context.Background(), strings.NewReader(script), &out, e))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, []string{
		"completed a1 S-a1 -> D-a1 (DEST)",
		"error: group P1 has 1 remaining, set override to skip them",
		"override on",
		"Skipped 1 in P1, now on P2",
		"group P2 (2/2), 1 remaining",
		"current b1 S-b1 -> D-b1 (DEST)",
		"2/3 done: uncompleted 0 | started 1 | completed 1 | skipped 1 | failed 0",
		"failed b1 S-b1 -> D-b1 (DEST)",
		"Protocol complete",
	}, lines)

	r, _ := e.Record("b1")
	assert.Equal(t, engine.StatusFailed, r.Status)
}

func TestRunScript_UndoAndQuit(t *testing.T) {
	e := newSession(t, group("P1", "a1", "a2"))
	var out strings.Builder
	err := RunScript(context.Background(), strings.NewReader("c\nu\nq\nc\n"), &out, e)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "undone, current a1 S-a1 -> D-a1 (DEST)")
	assert.Equal(t, "a1", e.Current().ID)
	assert.Equal(t, engine.StatusStarted, e.Current().Status, "commands after quit are not run")
}

func TestRunScript_UnknownCommand(t *testing.T) {
	e := newSession(t, group("P1", "a1"))
	err := RunScript(context.Background(), strings.NewReader("complete\npipette\n"), &strings.Builder{}, e)
	assert.ErrorIs(t, err, ErrUnknownCommand)
	assert.ErrorContains(t, err, "line 2")

	err = RunScript(context.Background(), strings.NewReader("override maybe\n"), &strings.Builder{}, e)
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

func TestRunScript_CanceledContext(t *testing.T) {
	e := newSession(t, group("P1", "a1"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := RunScript(ctx, strings.NewReader("complete\n"), &strings.Builder{}, e)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, engine.StatusStarted, e.Current().Status)
}

func TestRunScript_StatusAfterGroupFinished(t *testing.T) {
	e := newSession(t, group("P1", "a1"), group("P2", "b1"))
	var out strings.Builder
	require.NoError(t, RunScript(context.Background(), strings.NewReader("complete\nstatus\n"), &out, e))
	assert.Contains(t, out.String(), "P1 finished, next to continue")
	assert.NotContains(t, out.String(), "current a1")
}
