package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/franksops/welllit/engine"
)

// ErrUnknownCommand is returned for script lines RunScript cannot parse.
var ErrUnknownCommand = errors.New("unknown command")

// RunScript drives a session from line commands, one per line:
//
//	complete | skip | fail | undo | next | override on|off | status | quit
//
// Operation errors are reported on out and do not stop the script. Blank
// lines and lines starting with '#' are ignored.
func RunScript(ctx context.Context, in io.Reader, out io.Writer, s Session) error {
	sc := bufio.NewScanner(in)
	announced := s.ProtocolComplete()
	for line := 1; sc.Scan(); line++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		quit, err := runCommand(out, s, fields)
		if errors.Is(err, ErrUnknownCommand) {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
		if quit {
			return nil
		}
		if !announced && s.ProtocolComplete() {
			announced = true
			fmt.Fprintln(out, "Protocol complete")
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("failed to read commands: %w", err)
	}
	return nil
}

func runCommand(out io.Writer, s Session, fields []string) (bool, error) {
	finalize := func(verb string, op func() error) error {
		r := s.Current()
		if err := op(); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %s %s\n", verb, r.ID, describe(r))
		return nil
	}

	switch cmd := strings.ToLower(fields[0]); cmd {
	case "complete", "c":
		return false, finalize("completed", s.Complete)
	case "skip", "s":
		return false, finalize("skipped", s.Skip)
	case "fail", "f":
		return false, finalize("failed", s.Fail)
	case "undo", "u":
		if err := s.Undo(); err != nil {
			return false, err
		}
		r := s.Current()
		fmt.Fprintf(out, "undone, current %s %s\n", r.ID, describe(r))
		return false, nil
	case "next", "n":
		adv, err := s.NextGroup()
		if err != nil {
			return false, err
		}
		fmt.Fprintln(out, advanceMessage(adv))
		return false, nil
	case "override":
		if len(fields) != 2 || (fields[1] != "on" && fields[1] != "off") {
			return false, fmt.Errorf("%w: override takes on or off", ErrUnknownCommand)
		}
		s.SetOverride(fields[1] == "on")
		fmt.Fprintf(out, "override %s\n", fields[1])
		return false, nil
	case "status":
		WriteStatus(out, s)
		return false, nil
	case "quit", "q":
		return true, nil
	default:
		return false, fmt.Errorf("%w %q", ErrUnknownCommand, cmd)
	}
}

// WriteStatus prints the current group, record and status counts.
func WriteStatus(out io.Writer, obs Observer) {
	c := obs.Classify()
	g := obs.CurrentGroup()
	gi, gn := groupPosition(obs)
	fmt.Fprintf(out, "group %s (%d/%d), %d remaining\n", g.Name, gi, gn, obs.Remaining(g.Name))
	if r := obs.Current(); r.Status == engine.StatusStarted {
		fmt.Fprintf(out, "current %s %s\n", r.ID, describe(r))
	} else if !obs.ProtocolComplete() {
		fmt.Fprintf(out, "%s finished, next to continue\n", g.Name)
	}
	fmt.Fprintf(out, "%d/%d done: %s\n", terminalCount(c), obs.Len(), countsLine(c))
}
