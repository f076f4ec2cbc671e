// Package ui is the operator console for a run: an interactive bubbletea
// model and a line-oriented driver for headless use.
package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/franksops/welllit/engine"
)

// Model implements the tea.Model interface over a Session.
type Model struct {
	session  Session
	title    string
	persist  func() error
	spinner  spinner.Model
	progress progress.Model
	viewport viewport.Model

	width  int
	height int

	message string
	failed  bool

	// confirmSkip is set after NextGroup was refused; 'y' arms the
	// override and retries.
	confirmSkip bool

	// Styles
	titleStyle   lipgloss.Style
	infoStyle    lipgloss.Style
	currentStyle lipgloss.Style
	helpStyle    lipgloss.Style
	errorStyle   lipgloss.Style
	successStyle lipgloss.Style
	statusStyles map[engine.Status]lipgloss.Style
}

// Option configures a Model.
type Option func(*Model)

// WithTitle sets the protocol name shown in the header.
func WithTitle(title string) Option {
	return func(m *Model) { m.title = title }
}

// WithPersistence reports save failures from fn, typically Tracker.Err.
func WithPersistence(fn func() error) Option {
	return func(m *Model) { m.persist = fn }
}

func NewModel(s Session, opts ...Option) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	m := Model{
		session:      s,
		spinner:      sp,
		progress:     progress.New(progress.WithDefaultGradient()),
		titleStyle:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Padding(0, 1),
		infoStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		currentStyle: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229")),
		helpStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")).MarginTop(1),
		errorStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		successStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		statusStyles: map[engine.Status]lipgloss.Style{
			engine.StatusUncompleted: lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
			engine.StatusStarted:     lipgloss.NewStyle().Foreground(lipgloss.Color("229")),
			engine.StatusCompleted:   lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
			engine.StatusSkipped:     lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
			engine.StatusFailed:      lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		},
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = msg.Width - 14

		headerHeight := 7
		footerHeight := 3
		m.viewport = viewport.New(msg.Width, max(msg.Height-headerHeight-footerHeight, 3))

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if m.confirmSkip {
		m.confirmSkip = false
		if key == "y" {
			m.session.SetOverride(true)
			return m.nextGroup(), nil
		}
		m.setMessage("Group skip cancelled", false)
		if key != "q" && key != "ctrl+c" {
			return m, nil
		}
	}

	switch key {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "c":
		m.act("Completed", m.session.Complete)
	case "s":
		m.act("Skipped", m.session.Skip)
	case "f":
		m.act("Failed", m.session.Fail)
	case "u":
		if err := m.session.Undo(); err != nil {
			m.setMessage(err.Error(), true)
			break
		}
		m.setMessage("Undo: back to "+describe(m.session.Current()), false)
		m.checkPersist()
	case "n":
		m = m.nextGroup()
	case "o":
		on := !m.session.Override()
		m.session.SetOverride(on)
		m.setMessage(fmt.Sprintf("Override %s", onOff(on)), false)
	}
	return m, nil
}

// act runs an operation on the current record and reports the result.
func (m *Model) act(verb string, op func() error) {
	r := m.session.Current()
	if err := op(); err != nil {
		m.setMessage(err.Error(), true)
		return
	}
	m.setMessage(fmt.Sprintf("%s %s", verb, describe(r)), false)
	m.checkPersist()
}

func (m Model) nextGroup() Model {
	adv, err := m.session.NextGroup()
	var gie *engine.GroupIncompleteError
	switch {
	case errors.As(err, &gie):
		m.confirmSkip = true
		m.setMessage(fmt.Sprintf("%s has %d remaining. Press y to skip them.", gie.Group, gie.Remaining), true)
	case err != nil:
		m.setMessage(err.Error(), true)
	default:
		m.setMessage(advanceMessage(adv), false)
		m.checkPersist()
	}
	return m
}

func (m *Model) setMessage(msg string, failed bool) {
	m.message = msg
	m.failed = failed
}

func (m *Model) checkPersist() {
	if m.persist == nil {
		return
	}
	if err := m.persist(); err != nil {
		m.setMessage("Progress is not being saved: "+err.Error(), true)
	}
}

func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var sb strings.Builder
	obs := m.session
	c := obs.Classify()
	g := obs.CurrentGroup()

	// Header
	header := fmt.Sprintf("%s WellLit %s", m.spinner.View(), m.titleStyle.Render(m.title))
	sb.WriteString(header + "\n")

	gi, gn := groupPosition(obs)
	info := fmt.Sprintf("Group %s (%d/%d) | %d remaining | override %s",
		g.Name, gi, gn, obs.Remaining(g.Name), onOff(obs.Override()))
	sb.WriteString(m.infoStyle.Render(info) + "\n")

	var percent float64
	if n := obs.Len(); n > 0 {
		percent = float64(terminalCount(c)) / float64(n)
	}
	sb.WriteString(m.progress.ViewAs(percent) + "\n")
	sb.WriteString(m.infoStyle.Render(countsLine(c)) + "\n\n")

	cur := obs.Current()
	switch {
	case obs.ProtocolComplete():
		sb.WriteString(m.successStyle.Render("Protocol complete") + "\n")
	case cur.Terminal():
		sb.WriteString(m.currentStyle.Render(fmt.Sprintf("%s finished. Press n for the next group.", g.Name)) + "\n")
	default:
		sb.WriteString("Current: " + m.currentStyle.Render(describe(cur)) + "\n")
	}

	// Current group
	var list strings.Builder
	for _, id := range obs.GroupRecords(g.Name) {
		r, _ := obs.Record(id)
		marker := "  "
		if id == cur.ID {
			marker = "> "
		}
		status := m.statusStyles[r.Status].Render(fmt.Sprintf("%-11s", r.Status))
		list.WriteString(fmt.Sprintf("%s%s %s\n", marker, status, describe(r)))
	}
	m.viewport.SetContent(list.String())
	sb.WriteString(m.viewport.View())

	// Footer
	if m.message != "" {
		style := m.infoStyle
		if m.failed {
			style = m.errorStyle
		}
		sb.WriteString("\n" + style.Render(m.message))
	}
	help := m.helpStyle.Render("c: complete • s: skip • f: fail • u: undo • n: next group • o: override • q: quit")
	sb.WriteString("\n" + help)

	return sb.String()
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
