package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/smileynet/docshell/internal/mode"
	"github.com/smileynet/docshell/internal/viewer"
)

// StageStatus represents the current state of a lifecycle stage.
type StageStatus string

const (
	StatusPending StageStatus = "pending"
	StatusRunning StageStatus = "running"
	StatusPassed  StageStatus = "passed"
	StatusFailed  StageStatus = "failed"
	StatusSkipped StageStatus = "skipped"
)

// Stage names shown for every session run.
const (
	StageLoad  = "load"
	StageReady = "ready"
)

// ModeStage names the stage that tracks application of m.
func ModeStage(m mode.Mode) string {
	return "mode " + m.OrDefault().String()
}

// StageState tracks the display state of a single lifecycle stage.
type StageState struct {
	Name     string
	Status   StageStatus
	Detail   string
	Started  time.Time
	Duration time.Duration
}

// Model is the Bubble Tea model for session lifecycle display.
type Model struct {
	stages     []StageState
	spinner    spinner.Model
	done       bool
	aborting   bool
	err        error
	cancelFunc func()
	startTime  time.Time
	elapsed    time.Duration
}

// ModelOption configures a Model.
type ModelOption func(*Model)

// WithCancelFunc sets the function called on the first quit key press.
// A second press quits immediately.
func WithCancelFunc(fn func()) ModelOption {
	return func(m *Model) { m.cancelFunc = fn }
}

// EventMsg carries one session lifecycle event.
type EventMsg struct {
	Event viewer.Event
	At    time.Time
}

// DoneMsg signals that the session run completed.
type DoneMsg struct{}

// ErrorMsg signals that the session run failed.
type ErrorMsg struct {
	Err error
}

// NewModel creates a Model with the given stage names, all pending.
func NewModel(stageNames []string, opts ...ModelOption) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot

	stages := make([]StageState, len(stageNames))
	for i, name := range stageNames {
		stages[i] = StageState{Name: name, Status: StatusPending}
	}

	m := Model{
		stages:    stages,
		spinner:   s,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Init starts the spinner tick.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case EventMsg:
		m.apply(msg)
		return m, nil

	case DoneMsg:
		m.done = true
		m.elapsed = time.Since(m.startTime)
		m.skipPending()
		return m, tea.Quit

	case ErrorMsg:
		m.done = true
		m.err = msg.Err
		m.elapsed = time.Since(m.startTime)
		m.skipPending()
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.cancelFunc != nil && !m.aborting {
				m.aborting = true
				m.cancelFunc()
				return m, nil
			}
			m.done = true
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// apply maps a session event onto stage transitions.
func (m *Model) apply(msg EventMsg) {
	ev := msg.Event
	at := msg.At
	if at.IsZero() {
		at = time.Now()
	}
	switch ev.Kind {
	case viewer.EventLoadStarted:
		m.set(StageLoad, StatusRunning, ev.Source.DisplayName(), at)
	case viewer.EventLoaded:
		m.set(StageLoad, StatusPassed, ev.Source.DisplayName(), at)
		m.set(StageReady, StatusRunning, "", at)
	case viewer.EventLoadFailed:
		detail := ""
		if ev.Err != nil {
			detail = ev.Err.Error()
		}
		m.set(StageLoad, StatusFailed, detail, at)
	case viewer.EventReady:
		m.set(StageReady, StatusPassed, "", at)
	case viewer.EventModeQueued:
		m.set(ModeStage(ev.Mode), StatusRunning, "queued", at)
	case viewer.EventModeApplied:
		m.set(ModeStage(ev.Mode), StatusPassed, "", at)
	}
}

// set updates the named stage, appending it when unknown.
func (m *Model) set(name string, status StageStatus, detail string, at time.Time) {
	idx := -1
	for i := range m.stages {
		if m.stages[i].Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		m.stages = append(m.stages, StageState{Name: name, Status: StatusPending})
		idx = len(m.stages) - 1
	}
	st := &m.stages[idx]
	if status == StatusRunning && st.Started.IsZero() {
		st.Started = at
	}
	if (status == StatusPassed || status == StatusFailed) && !st.Started.IsZero() {
		st.Duration = at.Sub(st.Started)
	}
	st.Status = status
	if detail != "" {
		st.Detail = detail
	}
}

func (m *Model) skipPending() {
	for i := range m.stages {
		if m.stages[i].Status == StatusPending || m.stages[i].Status == StatusRunning {
			m.stages[i].Status = StatusSkipped
		}
	}
}

// Stages returns a copy of the current stage states.
func (m Model) Stages() []StageState {
	return append([]StageState(nil), m.stages...)
}

// View renders the stage list with status indicators.
func (m Model) View() string {
	var b strings.Builder

	for _, st := range m.stages {
		indicator := statusIndicator(st.Status, m.spinner.View())
		line := fmt.Sprintf("  %s %s", indicator, st.Name)
		if st.Detail != "" {
			line += "  " + st.Detail
		}
		if st.Duration > 0 {
			line += fmt.Sprintf(" %.1fs", st.Duration.Seconds())
		}
		b.WriteString(line + "\n")
	}

	switch {
	case m.aborting && !m.done:
		b.WriteString("\n  Stopping… (press q again to quit)\n")
	case m.done && m.err != nil:
		fmt.Fprintf(&b, "\n  Error: %s\n", m.err)
	case m.done:
		fmt.Fprintf(&b, "\n  Done in %.1fs\n", m.elapsed.Seconds())
	}

	return b.String()
}

// statusIndicator returns the Unicode indicator for a stage status.
func statusIndicator(status StageStatus, spinnerView string) string {
	switch status {
	case StatusPending:
		return "○"
	case StatusRunning:
		return spinnerView
	case StatusPassed:
		return "✓"
	case StatusFailed:
		return "✗"
	case StatusSkipped:
		return "–"
	default:
		return "?"
	}
}
