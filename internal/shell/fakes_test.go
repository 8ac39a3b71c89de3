package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/smileynet/docshell/internal/mode"
	"github.com/smileynet/docshell/internal/viewer"
)

// fakeDoc is an engine instance with pages, key handling and export.
type fakeDoc struct {
	name  string
	pages int

	mu     sync.Mutex
	view   mode.ViewState
	page   int
	closed bool
}

func (d *fakeDoc) SetViewState(patch func(mode.ViewState) mode.ViewState) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.view = patch(d.view)
	return nil
}

func (d *fakeDoc) SetToolbarItems([]mode.ToolbarItem) error { return nil }
func (d *fakeDoc) IsDocumentReady() bool { return true }
func (d *fakeDoc) Name() string { return d.name }
func (d *fakeDoc) Summary() string { return "summary of " + d.name }

func (d *fakeDoc) Render(width, height int) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return fmt.Sprintf("rendered %s page %d sidebar=%s", d.name, d.page+1, d.view.Sidebar)
}

func (d *fakeDoc) HandleKey(key string) bool {
	switch key {
	case "n":
		d.SetPage(d.Page() + 1)
		return true
	case "p":
		d.SetPage(d.Page() - 1)
		return true
	}
	return false
}

func (d *fakeDoc) Page() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.page
}

func (d *fakeDoc) SetPage(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.page = max(0, min(n, d.pages-1))
}

func (d *fakeDoc) Export(_ context.Context, w io.Writer) error {
	_, err := io.WriteString(w, "%PDF-1.7 "+d.name)
	return err
}

func (d *fakeDoc) viewState() mode.ViewState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.view
}

func (d *fakeDoc) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// fakeEngine hands out fakeDocs and records every load.
type fakeEngine struct {
	mu      sync.Mutex
	fail    map[string]error
	loads   []viewer.LoadRequest
	docs    []*fakeDoc
	mounted map[viewer.Container][]*fakeDoc
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		fail:    make(map[string]error),
		mounted: make(map[viewer.Container][]*fakeDoc),
	}
}

func (e *fakeEngine) Load(_ context.Context, req viewer.LoadRequest) (viewer.Instance, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loads = append(e.loads, req)
	if err, ok := e.fail[req.Source.Ref]; ok {
		return nil, err
	}
	d := &fakeDoc{name: req.Source.DisplayName(), pages: 5}
	e.docs = append(e.docs, d)
	e.mounted[req.Container] = append(e.mounted[req.Container], d)
	return d, nil
}

func (e *fakeEngine) Unload(c viewer.Container) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	docs := e.mounted[c]
	if len(docs) == 0 {
		return errors.New("nothing mounted")
	}
	for _, d := range docs {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()
	}
	delete(e.mounted, c)
	return nil
}

func (e *fakeEngine) Catalog() mode.Catalog {
	return mode.Catalog{"pager": {Type: "pager"}}
}

func (e *fakeEngine) loadCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.loads)
}

func (e *fakeEngine) load(i int) viewer.LoadRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loads[i]
}

func (e *fakeEngine) doc(i int) *fakeDoc {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.docs[i]
}

// --- model helpers ---

var testDocuments = map[mode.Mode]string{
	mode.Viewer:      "/viewer.pdf",
	mode.Annotations: "/annotations.pdf",
	mode.Forms:       "/form.pdf",
	mode.Editor:      "/editor.pdf",
}

func fastTimings() viewer.Timings {
	return viewer.Timings{
		GateTimeout:       time.Second,
		FrameInterval:     time.Millisecond,
		ReadyPollInterval: time.Millisecond,
		ReadyTimeout:      time.Second,
		ReadyFallback:     time.Millisecond,
	}
}

// newSizedModel returns a laid-out model. The caller's cleanup closes it.
func newSizedModel(t *testing.T, eng viewer.Engine, opts ...Option) Model {
	t.Helper()
	base := []Option{
		WithLogger(zap.NewNop()),
		WithTimings(fastTimings()),
		WithDocuments(testDocuments),
	}
	m := New(eng, append(base, opts...)...)
	return update(t, m, tea.WindowSizeMsg{Width: 120, Height: 36})
}

func update(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func press(t *testing.T, m Model, keys ...string) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "up":
			msg = tea.KeyMsg{Type: tea.KeyUp}
		case "ctrl+b":
			msg = tea.KeyMsg{Type: tea.KeyCtrlB}
		case "ctrl+s":
			msg = tea.KeyMsg{Type: tea.KeyCtrlS}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		next, c := m.Update(msg)
		m = next.(Model)
		cmd = c
	}
	return m, cmd
}

// run executes cmd and feeds its message back into the model.
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	next, _ := m.Update(cmd())
	return next.(Model)
}

// activate selects md, starts its document and waits until md is applied.
func activate(t *testing.T, m Model, md mode.Mode) Model {
	t.Helper()
	m.active = md
	m.cursor = modeIndex(md)
	next, cmd := m.Update(activateMsg{mode: md})
	m = run(t, next.(Model), cmd)
	return pump(t, m, func(m Model) bool {
		if m.inst == nil || m.loading {
			return false
		}
		applied, ok := m.session.AppliedMode()
		return ok && applied == md.OrDefault()
	})
}

// pump feeds session callbacks into the model until done reports true.
func pump(t *testing.T, m Model, done func(Model) bool) Model {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for !done(m) {
		select {
		case msg := <-m.inbox:
			m = update(t, m, msg)
		case <-deadline:
			t.Fatal("timed out waiting for session callbacks")
		}
	}
	return m
}

// stripANSI removes ANSI escape sequences from a string.
func stripANSI(s string) string {
	var out []byte
	i := 0
	for i < len(s) {
		if s[i] == '\x1b' && i+1 < len(s) && s[i+1] == '[' {
			j := i + 2
			for j < len(s) && (s[j] < 'A' || s[j] > 'Z') && (s[j] < 'a' || s[j] > 'z') {
				j++
			}
			if j < len(s) {
				j++
			}
			i = j
		} else {
			out = append(out, s[i])
			i++
		}
	}
	return string(out)
}

// containsPlainText checks if s contains sub after stripping ANSI escapes.
func containsPlainText(s, sub string) bool {
	return strings.Contains(stripANSI(s), sub)
}
