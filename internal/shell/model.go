package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/smileynet/docshell/internal/mode"
	"github.com/smileynet/docshell/internal/source"
	"github.com/smileynet/docshell/internal/viewer"
)

// Layout chrome, in lines.
const (
	navbarHeight  = 1
	statusHeight  = 1
	helpBarHeight = 1
	borderChrome  = 2
)

// inboxSize bounds session callbacks waiting for Update.
const inboxSize = 64

// renderer is implemented by instances that draw themselves into the pane.
type renderer interface {
	Render(width, height int) string
}

// keyHandler is implemented by instances that take pane key presses.
type keyHandler interface {
	HandleKey(key string) bool
}

// summarizer is implemented by instances that describe their document.
type summarizer interface {
	Summary() string
}

// exporter is implemented by instances that can write the edited document.
type exporter interface {
	Name() string
	Export(ctx context.Context, w io.Writer) error
}

// Model is the root Bubble Tea model for the shell.
type Model struct {
	engine    viewer.Engine
	log       *zap.Logger
	blobs     *source.Store
	documents map[mode.Mode]string
	uploads   map[mode.Mode]source.Source
	timings   viewer.Timings
	base      string
	exportDir string
	positions PositionStore
	memory    *scrollMemory

	ctx    context.Context
	cancel context.CancelFunc
	inbox  chan tea.Msg
	pane   *Pane

	// session is the live session; sessionSrc is the document it shows.
	session    *viewer.Session
	sessionSrc source.Source
	inst       viewer.Instance
	loading    bool
	loadErr    error
	notice     string

	active    mode.Mode
	cursor    int
	expanded  mode.Mode
	collapsed bool
	focus     Focus
	uploading bool
	upload    textinput.Model

	width   int
	height  int
	spinner spinner.Model
	help    help.Model
}

// Option configures a Model.
type Option func(*Model)

// WithLogger sets the logger for the shell and its sessions.
func WithLogger(l *zap.Logger) Option {
	return func(m *Model) { m.log = l }
}

// WithDocuments sets the default document reference per mode. A mode
// without an entry shows an empty pane until a file is opened for it.
func WithDocuments(docs map[mode.Mode]string) Option {
	return func(m *Model) {
		for k, v := range docs {
			m.documents[k.OrDefault()] = v
		}
	}
}

// WithStartMode sets the mode selected at startup.
func WithStartMode(md mode.Mode) Option {
	return func(m *Model) { m.active = md }
}

// WithCollapsedRail starts with the tool rail collapsed.
func WithCollapsedRail(collapsed bool) Option {
	return func(m *Model) { m.collapsed = collapsed }
}

// WithTimings sets the session wait and polling intervals.
func WithTimings(t viewer.Timings) Option {
	return func(m *Model) { m.timings = t }
}

// WithBaseLocation sets the base location for relative document references.
func WithBaseLocation(base string) Option {
	return func(m *Model) { m.base = base }
}

// WithBlobStore sets the store that holds opened files.
func WithBlobStore(s *source.Store) Option {
	return func(m *Model) { m.blobs = s }
}

// WithExportDir sets the directory editor exports are written to.
func WithExportDir(dir string) Option {
	return func(m *Model) { m.exportDir = dir }
}

// WithPositionStore persists the page each document was left on across
// runs.
func WithPositionStore(s PositionStore) Option {
	return func(m *Model) { m.positions = s }
}

// New creates a shell Model rendering documents with engine.
func New(engine viewer.Engine, opts ...Option) Model {
	ctx, cancel := context.WithCancel(context.Background())

	s := spinner.New()
	s.Spinner = spinner.Dot

	ti := textinput.New()
	ti.Placeholder = "path/to/document.pdf"
	ti.Prompt = "› "

	m := Model{
		engine:    engine,
		log:       viewer.Logger(),
		documents: make(map[mode.Mode]string),
		uploads:   make(map[mode.Mode]source.Source),
		timings:   viewer.DefaultTimings(),
		ctx:       ctx,
		cancel:    cancel,
		inbox:     make(chan tea.Msg, inboxSize),
		pane:      &Pane{},
		spinner:   s,
		help:      help.New(),
		upload:    ti,
		exportDir: ".",
	}
	for _, opt := range opts {
		opt(&m)
	}
	if m.blobs == nil {
		m.blobs = source.NewStore()
	}
	m.memory = newScrollMemory(m.positions, m.log)
	m.active = m.active.OrDefault()
	m.expanded = m.active
	m.cursor = modeIndex(m.active)
	return m
}

// Init requests the start mode's document and begins listening for
// session callbacks.
func (m Model) Init() tea.Cmd {
	active := m.active
	return tea.Batch(m.spinner.Tick, m.listen(), func() tea.Msg {
		return activateMsg{mode: active}
	})
}

// Close disposes the live session and stops background listeners. It is
// safe to call more than once.
func (m Model) Close() {
	if m.session != nil {
		m.session.Dispose()
	}
	m.pane.Detach()
	m.cancel()
}

// Update handles incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case activateMsg:
		return m, m.activate(msg.mode)

	case sessionEventMsg:
		m.applyEvent(msg.event)
		return m, m.listen()

	case instanceMsg:
		if m.session != nil && msg.session == m.session.ID() {
			m.inst = msg.inst
		}
		return m, m.listen()

	case startedMsg:
		if m.session == nil || msg.session != m.session.ID() {
			return m, nil
		}
		var loadErr *viewer.LoadError
		if errors.As(msg.err, &loadErr) {
			m.loading = false
			m.loadErr = loadErr.Err
		}
		return m, nil

	case uploadedMsg:
		if msg.err != nil {
			m.notice = "Could not open file: " + msg.err.Error()
			return m, nil
		}
		if prev, ok := m.uploads[msg.mode]; ok && prev.IsBlob() {
			m.blobs.Revoke(prev.Ref)
		}
		m.uploads[msg.mode] = msg.src
		m.notice = fmt.Sprintf("Opened %s for %s", msg.src.DisplayName(), mode.FeatureFor(msg.mode).Name)
		if msg.mode == m.active {
			return m, m.activate(m.active)
		}
		return m, nil

	case exportedMsg:
		if msg.err != nil {
			m.notice = "Export failed: " + msg.err.Error()
		} else {
			m.notice = "Exported to " + msg.path
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.uploading {
		var cmd tea.Cmd
		m.upload, cmd = m.upload.Update(msg)
		return m, cmd
	}
	return m, nil
}

// handleKey processes key messages with global and focus-specific routing.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.uploading {
		return m.handleUploadKey(msg)
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.Close()
		return m, tea.Quit
	case "ctrl+b":
		m.collapsed = !m.collapsed
		m.layout()
		return m, nil
	case "?":
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	if m.focus == FocusPane {
		return m.handlePaneKey(msg)
	}
	return m.handleRailKey(msg)
}

func (m Model) handleRailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := RailKeyMap()
	all := mode.All()

	switch {
	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, keys.Down):
		if m.cursor < len(all)-1 {
			m.cursor++
		}
	case key.Matches(msg, keys.Select):
		target := all[m.cursor]
		if !m.collapsed {
			m.expanded = target
		}
		if target == m.active {
			return m, nil
		}
		m.active = target
		m.notice = ""
		return m, m.activate(target)
	case key.Matches(msg, keys.Details):
		if m.collapsed {
			return m, nil
		}
		if target := all[m.cursor]; m.expanded == target {
			m.expanded = mode.None
		} else {
			m.expanded = target
		}
	case key.Matches(msg, keys.Upload):
		if m.collapsed {
			return m, nil
		}
		m.uploading = true
		m.expanded = m.active
		m.upload.SetValue("")
		cmd := m.upload.Focus()
		return m, cmd
	case key.Matches(msg, keys.Focus):
		m.focus = FocusPane
	}
	return m, nil
}

func (m Model) handlePaneKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := PaneKeyMap(m.active == mode.Editor)

	switch {
	case key.Matches(msg, keys.Back):
		m.focus = FocusRail
		return m, nil
	case key.Matches(msg, keys.Export):
		if m.active != mode.Editor {
			return m, nil
		}
		return m, m.export()
	}
	if h, ok := m.inst.(keyHandler); ok {
		h.HandleKey(msg.String())
	}
	return m, nil
}

func (m Model) handleUploadKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := UploadKeyMap()

	switch {
	case key.Matches(msg, keys.Cancel):
		m.uploading = false
		m.upload.Blur()
		return m, nil
	case key.Matches(msg, keys.Confirm):
		path := strings.TrimSpace(m.upload.Value())
		m.uploading = false
		m.upload.Blur()
		if path == "" {
			return m, nil
		}
		return m, m.register(m.active, path)
	}

	var cmd tea.Cmd
	m.upload, cmd = m.upload.Update(msg)
	return m, cmd
}

// applyEvent folds a session event into the status shown to the user.
// Events from sessions other than the live one are ignored.
func (m *Model) applyEvent(ev viewer.Event) {
	if m.session == nil || ev.Session != m.session.ID() {
		return
	}
	switch ev.Kind {
	case viewer.EventLoadStarted:
		m.loading = true
		m.loadErr = nil
	case viewer.EventLoadFailed:
		m.loading = false
		m.loadErr = ev.Err
		m.inst = nil
	case viewer.EventReady:
		m.loading = false
	case viewer.EventDisposed:
		m.inst = nil
	}
}

// activate shows target's document. When the document is the one already
// loaded the live session is reconfigured; otherwise the live session is
// disposed and a new one started.
func (m *Model) activate(target mode.Mode) tea.Cmd {
	src := m.documentFor(target)
	if m.session != nil && !m.session.Disposed() && m.sessionSrc.Equal(src) {
		m.session.Reconfigure(target)
		return nil
	}

	if m.session != nil {
		m.session.Dispose()
	}
	m.session, m.sessionSrc, m.inst = nil, src, nil
	m.loadErr = nil
	if src.IsZero() {
		m.loading = false
		return nil
	}

	s := m.newSession(target)
	m.session = s
	m.loading = true
	ctx := m.ctx
	return func() tea.Msg {
		return startedMsg{session: s.ID(), err: s.Start(ctx, src)}
	}
}

func (m *Model) newSession(target mode.Mode) *viewer.Session {
	inbox := m.inbox
	log := m.log
	post := func(msg tea.Msg) {
		select {
		case inbox <- msg:
		default:
			log.Warn("shell inbox full; dropping session callback")
		}
	}

	var s *viewer.Session
	s = viewer.NewSession(m.engine, m.pane.mount(),
		viewer.WithLogger(m.log),
		viewer.WithTimings(m.timings),
		viewer.WithBaseLocation(m.base),
		viewer.WithBlobResolver(m.blobs),
		viewer.WithInitialMode(target),
		viewer.WithHooks(m.memory),
		viewer.WithLoadObserver(func(inst viewer.Instance) {
			post(instanceMsg{session: s.ID(), inst: inst})
		}),
		viewer.WithEventCallback(func(ev viewer.Event) {
			post(sessionEventMsg{event: ev})
		}),
	)
	return s
}

// documentFor returns the opened file for target, else its default
// document. The zero Source means the mode has no document.
func (m *Model) documentFor(target mode.Mode) source.Source {
	target = target.OrDefault()
	if src, ok := m.uploads[target]; ok {
		return src
	}
	if ref := m.documents[target]; ref != "" {
		return source.Ref(ref)
	}
	return source.Source{}
}

// listen waits for the next session callback.
func (m Model) listen() tea.Cmd {
	inbox, done := m.inbox, m.ctx.Done()
	return func() tea.Msg {
		select {
		case msg := <-inbox:
			return msg
		case <-done:
			return nil
		}
	}
}

// register reads path into the blob store as target's document.
func (m Model) register(target mode.Mode, path string) tea.Cmd {
	blobs := m.blobs
	return func() tea.Msg {
		src, err := blobs.RegisterFile(path)
		return uploadedMsg{mode: target, src: src, err: err}
	}
}

// export writes the editor's document next to the export directory.
func (m Model) export() tea.Cmd {
	ex, ok := m.inst.(exporter)
	if !ok {
		return nil
	}
	ctx := m.ctx
	name := strings.TrimSuffix(ex.Name(), filepath.Ext(ex.Name()))
	path := filepath.Join(m.exportDir, name+"-edited.pdf")
	return func() tea.Msg {
		return exportedMsg{path: path, err: writeExport(ctx, ex, path)}
	}
}

func writeExport(ctx context.Context, ex exporter, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return ex.Export(ctx, f)
}

// layout pushes the document pane's inner size to the pane container.
func (m *Model) layout() {
	_, docWidth := PaneWidths(m.width, m.collapsed)
	m.pane.Layout(docWidth-borderChrome, m.contentHeight())
}

// contentHeight returns the usable height inside the bordered regions.
func (m Model) contentHeight() int {
	h := m.height - navbarHeight - statusHeight - helpBarHeight - borderChrome
	if h < 0 {
		return 0
	}
	return h
}

// Active returns the selected mode.
func (m Model) Active() mode.Mode { return m.active }

// Session returns the live session, if any.
func (m Model) Session() (*viewer.Session, bool) {
	return m.session, m.session != nil
}

func modeIndex(md mode.Mode) int {
	for i, candidate := range mode.All() {
		if candidate == md {
			return i
		}
	}
	return 0
}
