package pdf

import (
	"errors"
	"fmt"
	"sync"

	"github.com/wudi/pdfkit/ir/semantic"
	"go.uber.org/zap"

	"github.com/smileynet/docshell/internal/mode"
	"github.com/smileynet/docshell/internal/viewer"
)

var (
	// ErrClosed is returned by operations on an unloaded instance.
	ErrClosed = errors.New("pdf: instance closed")
	// ErrNotEditing is returned by page edits outside the document editor.
	ErrNotEditing = errors.New("pdf: document editor not active")
)

// Instance is one document mounted in one container.
type Instance struct {
	engine    *Engine
	container viewer.Container
	name      string
	sem       *semantic.Document

	mu        sync.Mutex
	closed    bool
	ready     bool
	doc       *Document
	view      mode.ViewState
	toolbar   []mode.ToolbarItem
	listeners map[int]func()
	nextID    int

	// order maps display position to original page index; rotation holds
	// extra clockwise rotation per original page.
	order    []int
	rotation map[int]int
	cursor   int
	scroll   int
	selected int
}

func newInstance(e *Engine, c viewer.Container, name string, sem *semantic.Document) *Instance {
	inst := &Instance{
		engine:    e,
		container: c,
		name:      name,
		sem:       sem,
		listeners: make(map[int]func()),
		rotation:  make(map[int]int),
	}
	inst.order = identityOrder(len(sem.Pages))
	return inst
}

func identityOrder(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}

// Name returns the document's display name.
func (i *Instance) Name() string { return i.name }

func (i *Instance) extract() {
	doc, err := Extract(i.sem)
	if err != nil {
		i.engine.log.Warn("document extraction incomplete",
			zap.String("document", i.name), zap.Error(err))
	}
	if doc == nil {
		doc = &Document{}
	}
	for _, w := range doc.Warnings {
		i.engine.log.Debug("extraction warning", zap.String("document", i.name), zap.String("detail", w))
	}

	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return
	}
	i.doc = doc
	if len(doc.Pages) != len(i.order) {
		i.order = identityOrder(len(doc.Pages))
		i.cursor = 0
	}
	i.ready = true
	fns := make([]func(), 0, len(i.listeners))
	for _, fn := range i.listeners {
		fns = append(fns, fn)
	}
	i.listeners = nil
	i.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// IsDocumentReady reports whether extraction has finished.
func (i *Instance) IsDocumentReady() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.ready
}

// OnDocumentReady calls fn once extraction finishes, immediately if it
// already has. The returned func unsubscribes.
func (i *Instance) OnDocumentReady(fn func()) func() {
	i.mu.Lock()
	if i.ready {
		i.mu.Unlock()
		fn()
		return func() {}
	}
	if i.closed {
		i.mu.Unlock()
		return func() {}
	}
	id := i.nextID
	i.nextID++
	i.listeners[id] = fn
	i.mu.Unlock()
	return func() {
		i.mu.Lock()
		delete(i.listeners, id)
		i.mu.Unlock()
	}
}

// Close unmounts this instance only. Closing twice returns ErrClosed.
func (i *Instance) Close() error {
	if !i.shutdown() {
		return ErrClosed
	}
	i.engine.unmount(i)
	return nil
}

// shutdown marks the instance closed and reports whether it was open.
func (i *Instance) shutdown() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return false
	}
	i.closed = true
	i.listeners = nil
	return true
}

// Closed reports whether the instance was unloaded.
func (i *Instance) Closed() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.closed
}

// SetViewState applies patch to the current view state.
func (i *Instance) SetViewState(patch func(mode.ViewState) mode.ViewState) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return ErrClosed
	}
	i.view = patch(i.view)
	i.scroll = 0
	i.selected = 0
	return nil
}

// SetToolbarItems replaces the toolbar.
func (i *Instance) SetToolbarItems(items []mode.ToolbarItem) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return ErrClosed
	}
	i.toolbar = append([]mode.ToolbarItem(nil), items...)
	return nil
}

// ViewState returns the current view state.
func (i *Instance) ViewState() mode.ViewState {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.view
}

// ToolbarItems returns the current toolbar.
func (i *Instance) ToolbarItems() []mode.ToolbarItem {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]mode.ToolbarItem(nil), i.toolbar...)
}

// Document returns the extracted document once ready.
func (i *Instance) Document() (*Document, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.doc, i.ready
}

// Summary describes the document for status lines: title and page count
// once ready, the display name before that.
func (i *Instance) Summary() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.ready || i.doc == nil {
		return i.name
	}
	s := fmt.Sprintf("%s · %d pages", i.title(), len(i.order))
	if n := len(i.doc.Fields); n > 0 {
		s += fmt.Sprintf(" · %d fields", n)
	}
	return s
}

// Page returns the zero-based display position of the current page.
func (i *Instance) Page() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.cursor
}

// SetPage moves to display position n, clamped to the document.
func (i *Instance) SetPage(n int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.cursor = clamp(n, 0, len(i.order)-1)
	i.scroll = 0
}

// PageOrder returns the original page index at each display position.
func (i *Instance) PageOrder() []int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]int(nil), i.order...)
}

// Rotation returns the effective rotation of original page idx.
func (i *Instance) Rotation(idx int) int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.rotationLocked(idx)
}

func (i *Instance) rotationLocked(idx int) int {
	base := 0
	if i.doc != nil && idx >= 0 && idx < len(i.doc.Pages) {
		base = i.doc.Pages[idx].Rotate
	}
	return normalizeRotation(base + i.rotation[idx])
}

// HandleKey applies a pane key binding and reports whether it was used.
// Navigation works in every mode; organising pages needs the document
// editor interaction.
func (i *Instance) HandleKey(key string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed || !i.ready {
		return false
	}
	last := len(i.order) - 1
	switch key {
	case "n", "right", "pgdown":
		return i.moveCursor(i.cursor + 1)
	case "p", "left", "pgup":
		return i.moveCursor(i.cursor - 1)
	case "g", "home":
		return i.moveCursor(0)
	case "G", "end":
		return i.moveCursor(last)
	case "j", "down":
		i.scroll++
		return true
	case "k", "up":
		if i.scroll > 0 {
			i.scroll--
		}
		return true
	case "tab":
		if n := i.listLenLocked(); n > 0 {
			i.selected = (i.selected + 1) % n
			return true
		}
		return false
	}

	if i.view.Interaction != mode.InteractionDocumentEditor || last < 0 {
		return false
	}
	switch key {
	case "r":
		i.rotation[i.order[i.cursor]] += 90
		return true
	case "R":
		i.rotation[i.order[i.cursor]] -= 90
		return true
	case "[":
		return i.swap(i.cursor - 1)
	case "]":
		return i.swap(i.cursor + 1)
	case "x":
		i.order = identityOrder(len(i.order))
		i.rotation = make(map[int]int)
		i.cursor = 0
		return true
	}
	return false
}

// Rotate adds deg degrees of clockwise rotation to the page at display
// position pos. deg must be a multiple of 90.
func (i *Instance) Rotate(pos, deg int) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	switch {
	case i.closed:
		return ErrClosed
	case i.view.Interaction != mode.InteractionDocumentEditor:
		return ErrNotEditing
	case pos < 0 || pos >= len(i.order):
		return fmt.Errorf("pdf: page %d out of range 1-%d", pos+1, len(i.order))
	case deg%90 != 0:
		return fmt.Errorf("pdf: rotation %d is not a multiple of 90", deg)
	}
	i.rotation[i.order[pos]] += deg
	return nil
}

func (i *Instance) moveCursor(n int) bool {
	n = clamp(n, 0, len(i.order)-1)
	if n == i.cursor {
		return false
	}
	i.cursor = n
	i.scroll = 0
	return true
}

// swap moves the current page to position to, following it with the cursor.
func (i *Instance) swap(to int) bool {
	if to < 0 || to >= len(i.order) {
		return false
	}
	i.order[i.cursor], i.order[to] = i.order[to], i.order[i.cursor]
	i.cursor = to
	return true
}

func (i *Instance) listLenLocked() int {
	if i.doc == nil {
		return 0
	}
	switch {
	case i.view.Interaction == mode.InteractionFormCreator:
		return len(i.doc.Fields)
	case i.view.Sidebar == mode.SidebarAnnotations:
		return len(i.doc.Annotations)
	}
	return 0
}

func clamp(n, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
