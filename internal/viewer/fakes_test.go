package viewer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smileynet/docshell/internal/mode"
)

// --- Container ---

type fakeContainer struct {
	attached atomic.Bool
	width    atomic.Int64
	height   atomic.Int64
	position atomic.Int64
}

func readyContainer() *fakeContainer {
	c := &fakeContainer{}
	c.attached.Store(true)
	c.width.Store(80)
	c.height.Store(24)
	c.position.Store(int64(PositionRelative))
	return c
}

func (c *fakeContainer) Attached() bool { return c.attached.Load() }
func (c *fakeContainer) Size() (int, int) { return int(c.width.Load()), int(c.height.Load()) }
func (c *fakeContainer) Position() Position { return Position(c.position.Load()) }
func (c *fakeContainer) setSize(w, h int) { c.width.Store(int64(w)); c.height.Store(int64(h)) }
func (c *fakeContainer) setPosition(p Position) { c.position.Store(int64(p)) }

// --- Instance ---

type fakeInstance struct {
	name string

	mu       sync.Mutex
	view     mode.ViewState
	views    []mode.ViewState
	toolbars [][]mode.ToolbarItem
	viewErr  error
	closed   int
}

func (i *fakeInstance) SetViewState(patch func(mode.ViewState) mode.ViewState) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.view = patch(i.view)
	i.views = append(i.views, i.view)
	return i.viewErr
}

func (i *fakeInstance) SetToolbarItems(items []mode.ToolbarItem) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.toolbars = append(i.toolbars, items)
	return nil
}

func (i *fakeInstance) viewCalls() []mode.ViewState {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]mode.ViewState(nil), i.views...)
}

func (i *fakeInstance) toolbarCalls() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.toolbars)
}

func (i *fakeInstance) closeCount() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.closed
}

// pollingInstance exposes IsDocumentReady.
type pollingInstance struct {
	*fakeInstance
	ready atomic.Bool
}

func newPollingInstance(name string) *pollingInstance {
	return &pollingInstance{fakeInstance: &fakeInstance{name: name}}
}

func (i *pollingInstance) IsDocumentReady() bool { return i.ready.Load() }

// closablePollingInstance also implements io.Closer.
type closablePollingInstance struct {
	*pollingInstance
}

func (i closablePollingInstance) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.closed++
	return nil
}

// notifyingInstance exposes OnDocumentReady.
type notifyingInstance struct {
	*fakeInstance
	mu2       sync.Mutex
	listeners []func()
}

func (i *notifyingInstance) OnDocumentReady(fn func()) func() {
	i.mu2.Lock()
	defer i.mu2.Unlock()
	i.listeners = append(i.listeners, fn)
	return func() {}
}

func (i *notifyingInstance) subscribed() bool {
	i.mu2.Lock()
	defer i.mu2.Unlock()
	return len(i.listeners) > 0
}

func (i *notifyingInstance) fire() {
	i.mu2.Lock()
	fns := append([]func(){}, i.listeners...)
	i.mu2.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// --- Engine ---

type loadFunc func(ctx context.Context, req LoadRequest) (Instance, error)

type fakeEngine struct {
	mu        sync.Mutex
	load      loadFunc
	requests  []LoadRequest
	unloads   int
	unloadErr error
}

func (e *fakeEngine) Load(ctx context.Context, req LoadRequest) (Instance, error) {
	e.mu.Lock()
	e.requests = append(e.requests, req)
	fn := e.load
	e.mu.Unlock()
	return fn(ctx, req)
}

func (e *fakeEngine) Unload(Container) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.unloads++
	return e.unloadErr
}

func (e *fakeEngine) Catalog() mode.Catalog {
	c := mode.Catalog{}
	for _, m := range mode.All() {
		for _, id := range mode.ConfigurationFor(m).Items {
			c[id] = mode.ToolbarItem{Type: id, Title: id}
		}
	}
	return c
}

func (e *fakeEngine) unloadCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.unloads
}

func (e *fakeEngine) loadRequests() []LoadRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]LoadRequest(nil), e.requests...)
}

// returning builds a loadFunc that always yields inst.
func returning(inst Instance) loadFunc {
	return func(context.Context, LoadRequest) (Instance, error) { return inst, nil }
}

// failing builds a loadFunc that always fails.
func failing(err error) loadFunc {
	return func(context.Context, LoadRequest) (Instance, error) { return nil, err }
}

var errBoom = errors.New("boom")

// --- Helpers ---

func fastTimings() Timings {
	return Timings{
		GateTimeout:       200 * time.Millisecond,
		FrameInterval:     time.Millisecond,
		SettleDelay:       0,
		ReadyPollInterval: time.Millisecond,
		ReadyTimeout:      2 * time.Second,
		ReadyFallback:     10 * time.Millisecond,
	}
}

// waitFor polls cond until it holds or the test times out.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// eventLog collects session events.
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) record(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) count(kind EventKind) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, ev := range l.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}
