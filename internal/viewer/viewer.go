// Package viewer is the lifecycle controller that binds a host container
// to a document-rendering engine. A Session loads a document into the
// container, reconciles mode requests against the engine's readiness, and
// tears the instance down on document change or shell exit.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smileynet/docshell/internal/mode"
	"github.com/smileynet/docshell/internal/source"
)

// ErrDisposed is returned by Start once the session has been disposed.
var ErrDisposed = errors.New("viewer: session disposed")

// Position is a container's resolved layout position.
type Position int

const (
	PositionStatic   Position = iota // Default flow layout; overlays cannot anchor.
	PositionRelative                 // Positioned relative to its slot.
	PositionAbsolute                 // Positioned at fixed offsets.
)

// Container is the host surface an engine instance renders into.
// Implementations must be safe to query from any goroutine.
type Container interface {
	// Attached reports whether the container is part of the visible tree.
	Attached() bool
	// Size returns the rendered box in cells.
	Size() (width, height int)
	// Position returns the resolved layout position.
	Position() Position
}

// LoadRequest describes one engine load.
type LoadRequest struct {
	Container    Container
	Source       source.Source
	BaseLocation string // Resolves relative references and engine assets.
}

// Engine is the external rendering capability.
type Engine interface {
	// Load instantiates the engine against req.Container.
	Load(ctx context.Context, req LoadRequest) (Instance, error)
	// Unload removes whatever is mounted in c. It may fail when nothing is.
	Unload(c Container) error
	// Catalog returns the engine's default toolbar items.
	Catalog() mode.Catalog
}

// Instance is a live engine instance bound to one container.
type Instance interface {
	SetViewState(patch func(mode.ViewState) mode.ViewState) error
	SetToolbarItems(items []mode.ToolbarItem) error
}

// ReadinessPoller is implemented by instances that expose a document
// interactivity predicate.
type ReadinessPoller interface {
	IsDocumentReady() bool
}

// ReadinessNotifier is implemented by instances that signal document
// interactivity through a callback. The returned func unsubscribes.
type ReadinessNotifier interface {
	OnDocumentReady(fn func()) (cancel func())
}

// BlobResolver fetches the content behind a short-lived blob handle.
type BlobResolver interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// Hook attaches an optional side effect to each successfully started
// instance. The returned detach func (may be nil) runs when the instance
// is superseded or the session is disposed.
type Hook interface {
	Attach(ctx context.Context, inst Instance) (detach func())
}

// HookFunc adapts a function to the Hook interface.
type HookFunc func(ctx context.Context, inst Instance) func()

// Attach calls f.
func (f HookFunc) Attach(ctx context.Context, inst Instance) func() {
	return f(ctx, inst)
}

// LoadError reports an engine load failure for one Start call.
type LoadError struct {
	LoadID uint64
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("viewer: load %d of %s: %s", e.LoadID, e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Timings holds the session's wait and polling intervals.
type Timings struct {
	GateTimeout       time.Duration // Upper bound on the container readiness wait.
	FrameInterval     time.Duration // Container re-check interval.
	SettleDelay       time.Duration // Pause after the gate, regardless of outcome.
	ReadyPollInterval time.Duration // Document readiness predicate interval.
	ReadyTimeout      time.Duration // Upper bound on document readiness waits.
	ReadyFallback     time.Duration // Delay used when the instance exposes no signal.
}

// DefaultTimings returns the timings used when none are configured.
func DefaultTimings() Timings {
	return Timings{
		GateTimeout:       5 * time.Second,
		FrameInterval:     16 * time.Millisecond,
		SettleDelay:       50 * time.Millisecond,
		ReadyPollInterval: 100 * time.Millisecond,
		ReadyTimeout:      30 * time.Second,
		ReadyFallback:     500 * time.Millisecond,
	}
}

// withDefaults fills zero fields from DefaultTimings.
func (t Timings) withDefaults() Timings {
	d := DefaultTimings()
	if t.GateTimeout <= 0 {
		t.GateTimeout = d.GateTimeout
	}
	if t.FrameInterval <= 0 {
		t.FrameInterval = d.FrameInterval
	}
	if t.SettleDelay < 0 {
		t.SettleDelay = 0
	}
	if t.ReadyPollInterval <= 0 {
		t.ReadyPollInterval = d.ReadyPollInterval
	}
	if t.ReadyTimeout <= 0 {
		t.ReadyTimeout = d.ReadyTimeout
	}
	if t.ReadyFallback < 0 {
		t.ReadyFallback = 0
	}
	return t
}

// sleepCtx waits for d or until ctx is done. It reports whether the full
// delay elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
