package viewer

import (
	"github.com/smileynet/docshell/internal/mode"
	"github.com/smileynet/docshell/internal/source"
)

// EventKind names a session lifecycle transition.
type EventKind string

const (
	EventLoadStarted EventKind = "load-started"
	EventLoaded      EventKind = "loaded"
	EventLoadFailed  EventKind = "load-failed"
	EventDiscarded   EventKind = "discarded" // A stale load resolved and was unloaded.
	EventReady       EventKind = "ready"
	EventModeQueued  EventKind = "mode-queued"
	EventModeApplied EventKind = "mode-applied"
	EventDisposed    EventKind = "disposed"
)

// Event reports a session lifecycle transition to the host.
type Event struct {
	Kind    EventKind
	Session string
	LoadID  uint64
	Source  source.Source
	Mode    mode.Mode
	Err     error
}
