// Package shell implements the docshell terminal UI: a brand navbar, a
// collapsible tool rail listing the modes, and a main pane hosting the
// engine instance for the active mode's document. Separate from
// internal/tui which handles the headless lifecycle display.
package shell

import (
	"github.com/smileynet/docshell/internal/mode"
	"github.com/smileynet/docshell/internal/source"
	"github.com/smileynet/docshell/internal/viewer"
)

// Focus represents which region has keyboard focus.
type Focus int

const (
	FocusRail Focus = iota // Tool rail has focus.
	FocusPane              // Document pane has focus; keys go to the instance.
)

// activateMsg asks Update to show a mode's document.
type activateMsg struct {
	mode mode.Mode
}

// sessionEventMsg carries a session lifecycle event into Update.
type sessionEventMsg struct {
	event viewer.Event
}

// instanceMsg delivers an instance reported by a session's load observer.
type instanceMsg struct {
	session string
	inst    viewer.Instance
}

// startedMsg reports the return of Session.Start.
type startedMsg struct {
	session string
	err     error
}

// uploadedMsg reports the outcome of reading an uploaded file into the
// blob store.
type uploadedMsg struct {
	mode mode.Mode
	src  source.Source
	err  error
}

// exportedMsg reports the outcome of an editor export.
type exportedMsg struct {
	path string
	err  error
}
