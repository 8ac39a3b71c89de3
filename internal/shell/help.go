package shell

import (
	"github.com/charmbracelet/bubbles/help"

	"github.com/smileynet/docshell/internal/mode"
)

// HelpBindings returns the help.KeyMap for the focused region,
// providing context-aware help bar content.
func HelpBindings(focus Focus, uploading bool, active mode.Mode) help.KeyMap {
	switch {
	case uploading:
		return UploadKeyMap()
	case focus == FocusPane:
		return PaneKeyMap(active == mode.Editor)
	default:
		return RailKeyMap()
	}
}
