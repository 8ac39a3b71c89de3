package shell

import (
	"testing"

	"github.com/smileynet/docshell/internal/mode"
)

func TestHelpBindings(t *testing.T) {
	if _, ok := HelpBindings(FocusRail, false, mode.Viewer).(railKeys); !ok {
		t.Error("rail focus should show rail keys")
	}
	if _, ok := HelpBindings(FocusRail, true, mode.Viewer).(uploadKeys); !ok {
		t.Error("open prompt should show upload keys")
	}

	pane, ok := HelpBindings(FocusPane, false, mode.Editor).(paneKeys)
	if !ok {
		t.Fatal("pane focus should show pane keys")
	}
	if !pane.editor || len(pane.FullHelp()) != 3 {
		t.Error("editor pane help should include organiser keys")
	}
	viewerPane := HelpBindings(FocusPane, false, mode.Viewer).(paneKeys)
	for _, b := range viewerPane.ShortHelp() {
		if b.Help().Desc == "export" {
			t.Error("export should only be offered in the editor")
		}
	}
}
