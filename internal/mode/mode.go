// Package mode defines the shell's operating modes and the engine
// configuration (toolbar items and view state) that realizes each one.
package mode

import (
	"fmt"
	"strings"
)

// Mode is a named operating configuration of the viewer.
type Mode string

const (
	None        Mode = ""            // No mode selected; behaves as Viewer.
	Viewer      Mode = "VIEWER"      // Read-only viewing and navigation.
	Annotations Mode = "ANNOTATIONS" // Markup tools with the annotations sidebar.
	Forms       Mode = "FORMS"       // Form designer interaction.
	Editor      Mode = "EDITOR"      // Page organisation and export.
)

// All returns the selectable modes in tool-rail order.
func All() []Mode {
	return []Mode{Viewer, Annotations, Forms, Editor}
}

// OrDefault returns m, or Viewer when m is None.
func (m Mode) OrDefault() Mode {
	if m == None {
		return Viewer
	}
	return m
}

// Valid reports whether m is one of the selectable modes.
func (m Mode) Valid() bool {
	switch m {
	case Viewer, Annotations, Forms, Editor:
		return true
	}
	return false
}

func (m Mode) String() string {
	if m == None {
		return "NONE"
	}
	return string(m)
}

// Parse converts a case-insensitive mode name to a Mode.
// The empty string parses to None.
func Parse(s string) (Mode, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return None, nil
	}
	m := Mode(strings.ToUpper(s))
	if !m.Valid() {
		return None, fmt.Errorf("mode: unknown mode %q (want viewer, annotations, forms or editor)", s)
	}
	return m, nil
}

// Interaction is the engine's pointer interaction setting.
type Interaction string

const (
	InteractionNone           Interaction = ""
	InteractionFormCreator    Interaction = "form-creator"
	InteractionDocumentEditor Interaction = "document-editor"
)

// Sidebar is the engine's sidebar setting.
type Sidebar string

const (
	SidebarNone        Sidebar = ""
	SidebarAnnotations Sidebar = "annotations"
)

// ViewState is the subset of engine view state a mode controls.
type ViewState struct {
	Interaction Interaction
	Sidebar     Sidebar
	FormDesign  bool
}

// Apply returns v patched with the fields of target.
func (v ViewState) Apply(target ViewState) ViewState {
	v.Interaction = target.Interaction
	v.Sidebar = target.Sidebar
	v.FormDesign = target.FormDesign
	return v
}

// Configuration is the engine configuration realizing one Mode.
type Configuration struct {
	Mode  Mode
	Items []string // Toolbar item identifiers, in display order.
	View  ViewState
}

// configurations holds exactly one Configuration per selectable Mode.
var configurations = map[Mode]Configuration{
	Viewer: {
		Mode: Viewer,
		Items: []string{
			"sidebar-thumbnails", "sidebar-bookmarks", "pager",
			"zoom-out", "zoom-in", "zoom-mode", Spacer,
			"search", "print", "export-pdf",
		},
	},
	Annotations: {
		Mode: Annotations,
		Items: []string{
			"sidebar-annotations", "pager", Spacer,
			"highlighter", "text-highlighter", "ink", "note", "text",
			"annotate", "search",
		},
		View: ViewState{Sidebar: SidebarAnnotations},
	},
	Forms: {
		Mode: Forms,
		Items: []string{
			"pager", Spacer, "form-creator", "signature", "search", "export-pdf",
		},
		View: ViewState{Interaction: InteractionFormCreator, FormDesign: true},
	},
	Editor: {
		Mode: Editor,
		Items: []string{
			"sidebar-thumbnails", "pager", Spacer,
			"document-editor", "document-crop", "export-pdf",
		},
		View: ViewState{Interaction: InteractionDocumentEditor},
	},
}

// ConfigurationFor returns the Configuration for m. None and unknown
// values yield the Viewer configuration. The returned item slice is a copy.
func ConfigurationFor(m Mode) Configuration {
	cfg, ok := configurations[m]
	if !ok {
		cfg = configurations[Viewer]
	}
	cfg.Items = append([]string(nil), cfg.Items...)
	return cfg
}
