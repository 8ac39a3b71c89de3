package shell

import "github.com/charmbracelet/bubbles/key"

// railKeys holds key bindings while the tool rail has focus.
type railKeys struct {
	Up       key.Binding
	Down     key.Binding
	Select   key.Binding
	Details  key.Binding
	Upload   key.Binding
	Focus    key.Binding
	Collapse key.Binding
	Help     key.Binding
	Quit     key.Binding
}

// ShortHelp returns the rail bindings for the help bar.
func (k railKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Select, k.Upload, k.Focus, k.Collapse, k.Quit}
}

// FullHelp returns the rail bindings grouped for expanded help.
func (k railKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select, k.Details},
		{k.Upload, k.Focus, k.Collapse},
		{k.Help, k.Quit},
	}
}

// paneKeys holds key bindings while the document pane has focus. Page
// and editor keys are handled by the instance; they are listed here for
// the help bar only.
type paneKeys struct {
	Pages  key.Binding
	Scroll key.Binding
	Cycle  key.Binding
	Rotate key.Binding
	Move   key.Binding
	Export key.Binding
	Back   key.Binding
	Help   key.Binding
	Quit   key.Binding
	editor bool
}

// ShortHelp returns the pane bindings for the help bar.
func (k paneKeys) ShortHelp() []key.Binding {
	if k.editor {
		return []key.Binding{k.Pages, k.Rotate, k.Move, k.Export, k.Back, k.Quit}
	}
	return []key.Binding{k.Pages, k.Scroll, k.Cycle, k.Back, k.Quit}
}

// FullHelp returns the pane bindings grouped for expanded help.
func (k paneKeys) FullHelp() [][]key.Binding {
	groups := [][]key.Binding{{k.Pages, k.Scroll, k.Cycle}}
	if k.editor {
		groups = append(groups, []key.Binding{k.Rotate, k.Move, k.Export})
	}
	return append(groups, []key.Binding{k.Back, k.Help, k.Quit})
}

// uploadKeys holds key bindings while the upload prompt is open.
type uploadKeys struct {
	Confirm key.Binding
	Cancel  key.Binding
}

// ShortHelp returns the upload prompt bindings for the help bar.
func (k uploadKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Confirm, k.Cancel}
}

// FullHelp returns the upload prompt bindings grouped for expanded help.
func (k uploadKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Confirm, k.Cancel}}
}

// RailKeyMap returns the key bindings for the tool rail.
func RailKeyMap() railKeys {
	return railKeys{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select mode"),
		),
		Details: key.NewBinding(
			key.WithKeys(" ", "right", "l"),
			key.WithHelp("space", "details"),
		),
		Upload: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "open file"),
		),
		Focus: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "document"),
		),
		Collapse: key.NewBinding(
			key.WithKeys("ctrl+b"),
			key.WithHelp("ctrl+b", "collapse"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// PaneKeyMap returns the key bindings for the document pane. editor adds
// the page organiser bindings.
func PaneKeyMap(editor bool) paneKeys {
	return paneKeys{
		Pages: key.NewBinding(
			key.WithKeys("n", "p"),
			key.WithHelp("n/p", "page"),
		),
		Scroll: key.NewBinding(
			key.WithKeys("j", "k"),
			key.WithHelp("j/k", "scroll"),
		),
		Cycle: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next item"),
		),
		Rotate: key.NewBinding(
			key.WithKeys("r", "R"),
			key.WithHelp("r/R", "rotate"),
		),
		Move: key.NewBinding(
			key.WithKeys("[", "]"),
			key.WithHelp("[/]", "move page"),
		),
		Export: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "export"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "tools"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		editor: editor,
	}
}

// UploadKeyMap returns the key bindings for the upload prompt.
func UploadKeyMap() uploadKeys {
	return uploadKeys{
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}
}
