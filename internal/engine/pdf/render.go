package pdf

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/smileynet/docshell/internal/mode"
)

var (
	toolbarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "0", Dark: "15"}).
			Background(lipgloss.AdaptiveColor{Light: "254", Dark: "236"})
	headingStyle = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "240", Dark: "245"})
	cursorStyle  = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "4", Dark: "12"})
	sidebarStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, true, false, false).
			BorderForeground(lipgloss.AdaptiveColor{Light: "250", Dark: "240"}).
			PaddingRight(1)
)

// Render draws the pane at the given size for the current view state.
func (i *Instance) Render(width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return ""
	}
	if !i.ready {
		return fit(dimStyle.Render("Loading "+i.name+"…"), width, height)
	}

	bar := i.renderToolbar(width)
	bodyHeight := height - 1
	if bodyHeight <= 0 {
		return bar
	}

	var body string
	switch {
	case i.view.Interaction == mode.InteractionDocumentEditor:
		body = i.renderOrganiser(width, bodyHeight)
	case i.view.Interaction == mode.InteractionFormCreator:
		body = i.renderFormDesigner(width, bodyHeight)
	case i.view.Sidebar == mode.SidebarAnnotations:
		body = i.renderAnnotations(width, bodyHeight)
	default:
		body = i.renderPage(width, bodyHeight)
	}
	return bar + "\n" + fit(body, width, bodyHeight)
}

// renderToolbar lays out items left of the first spacer on the left and
// the rest on the right.
func (i *Instance) renderToolbar(width int) string {
	var left, right []string
	side := &left
	for _, it := range i.toolbar {
		if it.Type == mode.Spacer {
			side = &right
			continue
		}
		label := it.Title
		if label == "" {
			label = it.Type
		}
		if it.Type == "pager" {
			label = fmt.Sprintf("%s %d/%d", label, i.cursor+1, len(i.order))
		}
		*side = append(*side, label)
	}
	l := strings.Join(left, " │ ")
	r := strings.Join(right, " │ ")
	gap := width - lipgloss.Width(l) - lipgloss.Width(r) - 2
	if gap < 1 {
		gap = 1
	}
	line := " " + l + strings.Repeat(" ", gap) + r + " "
	return toolbarStyle.Render(truncate(line, width))
}

func (i *Instance) currentPage() (Page, bool) {
	if i.doc == nil || i.cursor < 0 || i.cursor >= len(i.order) {
		return Page{}, false
	}
	idx := i.order[i.cursor]
	if idx < 0 || idx >= len(i.doc.Pages) {
		return Page{}, false
	}
	return i.doc.Pages[idx], true
}

func (i *Instance) pageHeading() string {
	pg, ok := i.currentPage()
	if !ok {
		return headingStyle.Render(i.title()) + dimStyle.Render("  (no pages)")
	}
	h := fmt.Sprintf("Page %d of %d", i.cursor+1, len(i.order))
	if pg.Label != "" {
		h += fmt.Sprintf(" (%s)", pg.Label)
	}
	if rot := i.rotationLocked(pg.Index); rot != 0 {
		h += fmt.Sprintf(" ↻%d°", rot)
	}
	return headingStyle.Render(i.title()) + dimStyle.Render("  "+h)
}

func (i *Instance) title() string {
	if i.doc != nil && i.doc.Title != "" {
		return i.doc.Title
	}
	return i.name
}

func (i *Instance) renderPage(width, height int) string {
	lines := []string{i.pageHeading(), ""}
	pg, _ := i.currentPage()
	text := pg.Text
	if text == "" {
		text = dimStyle.Render("(no extractable text on this page)")
	}
	lines = append(lines, i.scrolled(wrap(text, width), height-2)...)
	return strings.Join(lines, "\n")
}

func (i *Instance) renderAnnotations(width, height int) string {
	side := width / 3
	if side > 36 {
		side = 36
	}
	if side < 12 {
		return i.renderPage(width, height)
	}

	items := []string{headingStyle.Render("Annotations")}
	if len(i.doc.Annotations) == 0 {
		items = append(items, dimStyle.Render("none"))
	}
	for n, a := range i.doc.Annotations {
		label := fmt.Sprintf("p%d %s", a.Page+1, a.Subtype)
		if a.Contents != "" {
			label += ": " + a.Contents
		} else if a.URI != "" {
			label += ": " + a.URI
		}
		items = append(items, marker(n == i.selected)+truncate(label, side-3))
	}
	sidebar := sidebarStyle.Width(side).Height(height).Render(fit(strings.Join(items, "\n"), side, height))
	page := i.renderPage(width-side-2, height)
	return lipgloss.JoinHorizontal(lipgloss.Top, sidebar, " ", page)
}

func (i *Instance) renderFormDesigner(width, height int) string {
	lines := []string{
		headingStyle.Render("Form designer") + dimStyle.Render("  "+i.title()),
		"",
	}
	if len(i.doc.Fields) == 0 {
		lines = append(lines, dimStyle.Render("This document has no form fields."))
		return strings.Join(lines, "\n")
	}
	for n, f := range i.doc.Fields {
		name := f.Name
		if name == "" {
			name = "(unnamed)"
		}
		row := fmt.Sprintf("%-24s %-6s page %d", truncate(name, 24), f.Type, f.Page+1)
		lines = append(lines, marker(n == i.selected)+truncate(row, width-2))
	}
	return strings.Join(window(lines, 2+i.selected, height), "\n")
}

func (i *Instance) renderOrganiser(width, height int) string {
	lines := []string{
		headingStyle.Render("Document editor") + dimStyle.Render("  [ ] move · r/R rotate · x reset"),
		"",
	}
	for pos, idx := range i.order {
		label := fmt.Sprintf("%3d. page %d", pos+1, idx+1)
		if i.doc != nil && idx < len(i.doc.Pages) && i.doc.Pages[idx].Label != "" {
			label += " (" + i.doc.Pages[idx].Label + ")"
		}
		if rot := i.rotationLocked(idx); rot != 0 {
			label += fmt.Sprintf("  ↻%d°", rot)
		}
		lines = append(lines, marker(pos == i.cursor)+truncate(label, width-2))
	}
	return strings.Join(window(lines, 2+i.cursor, height), "\n")
}

func (i *Instance) scrolled(lines []string, height int) []string {
	if height <= 0 {
		return nil
	}
	maxScroll := len(lines) - height
	if maxScroll < 0 {
		maxScroll = 0
	}
	if i.scroll > maxScroll {
		i.scroll = maxScroll
	}
	end := i.scroll + height
	if end > len(lines) {
		end = len(lines)
	}
	return lines[i.scroll:end]
}

func marker(active bool) string {
	if active {
		return cursorStyle.Render("▸ ")
	}
	return "  "
}

// window returns at most height lines, keeping line focus visible.
func window(lines []string, focus, height int) []string {
	if len(lines) <= height {
		return lines
	}
	start := focus - height/2
	if start < 0 {
		start = 0
	}
	if start+height > len(lines) {
		start = len(lines) - height
	}
	return lines[start : start+height]
}

func wrap(text string, width int) []string {
	if width <= 0 {
		return nil
	}
	return strings.Split(lipgloss.NewStyle().Width(width).Render(text), "\n")
}

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r))+1 > width {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}

// fit clips s to height lines.
func fit(s string, width, height int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(strings.Join(lines, "\n"))
}
