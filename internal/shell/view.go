package shell

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/smileynet/docshell/internal/mode"
)

// Brand text shown in the navbar.
const (
	brandName    = "Nutrient"
	brandTagline = "WebSDK Demo"
	contactHint  = "Contact Sales: nutrient.io/contact-sales"
)

// View renders the navbar, tool rail, document pane, status line and
// help bar.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	railWidth, docWidth := PaneWidths(m.width, m.collapsed)
	contentHeight := m.contentHeight()

	railStyle, docStyle := FocusedBorder(), UnfocusedBorder()
	if m.focus == FocusPane {
		railStyle, docStyle = UnfocusedBorder(), FocusedBorder()
	}
	railStyle = railStyle.
		Width(max(railWidth-borderChrome, 0)).
		Height(contentHeight)
	docStyle = docStyle.
		Width(max(docWidth-borderChrome, 0)).
		Height(contentHeight)

	rail := railStyle.Render(m.viewRail(railWidth - borderChrome))
	doc := docStyle.Render(m.viewDocument(docWidth-borderChrome, contentHeight))
	body := lipgloss.JoinHorizontal(lipgloss.Top, rail, doc)
	helpView := m.help.View(HelpBindings(m.focus, m.uploading, m.active))

	return lipgloss.JoinVertical(lipgloss.Left,
		m.viewNavbar(),
		body,
		m.viewStatus(),
		helpView,
	)
}

// viewNavbar renders the brand on the left and the contact hint on the
// right, dropping the hint when the terminal is too narrow.
func (m Model) viewNavbar() string {
	left := brandStyle.Render(brandName) + "  " + taglineStyle.Render(brandTagline)
	right := contactStyle.Render(contactHint)
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 2 {
		return left
	}
	return left + strings.Repeat(" ", gap) + right
}

// viewRail renders the tool list. The expanded rail shows a header, the
// detail card of the expanded mode and the open-file prompt of the active
// mode; the collapsed rail shows one initial per mode.
func (m Model) viewRail(width int) string {
	var b strings.Builder

	if m.collapsed {
		for i, md := range mode.All() {
			label := string([]rune(mode.FeatureFor(md).Name)[:1])
			line := "  " + label
			if i == m.cursor {
				line = CursorMarker + label
			}
			if md == m.active {
				line = activeStyle.Render(line)
			}
			b.WriteString(line + "\n")
		}
		return b.String()
	}

	b.WriteString(headerStyle.Render("Tools") + "\n")
	b.WriteString(dimStyle.Render("Select the feature") + "\n\n")

	for i, md := range mode.All() {
		f := mode.FeatureFor(md)
		prefix := "  "
		if i == m.cursor {
			prefix = CursorMarker
		}
		chevron := "›"
		if m.expanded == md {
			chevron = "⌄"
		}
		name := f.Name
		if md == m.active {
			name = activeStyle.Render(name + " ●")
		}
		b.WriteString(prefix + name + " " + dimStyle.Render(chevron) + "\n")

		if m.expanded != md {
			continue
		}
		b.WriteString(m.viewCard(f, md, width))
	}

	b.WriteString("\n" + dimStyle.Render(m.railFooter()))
	return b.String()
}

// viewCard renders the detail card of one mode.
func (m Model) viewCard(f mode.Feature, md mode.Mode, width int) string {
	var b strings.Builder
	inner := max(width-4, 8)
	desc := lipgloss.NewStyle().Width(inner).Render(f.Description)
	b.WriteString(cardStyle.Render(desc) + "\n")
	for _, item := range f.Features {
		b.WriteString(cardStyle.Render("• "+item) + "\n")
	}
	if md != m.active {
		return b.String()
	}

	if m.uploading {
		b.WriteString(uploadStyle.Width(inner).Render(m.upload.View()) + "\n")
		return b.String()
	}
	hint := "u: open a PDF for " + f.Name
	if src, ok := m.uploads[md]; ok {
		hint = "Using " + src.DisplayName() + " (u to replace)"
	}
	b.WriteString(uploadStyle.Width(inner).Render(dimStyle.Render(hint)) + "\n")
	return b.String()
}

func (m Model) railFooter() string {
	f := mode.FeatureFor(m.active)
	return "Mode: " + f.Name
}

// viewDocument renders the document pane: the instance itself when one is
// live, a loading line while it loads, and a blank pane otherwise.
func (m Model) viewDocument(width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	if r, ok := m.inst.(renderer); ok {
		return r.Render(width, height)
	}
	switch {
	case m.loadErr != nil:
		return ""
	case m.sessionSrc.IsZero():
		name := mode.FeatureFor(m.active).Name
		return dimStyle.Render(fmt.Sprintf("No document for %s.\nPress u in the tool rail to open one.", name))
	case m.loading:
		return m.spinner.View() + " Loading " + m.sessionSrc.DisplayName() + "…"
	}
	return ""
}

// viewStatus renders the status line: load failures, then transient
// notices, then the document summary.
func (m Model) viewStatus() string {
	var line string
	switch {
	case m.loadErr != nil:
		line = errorStyle.Render(fmt.Sprintf("Could not load %s: %s", m.sessionSrc.DisplayName(), m.loadErr))
	case m.notice != "":
		line = m.notice
	case m.loading:
		line = m.spinner.View() + " Loading " + m.sessionSrc.DisplayName()
	case m.inst != nil:
		if s, ok := m.inst.(summarizer); ok {
			line = s.Summary()
		} else {
			line = m.sessionSrc.DisplayName()
		}
	}
	return lipgloss.NewStyle().MaxWidth(m.width).Render(line)
}
