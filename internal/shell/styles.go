package shell

import "github.com/charmbracelet/lipgloss"

// MinRailWidth is the minimum character width for the expanded tool rail.
const MinRailWidth = 30

// CollapsedRailWidth is the width of the collapsed tool rail, borders
// included.
const CollapsedRailWidth = 7

var (
	accent = lipgloss.AdaptiveColor{Light: "4", Dark: "12"}
	dim    = lipgloss.AdaptiveColor{Light: "240", Dark: "245"}

	brandStyle   = lipgloss.NewStyle().Bold(true)
	taglineStyle = lipgloss.NewStyle().Foreground(dim)
	contactStyle = lipgloss.NewStyle().Foreground(accent)
	activeStyle  = lipgloss.NewStyle().Bold(true).Foreground(accent)
	dimStyle     = lipgloss.NewStyle().Foreground(dim)
	headerStyle  = lipgloss.NewStyle().Bold(true)
	cardStyle    = lipgloss.NewStyle().PaddingLeft(2).Foreground(dim)
	uploadStyle  = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(dim).
			Padding(0, 1)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "1", Dark: "9"})
)

// CursorMarker is the prefix for the rail row under the cursor.
const CursorMarker = "▸ "

// FocusedBorder returns a lipgloss style with an accent-colored rounded border.
func FocusedBorder() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent)
}

// UnfocusedBorder returns a lipgloss style with a dim rounded border.
func UnfocusedBorder() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.AdaptiveColor{Light: "240", Dark: "240"})
}

// PaneWidths calculates the rail and document pane widths from a total
// width. The expanded rail gets 1/4 (minimum MinRailWidth), the collapsed
// rail CollapsedRailWidth; the document pane gets the rest.
func PaneWidths(totalWidth int, collapsed bool) (rail, doc int) {
	if totalWidth <= 0 {
		return 0, 0
	}
	if collapsed {
		rail = CollapsedRailWidth
	} else {
		rail = totalWidth / 4
		if rail < MinRailWidth {
			rail = MinRailWidth
		}
	}
	if rail > totalWidth {
		rail = totalWidth
	}
	return rail, totalWidth - rail
}
