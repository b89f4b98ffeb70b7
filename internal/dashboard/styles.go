package dashboard

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/couchcryptid/stormview/internal/domain"
)

// MinLeftWidth is the minimum character width for the storm list pane.
const MinLeftWidth = 30

// Danger colors by level: high=red, elevated=yellow, low=green.
var dangerColors = map[string]lipgloss.AdaptiveColor{
	"high":     {Light: "1", Dark: "9"},
	"elevated": {Light: "3", Dark: "11"},
	"low":      {Light: "2", Dark: "10"},
}

var (
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "240", Dark: "245"})
	titleStyle = lipgloss.NewStyle().Bold(true)
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "1", Dark: "9"})
	activeDotStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "4", Dark: "12"})
)

// DangerBadge renders a colored category label like "C4".
func DangerBadge(category int) string {
	return lipgloss.NewStyle().
		Foreground(dangerColors[domain.DangerLevel(category)]).
		Render(fmt.Sprintf("C%d", category))
}

// FocusedBorder returns a lipgloss style with an accent-colored rounded border.
func FocusedBorder() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.AdaptiveColor{Light: "4", Dark: "12"})
}

// UnfocusedBorder returns a lipgloss style with a dim rounded border.
func UnfocusedBorder() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.AdaptiveColor{Light: "240", Dark: "240"})
}

// PaneWidths calculates the left and right pane widths from a total width.
// Left pane gets 1/3 (minimum MinLeftWidth), right pane gets the rest.
func PaneWidths(totalWidth int) (left, right int) {
	if totalWidth <= 0 {
		return 0, 0
	}
	left = max(totalWidth/3, MinLeftWidth)
	right = max(totalWidth-left, 0)
	return left, right
}
