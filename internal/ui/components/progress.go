package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/examforge/internal/ui/theme"
)

// ProgressBar shows how many of total items are done.
type ProgressBar struct {
	Done  int
	Total int
	Width int
}

// NewProgressBar creates a progress bar.
func NewProgressBar(done, total, width int) ProgressBar {
	return ProgressBar{Done: done, Total: total, Width: width}
}

// View renders the bar followed by a "done/total" counter.
func (p ProgressBar) View() string {
	counter := theme.Dimmed.Render(fmt.Sprintf("  %d/%d", p.Done, p.Total))
	barWidth := max(p.Width-lipgloss.Width(counter), 4)

	filled := 0
	if p.Total > 0 {
		filled = min(max(barWidth*p.Done/p.Total, 0), barWidth)
	}

	return lipgloss.NewStyle().Background(theme.Secondary).Render(strings.Repeat(" ", filled)) +
		lipgloss.NewStyle().Background(theme.Border).Render(strings.Repeat(" ", barWidth-filled)) +
		counter
}
