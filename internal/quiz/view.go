package quiz

import (
	"fmt"
	"strconv"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/examforge/internal/evaluate"
	"github.com/abhisek/examforge/internal/ui/components"
	"github.com/abhisek/examforge/internal/ui/layout"
	"github.com/abhisek/examforge/internal/ui/theme"
)

// View renders the frame for the current phase.
func (m Model) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true
	v.SetContent(m.render())
	return v
}

func (m Model) render() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}
	if layout.IsTooSmall(m.width, m.height) {
		return layout.RenderMinSizeMessage(m.width, m.height)
	}

	header := layout.RenderHeader(m.exam.Title, m.score(), m.width)
	footer := layout.RenderFooter(m.keyHints(), m.width)

	content := m.viewItem()
	if m.phase == phaseResults {
		content = m.viewResults()
	}
	return layout.RenderFrame(header, content, footer, m.width, m.height)
}

func (m Model) viewItem() string {
	rec := m.current()
	contentWidth := min(m.width-8, 90)

	var b strings.Builder
	b.WriteString(components.NewProgressBar(m.index, len(m.exam.Items), contentWidth).View())
	b.WriteString("\n\n")
	b.WriteString(theme.Badge.Render(rec.Kind.Label()))
	b.WriteString(theme.Dimmed.Render(fmt.Sprintf("  %d pts", rec.Points)))
	b.WriteString("\n\n")
	b.WriteString(theme.Question.Width(contentWidth).Render(rec.Prompt))
	b.WriteString("\n\n")

	if m.usesChoice() {
		b.WriteString(m.choice.View())
	} else {
		b.WriteString(m.input.View())
	}

	switch m.phase {
	case phaseScoring:
		b.WriteString("\n" + theme.Hint.Render("Scoring..."))
	case phaseFeedback:
		b.WriteString("\n" + m.viewFeedback(contentWidth))
	}

	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

func (m Model) viewFeedback(width int) string {
	g := m.graded[len(m.graded)-1]
	style := theme.ScoreStyle(g.Result.Points, g.Result.MaxPoints)

	var b strings.Builder
	b.WriteString(style.Render(fmt.Sprintf("%s / %d", formatPoints(g.Result.Points), g.Result.MaxPoints)))
	b.WriteString(theme.Dimmed.Render("  (" + string(g.Result.Method) + ")"))
	b.WriteString("\n")
	if g.Result.Rationale != "" {
		b.WriteString(theme.Body.Width(width).Render(g.Result.Rationale) + "\n")
	}
	rec := m.current()
	if !rec.Kind.IsClosed() {
		b.WriteString(theme.Hint.Width(width).Render("Expected: "+rec.Answer.Text()) + "\n")
	}
	return b.String()
}

func (m Model) viewResults() string {
	sheet := m.Sheet()

	var b strings.Builder
	b.WriteString(theme.Title.Render("Results"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("Answered %d of %d items\n", len(sheet.Items), len(m.exam.Items)))
	b.WriteString(theme.ScoreStyle(sheet.Points, sheet.MaxPoints).
		Render(fmt.Sprintf("Score: %s / %d", formatPoints(sheet.Points), sheet.MaxPoints)))
	b.WriteString("\n\n")

	for i, g := range sheet.Items {
		b.WriteString(resultLine(i+1, g))
		b.WriteString("\n")
	}

	card := theme.Card.Width(min(m.width-8, 90)).Render(b.String())
	return lipgloss.NewStyle().Padding(1, 2).Render(card)
}

func resultLine(n int, g evaluate.Graded) string {
	mark := theme.Incorrect.Render("✗")
	if g.Result.Correct() {
		mark = theme.Correct.Render("✓")
	} else if g.Result.Points > 0 {
		mark = theme.Partial.Render("~")
	}
	return fmt.Sprintf("%s %2d. %-16s %s/%d", mark, n, g.Kind.Label(),
		formatPoints(g.Result.Points), g.Result.MaxPoints)
}


// formatPoints prints whole scores without a fraction.
func formatPoints(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
