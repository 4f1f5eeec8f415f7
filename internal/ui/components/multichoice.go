package components

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/examforge/internal/ui/theme"
)

// Choice is a selector over labeled options. Options are picked with the
// arrow keys and Enter, or directly with their label key.
type Choice struct {
	Labels    []string
	Options   []string
	Selected  int
	Submitted bool

	// Correct is the index revealed after scoring, or -1.
	Correct int
}

// NewChoice creates a selector. Labels are matched case-insensitively
// as hotkeys.
func NewChoice(labels, options []string) Choice {
	return Choice{Labels: labels, Options: options, Correct: -1}
}

// Update handles keyboard navigation and selection.
func (c Choice) Update(msg tea.Msg) (Choice, tea.Cmd) {
	if c.Submitted {
		return c, nil
	}
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return c, nil
	}

	key := kmsg.String()
	switch key {
	case "up", "k":
		if c.Selected > 0 {
			c.Selected--
		}
		return c, nil
	case "down", "j":
		if c.Selected < len(c.Options)-1 {
			c.Selected++
		}
		return c, nil
	case "enter":
		c.Submitted = true
		return c, nil
	}
	for i, l := range c.Labels {
		if strings.EqualFold(key, l) && i < len(c.Options) {
			c.Selected = i
			c.Submitted = true
		}
	}
	return c, nil
}

// Value returns the label of the selected option.
func (c Choice) Value() string {
	if c.Selected < len(c.Labels) {
		return c.Labels[c.Selected]
	}
	return ""
}

// View renders the options.
func (c Choice) View() string {
	var b strings.Builder
	for i, opt := range c.Options {
		prefix := "  "
		if i == c.Selected && !c.Submitted {
			prefix = "▸ "
		}
		line := fmt.Sprintf("%s%s)  %s", prefix, c.Labels[i], opt)

		style := theme.Unselected
		switch {
		case c.Submitted && i == c.Correct:
			style = theme.Correct
		case c.Submitted && i == c.Selected && c.Correct >= 0:
			style = theme.Incorrect
		case c.Submitted:
			style = theme.Dimmed
		case i == c.Selected:
			style = theme.Selected
		}
		b.WriteString(style.Render(line) + "\n")
	}
	return b.String()
}
