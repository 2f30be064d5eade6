package components

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/ui/theme"
)

// ChoiceList is a single-selection list of options. The correct option
// is unknown until the answer is graded, so only the chosen option is
// marked after SetResult.
type ChoiceList struct {
	Options   []string
	Selected  int
	Submitted bool
	correct   *bool
}

// NewChoiceList creates a choice list with the cursor on the first option.
func NewChoiceList(options []string) ChoiceList {
	return ChoiceList{Options: options}
}

// Update handles arrow keys, vim keys and number shortcuts. Enter
// locks the selection.
func (c ChoiceList) Update(msg tea.Msg) (ChoiceList, tea.Cmd) {
	if c.Submitted {
		return c, nil
	}
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return c, nil
	}

	switch key := kmsg.String(); key {
	case "up", "k":
		if c.Selected > 0 {
			c.Selected--
		}
	case "down", "j":
		if c.Selected < len(c.Options)-1 {
			c.Selected++
		}
	case "enter":
		if len(c.Options) > 0 {
			c.Submitted = true
		}
	default:
		if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
			if i := int(key[0] - '1'); i < len(c.Options) {
				c.Selected = i
			}
		}
	}
	return c, nil
}

// SetResult marks the submitted option as right or wrong.
func (c *ChoiceList) SetResult(correct bool) {
	c.correct = &correct
}

// View renders the options, numbered from 1.
func (c ChoiceList) View() string {
	var b strings.Builder
	for i, opt := range c.Options {
		prefix := "  "
		if i == c.Selected && !c.Submitted {
			prefix = "▸ "
		}
		line := fmt.Sprintf("%s%d)  %s", prefix, i+1, opt)

		style := theme.Unselected
		switch {
		case c.Submitted && i == c.Selected && c.correct != nil && *c.correct:
			style = theme.Correct
		case c.Submitted && i == c.Selected && c.correct != nil:
			style = theme.Incorrect
		case c.Submitted && i == c.Selected:
			style = theme.Selected
		case c.Submitted:
			style = lipgloss.NewStyle().Foreground(theme.TextDim)
		case i == c.Selected:
			style = theme.Selected
		}
		b.WriteString(style.Render(line) + "\n")
	}
	return b.String()
}
