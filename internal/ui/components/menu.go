package components

import (
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/ui/theme"
)

// MenuItem is one row of a Menu. Done rows stay selectable but render
// struck through.
type MenuItem struct {
	Label string
	Badge string
	Done  bool
}

// Menu is a vertical, scrollable list with a cursor.
type Menu struct {
	Items    []MenuItem
	Selected int
	// BadgeStyle styles the badge of row i.
	BadgeStyle func(i int) lipgloss.Style
}

func NewMenu(items []MenuItem) Menu {
	return Menu{Items: items}
}

// Update handles keyboard navigation. It reports nothing; callers read
// Selected on enter.
func (m Menu) Update(msg tea.Msg) (Menu, tea.Cmd) {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch kmsg.String() {
	case "up", "k":
		if m.Selected > 0 {
			m.Selected--
		}
	case "down", "j":
		if m.Selected < len(m.Items)-1 {
			m.Selected++
		}
	case "home", "g":
		m.Selected = 0
	case "end", "G":
		m.Selected = max(len(m.Items)-1, 0)
	}
	return m, nil
}

// View renders at most height rows, keeping the cursor visible.
func (m Menu) View(height int) string {
	if len(m.Items) == 0 {
		return ""
	}
	start := 0
	if height > 0 && m.Selected >= height {
		start = m.Selected - height + 1
	}
	end := len(m.Items)
	if height > 0 {
		end = min(start+height, len(m.Items))
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		it := m.Items[i]
		prefix := "    "
		style := theme.Unselected
		if it.Done {
			style = theme.Done
		}
		if i == m.Selected {
			prefix = "  ▸ "
			style = style.Foreground(theme.Primary).Bold(true)
		}
		line := style.Render(prefix + it.Label)
		if it.Badge != "" {
			badge := lipgloss.NewStyle()
			if m.BadgeStyle != nil {
				badge = m.BadgeStyle(i)
			}
			line += " " + badge.Render(it.Badge)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}
