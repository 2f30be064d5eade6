package today

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/review"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/ui/components"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/ui/theme"
)

func (s *TodayScreen) View(width, height int) string {
	if s.errMsg != "" {
		return lipgloss.NewStyle().Padding(1, 2).Render(
			theme.Incorrect.Render("Could not load today's review") + "\n\n" +
				theme.Body.Render(s.errMsg) + "\n\n" +
				theme.Hint.Render("Press R to retry."))
	}
	if !s.loaded {
		return lipgloss.NewStyle().Padding(1, 2).Render(theme.Hint.Render("Loading..."))
	}

	dash := RenderDashboard(s.review.Dashboard, width-4)
	status := theme.Hint.Render(fmt.Sprintf("%s · filter %s · sort %s", s.review.Date, s.filter, s.order))

	var body string
	switch {
	case len(s.review.Items) == 0 && s.filter != review.FilterAll:
		body = theme.Hint.Render("No items in this gate today.")
	case len(s.review.Items) == 0:
		body = theme.Hint.Render("Nothing to review today.")
	default:
		listHeight := height - lipgloss.Height(dash) - 4
		body = s.menu.View(max(listHeight, 3))
	}

	return lipgloss.NewStyle().Padding(0, 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, dash, status, "", body))
}

// RenderDashboard renders the counters and a progress bar in a card.
func RenderDashboard(d review.Dashboard, width int) string {
	stat := func(label string, n int) string {
		return theme.Title.Render(fmt.Sprintf("%d", n)) + " " + theme.Hint.Render(label)
	}
	counts := strings.Join([]string{
		stat("total", d.TotalCount),
		stat("done", d.CompletedCount),
		stat("left", d.IncompletedCount),
	}, "    ")

	inner := max(width-8, 10)
	bar := components.NewProgressBar("Progress", d.ProgressRate, true, inner).View()

	title := theme.Title.Render("Today")
	if d.TotalCount > 0 && d.IncompletedCount == 0 {
		title += "  " + theme.Correct.Render("All done!")
	}
	return theme.Card.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, title, counts, bar))
}
