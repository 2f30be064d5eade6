package answer

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/ui/theme"
)

func (s *AnswerScreen) View(width, height int) string {
	var b strings.Builder

	b.WriteString(theme.Gate(s.item.Gate).Render(string(s.item.Gate)))
	b.WriteString(theme.Hint.Render(" " + string(s.item.Type)))
	b.WriteString("\n\n")

	question := lipgloss.NewStyle().
		Foreground(theme.Text).
		Bold(true).
		Width(max(width-4, 20)).
		Render(s.item.Question)
	b.WriteString(question + "\n\n")

	if s.usesChoices() {
		b.WriteString(s.choices.View())
	} else {
		b.WriteString(s.input.View() + "\n")
	}

	if s.errMsg != "" {
		b.WriteString("\n" + theme.Incorrect.Render(s.errMsg) + "\n")
	}
	if s.phase == phaseSubmitting {
		b.WriteString("\n" + theme.Hint.Render("Grading...") + "\n")
	}
	if s.phase == phaseFeedback && s.result != nil {
		b.WriteString("\n" + s.renderFeedback(width))
	}

	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

func (s *AnswerScreen) renderFeedback(width int) string {
	res := s.result
	var b strings.Builder

	if res.IsCorrect {
		b.WriteString(theme.Correct.Render("Correct!"))
	} else {
		b.WriteString(theme.Incorrect.Render("Not quite."))
	}
	b.WriteString("\n")

	if res.Explanation != "" {
		b.WriteString("\n" + theme.Body.Render(res.Explanation) + "\n")
	}
	if fb := res.Feedback; fb != nil {
		if fb.Text != "" {
			b.WriteString("\n" + theme.Body.Render(fb.Text) + "\n")
		}
		if len(fb.MissingKeywords) > 0 {
			b.WriteString(theme.Hint.Render("Missing: "+strings.Join(fb.MissingKeywords, ", ")) + "\n")
		}
	}

	b.WriteString("\n")
	switch {
	case res.Gate == nil:
		b.WriteString(theme.Hint.Render("This item is not in your review schedule."))
	case !res.IsFirstAttemptToday:
		b.WriteString(theme.Hint.Render("Already answered today, the schedule is unchanged."))
	default:
		b.WriteString("Gate ")
		b.WriteString(theme.Gate(*res.Gate).Render(string(*res.Gate)))
		if res.NextReviewDate != nil {
			b.WriteString(fmt.Sprintf("  next review %s", res.NextReviewDate))
		} else {
			b.WriteString("  no further reviews")
		}
	}

	return theme.Card.Width(max(width-6, 20)).Render(b.String())
}
