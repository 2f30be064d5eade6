// Package answer is the screen for answering one review item and
// showing the graded result.
package answer

import (
	"context"
	"errors"
	"strconv"

	tea "charm.land/bubbletea/v2"

	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/item"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/review"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/router"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/scheduling"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/screen"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/ui/components"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/ui/layout"
)

// Submitter records an answer.
type Submitter interface {
	SubmitAnswer(ctx context.Context, learnerID, itemID int64, raw string) (scheduling.SubmitResult, error)
}

type phase int

const (
	phaseAnswering phase = iota
	phaseSubmitting
	phaseFeedback
)

// submittedMsg carries the outcome of SubmitAnswer.
type submittedMsg struct {
	Result scheduling.SubmitResult
	Err    error
}

var trueFalseOptions = []string{"True", "False"}

// AnswerScreen implements screen.Screen for a single item.
type AnswerScreen struct {
	ctx       context.Context
	svc       Submitter
	learnerID int64
	item      scheduling.ReviewItem

	choices components.ChoiceList
	input   components.TextInput
	phase   phase
	result  *scheduling.SubmitResult
	errMsg  string
}

var _ screen.Screen = (*AnswerScreen)(nil)
var _ screen.KeyHintProvider = (*AnswerScreen)(nil)

func New(ctx context.Context, svc Submitter, learnerID int64, it scheduling.ReviewItem) *AnswerScreen {
	s := &AnswerScreen{ctx: ctx, svc: svc, learnerID: learnerID, item: it}
	switch it.Type {
	case item.SingleChoice:
		s.choices = components.NewChoiceList(it.Choices)
	case item.TrueFalse:
		s.choices = components.NewChoiceList(trueFalseOptions)
	default:
		s.input = components.NewTextInput("Type your answer...", 0)
	}
	return s
}

func (s *AnswerScreen) usesChoices() bool {
	return s.item.Type == item.SingleChoice || s.item.Type == item.TrueFalse
}

func (s *AnswerScreen) Init() tea.Cmd {
	if s.usesChoices() {
		return nil
	}
	return s.input.Init()
}

func (s *AnswerScreen) Title() string {
	if s.item.Topic != "" {
		return s.item.Topic
	}
	return "Item #" + strconv.FormatInt(s.item.ItemID, 10)
}

func (s *AnswerScreen) KeyHints() []layout.KeyHint {
	switch s.phase {
	case phaseSubmitting:
		return []layout.KeyHint{{Key: "…", Description: "Grading"}}
	case phaseFeedback:
		return []layout.KeyHint{{Key: "any key", Description: "Back to list"}}
	}
	if s.usesChoices() {
		return []layout.KeyHint{
			{Key: "↑↓/1-9", Description: "Choose"},
			{Key: "Enter", Description: "Submit"},
			{Key: "Esc", Description: "Back"},
		}
	}
	return []layout.KeyHint{
		{Key: "Enter", Description: "Submit"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *AnswerScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case submittedMsg:
		return s.handleSubmitted(msg)
	case tea.KeyMsg:
		return s.handleKey(msg)
	}

	if s.phase == phaseAnswering && !s.usesChoices() {
		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		return s, cmd
	}
	return s, nil
}

func (s *AnswerScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	switch s.phase {
	case phaseSubmitting:
		return s, nil
	case phaseFeedback:
		return s, func() tea.Msg { return router.PopScreenMsg{} }
	}

	if s.usesChoices() {
		var cmd tea.Cmd
		s.choices, cmd = s.choices.Update(msg)
		if s.choices.Submitted {
			return s, s.submit(s.rawChoice())
		}
		return s, cmd
	}

	if msg.String() == "enter" {
		if s.input.Value() == "" {
			s.errMsg = "Type an answer first."
			return s, nil
		}
		return s, s.submit(s.input.Value())
	}
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

// rawChoice encodes the selection the way the grader parses it: a
// zero-based index for single choice, true/false otherwise.
func (s *AnswerScreen) rawChoice() string {
	if s.item.Type == item.TrueFalse {
		return strconv.FormatBool(s.choices.Selected == 0)
	}
	return strconv.Itoa(s.choices.Selected)
}

func (s *AnswerScreen) submit(raw string) tea.Cmd {
	s.phase = phaseSubmitting
	s.errMsg = ""
	ctx, svc, learnerID, itemID := s.ctx, s.svc, s.learnerID, s.item.ItemID
	return func() tea.Msg {
		res, err := svc.SubmitAnswer(ctx, learnerID, itemID, raw)
		return submittedMsg{Result: res, Err: err}
	}
}

func (s *AnswerScreen) handleSubmitted(msg submittedMsg) (screen.Screen, tea.Cmd) {
	if msg.Err != nil {
		s.phase = phaseAnswering
		s.choices.Submitted = false
		if errors.Is(msg.Err, review.ErrInvalidAnswer) {
			s.errMsg = "That answer could not be read: " + msg.Err.Error()
		} else {
			s.errMsg = "Could not submit: " + msg.Err.Error()
		}
		return s, nil
	}

	res := msg.Result
	s.result = &res
	s.phase = phaseFeedback
	if s.usesChoices() {
		s.choices.SetResult(res.IsCorrect)
	} else {
		s.input.Submit(res.IsCorrect)
	}
	return s, nil
}
