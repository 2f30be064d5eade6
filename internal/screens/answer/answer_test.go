package answer

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/item"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/review"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/router"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/scheduling"
)

type fakeSubmitter struct {
	raws   []string
	result scheduling.SubmitResult
	err    error
}

func (f *fakeSubmitter) SubmitAnswer(_ context.Context, _, _ int64, raw string) (scheduling.SubmitResult, error) {
	f.raws = append(f.raws, raw)
	return f.result, f.err
}

func keyPress(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func specialKey(code rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: code}
}

func movedToGate2() scheduling.SubmitResult {
	g := review.Gate2
	n := 1
	next := civil.Date{Year: 2025, Month: time.January, Day: 8}
	return scheduling.SubmitResult{
		AttemptID:           "a-1",
		IsCorrect:           true,
		Explanation:         "Because forgetting is exponential.",
		Gate:                &g,
		AttemptCount:        &n,
		NextReviewDate:      &next,
		IsFirstAttemptToday: true,
		StateChanged:        true,
	}
}

// run executes cmd and feeds its message back into the screen.
func run(t *testing.T, s *AnswerScreen, cmd tea.Cmd) *AnswerScreen {
	t.Helper()
	require.NotNil(t, cmd)
	scr, _ := s.Update(cmd())
	return scr.(*AnswerScreen)
}

func TestSingleChoiceSubmitsZeroBasedIndex(t *testing.T) {
	svc := &fakeSubmitter{result: movedToGate2()}
	s := New(context.Background(), svc, 1, scheduling.ReviewItem{
		ItemID: 7, Type: item.SingleChoice, Question: "Who?", Choices: []string{"Wundt", "Ebbinghaus", "James"}, Gate: review.Gate1,
	})

	s.Update(keyPress('2'))
	_, cmd := s.Update(specialKey(tea.KeyEnter))
	assert.Equal(t, phaseSubmitting, s.phase)

	s = run(t, s, cmd)
	assert.Equal(t, []string{"1"}, svc.raws)
	assert.Equal(t, phaseFeedback, s.phase)

	view := s.View(80, 30)
	assert.Contains(t, view, "Correct!")
	assert.Contains(t, view, "GATE_2")
	assert.Contains(t, view, "2025-01-08")
	assert.Contains(t, view, "forgetting is exponential")
}

func TestTrueFalseSubmitsBool(t *testing.T) {
	svc := &fakeSubmitter{result: scheduling.SubmitResult{IsCorrect: false}}
	s := New(context.Background(), svc, 1, scheduling.ReviewItem{ItemID: 3, Type: item.TrueFalse, Question: "Sky is green?"})

	s.Update(specialKey(tea.KeyDown))
	_, cmd := s.Update(specialKey(tea.KeyEnter))
	s = run(t, s, cmd)

	assert.Equal(t, []string{"false"}, svc.raws)
	view := s.View(80, 30)
	assert.Contains(t, view, "Not quite.")
	assert.Contains(t, view, "not in your review schedule")
}

func TestTextAnswer(t *testing.T) {
	svc := &fakeSubmitter{result: scheduling.SubmitResult{IsCorrect: true, Feedback: &review.Feedback{Text: "Good recall.", MissingKeywords: []string{"decay"}, Graded: true}}}
	s := New(context.Background(), svc, 1, scheduling.ReviewItem{ItemID: 4, Type: item.FreeText, Question: "Explain the curve."})

	_, cmd := s.Update(specialKey(tea.KeyEnter))
	assert.Nil(t, cmd, "empty answers are not submitted")
	assert.NotEmpty(t, s.errMsg)

	s.input.Model.SetValue("memory fades over time")
	_, cmd = s.Update(specialKey(tea.KeyEnter))
	s = run(t, s, cmd)

	assert.Equal(t, []string{"memory fades over time"}, svc.raws)
	view := s.View(80, 30)
	assert.Contains(t, view, "Good recall.")
	assert.Contains(t, view, "decay")
}

func TestSubmitErrorUnlocksInput(t *testing.T) {
	svc := &fakeSubmitter{err: fmt.Errorf("%w: choice 9 out of range", review.ErrInvalidAnswer)}
	s := New(context.Background(), svc, 1, scheduling.ReviewItem{ItemID: 7, Type: item.SingleChoice, Choices: []string{"a", "b"}})

	_, cmd := s.Update(specialKey(tea.KeyEnter))
	s = run(t, s, cmd)

	assert.Equal(t, phaseAnswering, s.phase)
	assert.False(t, s.choices.Submitted)
	assert.True(t, strings.HasPrefix(s.errMsg, "That answer could not be read"))

	// Can answer again.
	_, cmd = s.Update(specialKey(tea.KeyEnter))
	assert.NotNil(t, cmd)
}

func TestRepeatAttemptLeavesScheduleNote(t *testing.T) {
	res := movedToGate2()
	res.IsFirstAttemptToday = false
	res.StateChanged = false
	svc := &fakeSubmitter{result: res}
	s := New(context.Background(), svc, 1, scheduling.ReviewItem{ItemID: 7, Type: item.TrueFalse})

	_, cmd := s.Update(specialKey(tea.KeyEnter))
	s = run(t, s, cmd)

	assert.Contains(t, s.View(80, 30), "Already answered today")
}

func TestFeedbackAnyKeyPops(t *testing.T) {
	svc := &fakeSubmitter{result: movedToGate2()}
	s := New(context.Background(), svc, 1, scheduling.ReviewItem{ItemID: 7, Type: item.TrueFalse})

	_, cmd := s.Update(specialKey(tea.KeyEnter))
	s = run(t, s, cmd)

	_, cmd = s.Update(keyPress('x'))
	require.NotNil(t, cmd)
	_, ok := cmd().(router.PopScreenMsg)
	assert.True(t, ok, "expected PopScreenMsg")
}

func TestKeysIgnoredWhileSubmitting(t *testing.T) {
	svc := &fakeSubmitter{result: movedToGate2()}
	s := New(context.Background(), svc, 1, scheduling.ReviewItem{ItemID: 7, Type: item.TrueFalse})

	s.Update(specialKey(tea.KeyEnter))
	_, cmd := s.Update(specialKey(tea.KeyEnter))
	assert.Nil(t, cmd)
	assert.Empty(t, svc.raws, "submit runs only when the cmd executes")
}
