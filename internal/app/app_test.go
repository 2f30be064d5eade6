package app

import (
	"context"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/item"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/review"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/scheduling"
)

type stubReviewer struct {
	loads int
}

func (s *stubReviewer) GetTodayReview(context.Context, int64, string, scheduling.SortOrder) (scheduling.TodayReview, error) {
	s.loads++
	return scheduling.TodayReview{
		Dashboard: review.NewDashboard(1, 0),
		Items:     []scheduling.ReviewItem{{ItemID: 1, Type: item.TrueFalse, Question: "q", Gate: review.Gate1}},
	}, nil
}

func (s *stubReviewer) SubmitAnswer(context.Context, int64, int64, string) (scheduling.SubmitResult, error) {
	return scheduling.SubmitResult{}, nil
}

// drive feeds msg into the model and then every resulting message,
// depth first, until no command is left.
func drive(m AppModel, msg tea.Msg) AppModel {
	next, cmd := m.Update(msg)
	m = next.(AppModel)
	for cmd != nil {
		out := cmd()
		if out == nil {
			return m
		}
		next, cmd = m.Update(out)
		m = next.(AppModel)
	}
	return m
}

func TestEnterThenEscReturnsToList(t *testing.T) {
	svc := &stubReviewer{}
	m := NewAppModel(context.Background(), svc, Options{LearnerID: 1, LearnerName: "ada"})

	m = drive(m, m.Init()())
	if svc.loads != 1 {
		t.Fatalf("expected 1 load, got %d", svc.loads)
	}

	m = drive(m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if m.router.Depth() != 2 {
		t.Fatalf("expected answer screen on top, depth %d", m.router.Depth())
	}

	m = drive(m, tea.KeyPressMsg{Code: tea.KeyEscape})
	if m.router.Depth() != 1 {
		t.Errorf("expected depth 1 after esc, got %d", m.router.Depth())
	}
	if svc.loads != 2 {
		t.Errorf("expected list reload on resume, got %d loads", svc.loads)
	}
}

func TestEscAtRootIsNoop(t *testing.T) {
	m := NewAppModel(context.Background(), &stubReviewer{}, Options{LearnerID: 1})
	_, cmd := m.Update(tea.KeyPressMsg{Code: tea.KeyEscape})
	if cmd != nil {
		t.Error("expected no command for esc on the root screen")
	}
}

func TestCtrlCQuits(t *testing.T) {
	m := NewAppModel(context.Background(), &stubReviewer{}, Options{LearnerID: 1})
	_, cmd := m.Update(tea.KeyPressMsg{Code: 'c', Mod: tea.ModCtrl})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected QuitMsg")
	}
}

func TestViewUsesAltScreen(t *testing.T) {
	m := NewAppModel(context.Background(), &stubReviewer{}, Options{LearnerID: 1})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	v := next.(AppModel).View()
	if !v.AltScreen {
		t.Error("expected alt screen")
	}
	if v.Content == nil {
		t.Error("expected content once the window size is known")
	}
}
