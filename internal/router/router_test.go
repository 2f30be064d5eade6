package router

import (
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/screen"
)

// stubScreen is a minimal screen for testing.
type stubScreen struct {
	title   string
	initRan bool
	resumed int
}

func (s *stubScreen) Init() tea.Cmd {
	s.initRan = true
	return nil
}
func (s *stubScreen) Update(tea.Msg) (screen.Screen, tea.Cmd) { return s, nil }
func (s *stubScreen) View(int, int) string                    { return s.title }
func (s *stubScreen) Title() string                           { return s.title }

type resumingScreen struct {
	stubScreen
}

type resumedMsg struct{}

func (s *resumingScreen) Resume() tea.Cmd {
	s.resumed++
	return func() tea.Msg { return resumedMsg{} }
}

func TestPush(t *testing.T) {
	s1 := &stubScreen{title: "first"}
	r := New(s1)

	s2 := &stubScreen{title: "second"}
	r.Push(s2)

	if r.Depth() != 2 {
		t.Errorf("expected depth 2, got %d", r.Depth())
	}
	if r.Active().Title() != "second" {
		t.Errorf("expected active 'second', got %q", r.Active().Title())
	}
	if !s2.initRan {
		t.Error("expected Init() to run on pushed screen")
	}
}

func TestPop(t *testing.T) {
	s1 := &stubScreen{title: "first"}
	r := New(s1)

	r.Push(&stubScreen{title: "second"})
	if cmd := r.Pop(); cmd != nil {
		t.Error("expected nil cmd for a screen without Resume")
	}

	if r.Depth() != 1 {
		t.Errorf("expected depth 1, got %d", r.Depth())
	}
	if r.Active().Title() != "first" {
		t.Errorf("expected active 'first', got %q", r.Active().Title())
	}
}

func TestPopResumesScreenBelow(t *testing.T) {
	base := &resumingScreen{stubScreen{title: "today"}}
	r := New(base)

	r.Push(&stubScreen{title: "answer"})
	cmd := r.Update(PopScreenMsg{})

	if base.resumed != 1 {
		t.Errorf("expected Resume to run once, got %d", base.resumed)
	}
	if cmd == nil {
		t.Fatal("expected Resume cmd")
	}
	if _, ok := cmd().(resumedMsg); !ok {
		t.Error("expected resumedMsg from Resume cmd")
	}
}

func TestPopNoopAtBottom(t *testing.T) {
	base := &resumingScreen{stubScreen{title: "today"}}
	r := New(base)

	r.Pop()

	if r.Depth() != 1 {
		t.Errorf("expected depth 1 after pop at bottom, got %d", r.Depth())
	}
	if base.resumed != 0 {
		t.Error("expected no Resume at bottom of stack")
	}
}

func TestReplaceScreenMsg(t *testing.T) {
	r := New(&stubScreen{title: "first"})
	r.Push(&stubScreen{title: "second"})

	s3 := &stubScreen{title: "third"}
	r.Update(ReplaceScreenMsg{Screen: s3})

	if r.Depth() != 2 {
		t.Errorf("expected depth 2, got %d", r.Depth())
	}
	if r.Active().Title() != "third" {
		t.Errorf("expected active 'third', got %q", r.Active().Title())
	}
	if !s3.initRan {
		t.Error("expected Init() to run via ReplaceScreenMsg")
	}
}

func TestViewRendersActive(t *testing.T) {
	r := New(&stubScreen{title: "first"})
	r.Push(&stubScreen{title: "second"})

	if got := r.View(80, 24); got != "second" {
		t.Errorf("expected 'second', got %q", got)
	}
}
