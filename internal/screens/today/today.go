// Package today is the landing screen: today's dashboard and the list
// of items captured by the snapshot.
package today

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/review"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/router"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/scheduling"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/screen"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/screens/answer"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/ui/components"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/ui/layout"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/ui/theme"
)

// Reviewer is the part of the scheduling service the session needs.
type Reviewer interface {
	answer.Submitter
	GetTodayReview(ctx context.Context, learnerID int64, filter string, order scheduling.SortOrder) (scheduling.TodayReview, error)
}

// loadedMsg carries a refreshed TodayReview.
type loadedMsg struct {
	Review scheduling.TodayReview
	Err    error
}

var filterCycle = []review.GateFilter{review.FilterAll, review.FilterGate1, review.FilterGate2}

// TodayScreen implements screen.Screen for the daily review list.
type TodayScreen struct {
	ctx       context.Context
	svc       Reviewer
	learnerID int64
	filter    review.GateFilter
	order     scheduling.SortOrder

	loaded bool
	review scheduling.TodayReview
	menu   components.Menu
	errMsg string
}

var _ screen.Screen = (*TodayScreen)(nil)
var _ screen.KeyHintProvider = (*TodayScreen)(nil)
var _ screen.Resumer = (*TodayScreen)(nil)

func New(ctx context.Context, svc Reviewer, learnerID int64, filter review.GateFilter, order scheduling.SortOrder) *TodayScreen {
	if filter == "" {
		filter = review.FilterAll
	}
	if order == "" {
		order = scheduling.SortByItem
	}
	return &TodayScreen{ctx: ctx, svc: svc, learnerID: learnerID, filter: filter, order: order}
}

func (s *TodayScreen) Init() tea.Cmd {
	return s.load()
}

// Resume reloads the list after an answer screen closes.
func (s *TodayScreen) Resume() tea.Cmd {
	return s.load()
}

func (s *TodayScreen) Title() string {
	return "Today's Review"
}

func (s *TodayScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Answer"},
		{Key: "F", Description: "Filter"},
		{Key: "S", Description: "Sort"},
		{Key: "Q", Description: "Quit"},
	}
}

func (s *TodayScreen) load() tea.Cmd {
	ctx, svc, learnerID, filter, order := s.ctx, s.svc, s.learnerID, s.filter, s.order
	return func() tea.Msg {
		tr, err := svc.GetTodayReview(ctx, learnerID, string(filter), order)
		return loadedMsg{Review: tr, Err: err}
	}
}

func (s *TodayScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		s.handleLoaded(msg)
		return s, nil
	case tea.KeyMsg:
		return s.handleKey(msg)
	}
	return s, nil
}

func (s *TodayScreen) handleLoaded(msg loadedMsg) {
	if msg.Err != nil {
		s.errMsg = msg.Err.Error()
		return
	}
	// Keep the cursor on the same item across reloads.
	var current int64
	if sel := s.selected(); sel != nil {
		current = sel.ItemID
	}
	s.errMsg = ""
	s.loaded = true
	s.review = msg.Review

	items := make([]components.MenuItem, len(msg.Review.Items))
	selected := 0
	for i, it := range msg.Review.Items {
		items[i] = components.MenuItem{
			Label: fmt.Sprintf("#%-4d %s", it.ItemID, truncate(it.Question, 60)),
			Badge: string(it.Gate),
			Done:  it.Completed,
		}
		if it.ItemID == current {
			selected = i
		}
	}
	s.menu = components.NewMenu(items)
	s.menu.Selected = selected
	s.menu.BadgeStyle = func(i int) lipgloss.Style {
		return theme.Gate(s.review.Items[i].Gate)
	}
}

func (s *TodayScreen) selected() *scheduling.ReviewItem {
	if s.menu.Selected < 0 || s.menu.Selected >= len(s.review.Items) || len(s.menu.Items) == 0 {
		return nil
	}
	return &s.review.Items[s.menu.Selected]
}

func (s *TodayScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	switch msg.String() {
	case "q":
		return s, tea.Quit
	case "r":
		return s, s.load()
	case "f":
		s.filter = nextFilter(s.filter)
		return s, s.load()
	case "s":
		if s.order == scheduling.SortByItem {
			s.order = scheduling.SortIncompleteFirst
		} else {
			s.order = scheduling.SortByItem
		}
		return s, s.load()
	case "enter":
		it := s.selected()
		if it == nil {
			return s, nil
		}
		next := answer.New(s.ctx, s.svc, s.learnerID, *it)
		return s, func() tea.Msg { return router.PushScreenMsg{Screen: next} }
	}

	var cmd tea.Cmd
	s.menu, cmd = s.menu.Update(msg)
	return s, cmd
}

func nextFilter(f review.GateFilter) review.GateFilter {
	for i, c := range filterCycle {
		if c == f {
			return filterCycle[(i+1)%len(filterCycle)]
		}
	}
	return review.FilterAll
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
