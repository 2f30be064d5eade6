// Package app hosts the root Bubble Tea model for the review session.
package app

import (
	"context"

	tea "charm.land/bubbletea/v2"

	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/review"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/router"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/scheduling"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/screen"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/screens/today"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/ui/layout"
)

// Options selects whose review to run and how the list starts out.
type Options struct {
	LearnerID   int64
	LearnerName string
	Filter      review.GateFilter
	Order       scheduling.SortOrder
}

// AppModel is the root Bubble Tea model.
type AppModel struct {
	router *router.Router
	status string
	width  int
	height int
}

// NewAppModel creates an AppModel starting on today's review list.
func NewAppModel(ctx context.Context, svc today.Reviewer, opts Options) AppModel {
	return AppModel{
		router: router.New(today.New(ctx, svc, opts.LearnerID, opts.Filter, opts.Order)),
		status: opts.LearnerName,
	}
}

func (m AppModel) Init() tea.Cmd {
	return m.router.Active().Init()
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			if m.router.Depth() > 1 {
				return m, func() tea.Msg { return router.PopScreenMsg{} }
			}
			return m, nil
		}
	}

	cmd := m.router.Update(msg)
	return m, cmd
}

func (m AppModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}
	if layout.IsTooSmall(m.width, m.height) {
		v.SetContent(layout.RenderMinSizeMessage(m.width, m.height))
		return v
	}

	active := m.router.Active()
	title := ""
	if active != nil {
		title = active.Title()
	}
	header := layout.RenderHeader(title, m.status, m.width)

	hints := []layout.KeyHint{
		{Key: "Esc", Description: "Back"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
	if p, ok := active.(screen.KeyHintProvider); ok {
		if h := p.KeyHints(); len(h) > 0 {
			hints = h
		}
	}
	footer := layout.RenderFooter(hints, m.width)

	content := m.router.View(m.width, layout.ContentHeight(header, footer, m.height))
	v.SetContent(layout.RenderFrame(header, content, footer, m.width, m.height))
	return v
}

// Run starts the Bubble Tea program and blocks until the learner quits
// or ctx is cancelled.
func Run(ctx context.Context, svc today.Reviewer, opts Options) error {
	p := tea.NewProgram(NewAppModel(ctx, svc, opts), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
