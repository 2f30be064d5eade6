package screen

import (
	tea "charm.land/bubbletea/v2"

	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/ui/layout"
)

// Screen is one page of the terminal UI.
type Screen interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (Screen, tea.Cmd)
	// View renders the screen content (excluding header/footer).
	View(width, height int) string
	// Title is shown in the header.
	Title() string
}

// KeyHintProvider is an optional interface for custom footer hints.
type KeyHintProvider interface {
	KeyHints() []layout.KeyHint
}

// Resumer is implemented by screens that refresh when they become
// active again after the screen above them is popped.
type Resumer interface {
	Resume() tea.Cmd
}
