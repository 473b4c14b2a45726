// Package screen defines what the router needs from a TUI screen.
package screen

import (
	tea "charm.land/bubbletea/v2"

	"github.com/readkode/readkode/internal/ui/layout"
)

// Screen is one full-window view in the router's stack.
type Screen interface {
	Init() tea.Cmd

	// Update handles messages and returns updated screen + command.
	Update(msg tea.Msg) (Screen, tea.Cmd)

	// View renders the screen content (excluding header/footer).
	View(width, height int) string

	Title() string
}

// KeyHintProvider is implemented by screens with their own footer hints.
type KeyHintProvider interface {
	KeyHints() []layout.KeyHint
}

// ResumedMsg is delivered to a screen when the one above it is popped.
// Screens showing progress reload it here.
type ResumedMsg struct{}

// BackHandler is implemented by screens that handle Esc themselves, e.g.
// to confirm before leaving.
type BackHandler interface {
	HandlesBack() bool
}
