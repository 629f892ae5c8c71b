package screen

import (
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/vlab/internal/ui/layout"
)

// Screen is one page of the terminal UI.
type Screen interface {
	// Init returns an initial command when the screen is first shown.
	Init() tea.Cmd

	// Update handles messages and returns the updated screen.
	Update(msg tea.Msg) (Screen, tea.Cmd)

	// View renders the content area, excluding header and footer.
	View(width, height int) string

	// Title returns the screen name for the header.
	Title() string
}

// KeyHintProvider is implemented by screens that supply their own footer
// hints.
type KeyHintProvider interface {
	KeyHints() []layout.KeyHint
}

// StatusProvider is implemented by screens that show a status on the right
// side of the header.
type StatusProvider interface {
	Status() string
}

// EscapeCapturer is implemented by screens that handle Esc themselves, for
// example while a text field has focus. The app only pops the screen when
// CapturesEscape returns false.
type EscapeCapturer interface {
	CapturesEscape() bool
}
