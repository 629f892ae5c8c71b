package components

import (
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/vlab/internal/ui/theme"
)

// TextInput wraps bubbles/textinput with lab styling. It starts blurred;
// Focus opens it for typing.
type TextInput struct {
	Model textinput.Model
	Label string
}

// NewTextInput creates a blurred input limited to maxLen characters.
func NewTextInput(label, placeholder string, maxLen int) TextInput {
	ti := textinput.New()
	ti.Placeholder = placeholder
	if maxLen > 0 {
		ti.CharLimit = maxLen
	}
	return TextInput{Model: ti, Label: label}
}

// Focus opens the input and returns the cursor blink command.
func (t *TextInput) Focus() tea.Cmd {
	return t.Model.Focus()
}

// Blur closes the input and clears it.
func (t *TextInput) Blur() {
	t.Model.Blur()
	t.Model.Reset()
}

// Focused reports whether the input receives keys.
func (t TextInput) Focused() bool {
	return t.Model.Focused()
}

// Update forwards msg to the wrapped model while focused.
func (t TextInput) Update(msg tea.Msg) (TextInput, tea.Cmd) {
	if !t.Model.Focused() {
		return t, nil
	}
	var cmd tea.Cmd
	t.Model, cmd = t.Model.Update(msg)
	return t, cmd
}

// View renders the label and the field.
func (t TextInput) View() string {
	label := ""
	if t.Label != "" {
		label = lipgloss.NewStyle().Foreground(theme.Accent).Bold(true).Render(t.Label) + " "
	}
	return label + t.Model.View()
}

// Value returns the current text.
func (t TextInput) Value() string {
	return t.Model.Value()
}
