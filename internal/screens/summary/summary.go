// Package summary shows the results of a finished challenge.
package summary

import (
	"fmt"
	"image/color"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/vlab/internal/challenge"
	"github.com/abhisek/vlab/internal/router"
	"github.com/abhisek/vlab/internal/screen"
	"github.com/abhisek/vlab/internal/ui/layout"
	"github.com/abhisek/vlab/internal/ui/theme"
)

// SummaryScreen displays a challenge's score, rank and answers.
type SummaryScreen struct {
	session *challenge.Session
	again   func() screen.Screen
}

var _ screen.Screen = (*SummaryScreen)(nil)
var _ screen.KeyHintProvider = (*SummaryScreen)(nil)

// New creates a results screen for s. again builds the screen Enter
// switches to; when nil Enter goes back like Esc.
func New(s *challenge.Session, again func() screen.Screen) *SummaryScreen {
	return &SummaryScreen{session: s, again: again}
}

func (s *SummaryScreen) Init() tea.Cmd {
	return nil
}

func (s *SummaryScreen) Title() string {
	return "Challenge Results"
}

func (s *SummaryScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Play again"},
		{Key: "Esc", Description: "Home"},
	}
}

func (s *SummaryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if kmsg, ok := msg.(tea.KeyMsg); ok {
		switch kmsg.String() {
		case "enter":
			if s.again != nil {
				next := s.again()
				return s, func() tea.Msg { return router.ReplaceScreenMsg{Screen: next} }
			}
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		case "esc":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		}
	}
	return s, nil
}

func (s *SummaryScreen) View(width, height int) string {
	sess := s.session
	if sess == nil {
		return ""
	}
	rank := sess.Rank()
	center := func(st lipgloss.Style, text string) string {
		return st.Width(width).Align(lipgloss.Center).Render(text)
	}

	var b strings.Builder

	heading := "Challenge complete!"
	if sess.TimedOut {
		heading = "Time's up!"
	}
	b.WriteString(center(lipgloss.NewStyle().Foreground(theme.Primary).Bold(true), heading))
	b.WriteString("\n\n")

	b.WriteString(center(lipgloss.NewStyle().Foreground(rankColor(rank.Tier)).Bold(true), rank.Label))
	b.WriteString("\n")
	b.WriteString(center(lipgloss.NewStyle().Foreground(theme.Text), fmt.Sprintf(
		"Score %d / %d (%.0f%%)      Correct %d / %d      Best streak %d",
		sess.Score, rank.MaxPossible, rank.Percent, sess.Correct(), len(sess.Questions), sess.BestStreak)))
	b.WriteString("\n\n")

	divider := lipgloss.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", min(width-8, 60)))
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, theme.Label.Render("Answers")))
	b.WriteString("\n")
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, divider))
	b.WriteString("\n")

	prompts := make(map[string]string, len(sess.Questions))
	for _, q := range sess.Questions {
		prompts[q.ID] = q.Prompt
	}
	promptWidth := min(width-24, 50)
	for _, a := range sess.Answers {
		mark, style := "✓", theme.Correct
		if !a.Correct {
			mark, style = "✗", theme.Incorrect
		}
		line := fmt.Sprintf("%s %-*s %+4d  %4.1fs", mark, promptWidth, truncate(prompts[a.QuestionID], promptWidth), a.Points, a.Elapsed.Seconds())
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, style.Render(line)))
		b.WriteString("\n")
	}
	if skipped := len(sess.Questions) - len(sess.Answers); skipped > 0 {
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center,
			theme.Hint.Render(fmt.Sprintf("%d unanswered", skipped))))
		b.WriteString("\n")
	}

	return lipgloss.NewStyle().MaxHeight(height).Render(b.String())
}

// rankColor returns the theme color for a rank tier, 0 being best.
func rankColor(tier int) color.Color {
	switch tier {
	case 0:
		return theme.Accent
	case 1:
		return theme.Primary
	case 2:
		return theme.Secondary
	case 3:
		return theme.Text
	default:
		return theme.TextDim
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 1 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
