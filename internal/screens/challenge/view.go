package challenge

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/vlab/internal/ui/components"
	"github.com/abhisek/vlab/internal/ui/theme"
)

// lowTime is when the countdown turns red, in seconds.
const lowTime = 10

func (c *ChallengeScreen) View(width, height int) string {
	if c.session == nil {
		return c.renderPicker(width, height)
	}
	return c.renderQuestion(width, height)
}

func (c *ChallengeScreen) renderPicker(width, height int) string {
	var b strings.Builder
	b.WriteString(theme.Title.Render("Osmosis Challenge"))
	b.WriteString("\n")
	b.WriteString(theme.Subtitle.Render("Answer fast for a speed bonus. Keep a streak for extra points."))
	b.WriteString("\n\n")
	if len(c.infos) == 0 {
		b.WriteString(theme.Hint.Render("No question pools are loaded."))
	} else {
		b.WriteString(c.picker.View())
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, b.String())
}

func (c *ChallengeScreen) renderQuestion(width, height int) string {
	s := c.session
	var b strings.Builder

	progress := theme.Label.Render(fmt.Sprintf("Question %d of %d", min(s.CurrentIndex+1, len(s.Questions)), len(s.Questions)))
	b.WriteString(progress + "\n")

	frac := 0.0
	if s.TimeLimitSeconds > 0 {
		frac = float64(s.TimeLeftSeconds) / float64(s.TimeLimitSeconds)
	}
	bar := components.NewProgressBar("Time", frac, false, min(width-8, 60))
	if s.TimeLeftSeconds <= lowTime {
		bar = bar.WithColor(theme.Error)
	}
	b.WriteString(bar.View() + "  " + theme.Body.Render(clockText(s.TimeLeftSeconds)) + "\n\n")

	b.WriteString(lipgloss.NewStyle().Width(min(width-8, 76)).Render(c.mc.View()))

	if s.AwaitingNext && s.LastResult != nil {
		r := s.LastResult
		b.WriteString("\n")
		if r.Correct {
			b.WriteString(theme.Correct.Render(fmt.Sprintf("✓ Correct! +%d", r.Points)))
			if r.Award.SpeedBonus > 0 {
				b.WriteString(theme.Label.Render(fmt.Sprintf("  (speed +%d)", r.Award.SpeedBonus)))
			}
			if r.Award.StreakBonus > 0 {
				b.WriteString(theme.Label.Render(fmt.Sprintf("  (streak +%d)", r.Award.StreakBonus)))
			}
		} else {
			b.WriteString(theme.Incorrect.Render("✗ Not quite."))
		}
		b.WriteString("\n")
		if q, ok := s.Current(); ok && q.Explanation != "" {
			b.WriteString(lipgloss.NewStyle().Width(min(width-8, 76)).Render(theme.Hint.Render(q.Explanation)))
			b.WriteString("\n")
		}
	}

	return lipgloss.NewStyle().Padding(1, 4).MaxHeight(height).Render(b.String())
}
