package bench

import (
	"fmt"
	"strconv"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/vlab/internal/experiment"
	"github.com/abhisek/vlab/internal/ui/components"
	"github.com/abhisek/vlab/internal/ui/layout"
	"github.com/abhisek/vlab/internal/ui/theme"
)

// shownObservations is how many of the latest observations are listed.
const shownObservations = 4

func itoa(n int) string { return strconv.Itoa(n) }

func (b *BenchScreen) View(width, height int) string {
	left := b.renderSpecimen(width)
	right := b.renderProtocol(width)

	var body string
	if layout.IsCompactWidth(width) {
		body = lipgloss.JoinVertical(lipgloss.Left, left, "", right)
	} else {
		body = lipgloss.JoinHorizontal(lipgloss.Top, left, "    ", right)
	}

	var footer []string
	if b.input.Focused() {
		footer = append(footer, b.input.View())
	}
	if b.errMsg != "" {
		footer = append(footer, theme.Incorrect.Render("✗ "+b.errMsg))
	}
	if len(footer) > 0 {
		body += "\n\n" + strings.Join(footer, "\n")
	}

	return lipgloss.NewStyle().Padding(1, 2).MaxHeight(height).Render(body)
}

func (b *BenchScreen) renderSpecimen(width int) string {
	exp := b.snap.Experiment

	cell := components.Cell{
		Archetype: exp.Archetype,
		Size:      exp.CellSize,
		Flow:      exp.LastRate,
		Phase:     exp.Phase,
		Ruptured:  exp.Ruptured,
	}

	row := func(label, value string) string {
		return theme.Label.Render(fmt.Sprintf("%-10s", label)) + theme.Body.Render(value)
	}

	phaseStyle := lipgloss.NewStyle().Foreground(components.PhaseColor(exp.Phase)).Bold(true)

	lines := []string{
		cell.View(),
		"",
		row("Cell", exp.Archetype.DisplayName()),
		row("Solution", fmt.Sprintf("%s (preset %s)", exp.SolutionType, exp.Solution)),
		row("Inside", fmt.Sprintf("%.1f%%", exp.Concentration.Inside)),
		row("Outside", fmt.Sprintf("%.1f%%", exp.Concentration.Outside)),
		row("Gradient", fmt.Sprintf("%+.1f", exp.Gradient)),
		row("Water", fmt.Sprintf("%+.3f (rate %+.3f)", exp.WaterMovement, exp.LastRate)),
		theme.Label.Render(fmt.Sprintf("%-10s", "Phase")) + phaseStyle.Render(exp.Phase.DisplayName()),
	}

	barWidth := 29
	if width < 60 {
		barWidth = width - 6
	}
	// Size 2 is drawn as a full bar.
	lines = append(lines, components.NewProgressBar("Size", exp.CellSize/2, false, barWidth).
		WithColor(components.PhaseColor(exp.Phase)).View())

	return strings.Join(lines, "\n")
}

func (b *BenchScreen) renderProtocol(width int) string {
	exp := b.snap.Experiment
	done := make(map[experiment.Step]bool, len(exp.CompletedSteps))
	for _, s := range exp.CompletedSteps {
		done[s] = true
	}

	var sb strings.Builder
	sb.WriteString(theme.Title.Render("Protocol"))
	if exp.Completed {
		sb.WriteString("  " + theme.Correct.Render("complete"))
	}
	sb.WriteString("\n")

	for i := 0; i < experiment.StepCount; i++ {
		st := experiment.Step(i)
		mark := "  "
		style := theme.Unselected
		switch {
		case st == exp.CurrentStep:
			mark = "▸ "
			style = theme.Selected
		case done[st]:
			mark = "✓ "
			style = lipgloss.NewStyle().Foreground(theme.Success)
		}
		sb.WriteString(style.Render(fmt.Sprintf("%s%d. %s", mark, i+1, st.Title())))
		sb.WriteString("\n")
	}

	sb.WriteString("\n" + theme.Title.Render("Observations") + "\n")
	if len(exp.Observations) == 0 {
		sb.WriteString(theme.Hint.Render("none yet, press O to add one") + "\n")
	}
	start := max(0, len(exp.Observations)-shownObservations)
	for _, o := range exp.Observations[start:] {
		sb.WriteString(theme.Label.Render(fmt.Sprintf("t=%-4d ", o.Tick)) + theme.Body.Render(o.Text) + "\n")
	}

	sb.WriteString("\n" + theme.Title.Render("Hint") + "\n")
	textWidth := 44
	if layout.IsCompactWidth(width) {
		textWidth = width - 8
	}
	wrap := lipgloss.NewStyle().Width(textWidth)
	switch {
	case b.hint != nil:
		sb.WriteString(theme.Selected.Render(b.hint.Title) + "\n")
		sb.WriteString(wrap.Render(theme.Body.Render(b.hint.Text)) + "\n")
		for _, s := range b.hint.Suggestions {
			sb.WriteString(wrap.Render(theme.Hint.Render("• "+s)) + "\n")
		}
	case b.waiting:
		sb.WriteString(theme.Hint.Render("thinking...") + "\n")
	default:
		sb.WriteString(theme.Hint.Render("press H for a hint") + "\n")
	}

	return sb.String()
}
