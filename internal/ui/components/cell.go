package components

import (
	"fmt"
	"image/color"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/vlab/internal/osmosis"
	"github.com/abhisek/vlab/internal/phase"
	"github.com/abhisek/vlab/internal/ui/theme"
)

// PhaseColor maps a phase to its display color.
func PhaseColor(l phase.Label) color.Color {
	switch l {
	case phase.Hemolysis, phase.SeverePlasmolysis:
		return theme.Error
	case phase.Crenation, phase.PlasmolysisOnset:
		return theme.Accent
	case phase.Turgid, phase.FlowIn:
		return theme.Water
	case phase.FlowOut:
		return theme.Solute
	default:
		return theme.Success
	}
}

// Cell draws the cell inside its beaker. Size is the relative cell size
// (1 is the starting size); Flow is the signed water movement of the last
// tick, positive into the cell.
type Cell struct {
	Archetype osmosis.Archetype
	Size      float64
	Flow      float64
	Phase     phase.Label
	Ruptured  bool
}

const (
	beakerWidth  = 27
	beakerHeight = 9
)

// View renders the beaker as a fixed-size block.
func (c Cell) View() string {
	// Radius in rows scales with size; columns are doubled for aspect.
	r := 1.0 + 2.0*c.Size
	r = min(max(r, 1), float64(beakerHeight)/2)

	body := lipgloss.NewStyle().Foreground(PhaseColor(c.Phase))
	wall := lipgloss.NewStyle().Foreground(theme.Membrane)
	water := lipgloss.NewStyle().Foreground(theme.Water)

	cy := float64(beakerHeight-1) / 2
	cx := float64(beakerWidth-1) / 2

	lines := make([]string, 0, beakerHeight+2)
	lines = append(lines, wall.Render("┌"+strings.Repeat("─", beakerWidth)+"┐"))
	for y := 0; y < beakerHeight; y++ {
		var row strings.Builder
		for x := 0; x < beakerWidth; x++ {
			dx := (float64(x) - cx) / 2
			dy := float64(y) - cy
			d := dx*dx + dy*dy
			switch {
			case c.Ruptured && d <= r*r && (x+y)%3 == 0:
				row.WriteString(body.Render("·"))
			case c.Ruptured:
				row.WriteString(water.Render(waterGlyph(x, y)))
			case d <= (r-0.6)*(r-0.6):
				row.WriteString(body.Render("●"))
			case d <= r*r:
				row.WriteString(c.membrane(wall))
			default:
				row.WriteString(water.Render(waterGlyph(x, y)))
			}
		}
		lines = append(lines, wall.Render("│")+row.String()+wall.Render("│"))
	}
	lines = append(lines, wall.Render("└"+strings.Repeat("─", beakerWidth)+"┘"))
	lines = append(lines, c.caption())
	return strings.Join(lines, "\n")
}

func (c Cell) membrane(wall lipgloss.Style) string {
	if c.Archetype.IsPlant() {
		return wall.Render("█")
	}
	return wall.Render("○")
}

func waterGlyph(x, y int) string {
	if (x*7+y*3)%11 == 0 {
		return "~"
	}
	return " "
}

func (c Cell) caption() string {
	arrow := "⇄ balanced"
	switch {
	case c.Flow > 0:
		arrow = "→● water in"
	case c.Flow < 0:
		arrow = "●→ water out"
	}
	return lipgloss.NewStyle().Foreground(theme.Water).Render(arrow) +
		theme.Label.Render(fmt.Sprintf("   size %.2f", c.Size))
}
