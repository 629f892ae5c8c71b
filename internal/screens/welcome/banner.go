package welcome

import (
	"charm.land/lipgloss/v2"

	"github.com/abhisek/vlab/internal/ui/theme"
)

const bannerArt = `
 ██╗   ██╗ ██╗       █████╗  ██████╗
 ██║   ██║ ██║      ██╔══██╗ ██╔══██╗
 ██║   ██║ ██║      ███████║ ██████╔╝
 ╚██╗ ██╔╝ ██║      ██╔══██║ ██╔══██╗
  ╚████╔╝  ███████╗ ██║  ██║ ██████╔╝
   ╚═══╝   ╚══════╝ ╚═╝  ╚═╝ ╚═════╝`

const bannerCompact = "V L A B"

// RenderBanner returns the banner in the primary color, or a one-line
// fallback below 40 columns.
func RenderBanner(width int) string {
	style := lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true)

	if width < 40 {
		return style.Render(bannerCompact)
	}
	return style.Render(bannerArt)
}
