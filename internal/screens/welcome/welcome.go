// Package welcome is the splash screen: a beaker fills while the cell in it
// swells, then the banner appears.
package welcome

import (
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/vlab/internal/router"
	"github.com/abhisek/vlab/internal/screen"
	"github.com/abhisek/vlab/internal/ui/theme"
)

const (
	tickInterval = 100 * time.Millisecond
	fillEnd      = 1000 * time.Millisecond
	bannerAt     = 1500 * time.Millisecond
	totalDur     = 3000 * time.Millisecond
)

const tagline = "Watch water cross the membrane."

// beakerRows is the inner height of the beaker.
const beakerRows = 5

// cellFrames grow from a shrunken to a swollen cell.
var cellFrames = []string{"·", "∘", "○", "◯", "●"}

type tickMsg time.Time

// WelcomeScreen shows a splash animation before switching to the home
// screen on the first keypress.
type WelcomeScreen struct {
	homeFactory  func() screen.Screen
	elapsed      time.Duration
	tickCount    int
	transitioned bool
}

var _ screen.Screen = (*WelcomeScreen)(nil)

// New creates a WelcomeScreen that will transition to the screen produced by homeFactory.
func New(homeFactory func() screen.Screen) *WelcomeScreen {
	return &WelcomeScreen{
		homeFactory: homeFactory,
	}
}

func (w *WelcomeScreen) Title() string {
	return ""
}

func (w *WelcomeScreen) Init() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (w *WelcomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg.(type) {
	case tickMsg:
		if w.elapsed < totalDur {
			w.elapsed += tickInterval
		}
		w.tickCount++
		return w, tea.Tick(tickInterval, func(t time.Time) tea.Msg {
			return tickMsg(t)
		})

	case tea.KeyPressMsg:
		return w, w.transition()
	}

	return w, nil
}

func (w *WelcomeScreen) transition() tea.Cmd {
	if w.transitioned {
		return nil
	}
	w.transitioned = true
	home := w.homeFactory()
	return func() tea.Msg {
		return router.ReplaceScreenMsg{Screen: home}
	}
}

// renderBeaker draws the beaker filled in proportion to the elapsed fill
// time, with the cell growing as the water rises.
func (w *WelcomeScreen) renderBeaker() string {
	frac := min(float64(w.elapsed)/float64(fillEnd), 1)
	filled := int(frac * beakerRows)
	cell := cellFrames[min(int(frac*float64(len(cellFrames)-1)), len(cellFrames)-1)]

	wall := lipgloss.NewStyle().Foreground(theme.Membrane)
	water := lipgloss.NewStyle().Foreground(theme.Water)
	body := lipgloss.NewStyle().Foreground(theme.Secondary).Bold(true)

	lines := []string{wall.Render("╷         ╷")}
	for row := 0; row < beakerRows; row++ {
		inner := strings.Repeat(" ", 9)
		if beakerRows-row <= filled {
			inner = water.Render("~ ~ ~ ~ ~")
			if row == beakerRows-2 {
				inner = water.Render("~ ~ ") + body.Render(cell) + water.Render(" ~ ~")
			}
		}
		lines = append(lines, wall.Render("│")+inner+wall.Render("│"))
	}
	lines = append(lines, wall.Render("╰─────────╯"))
	return strings.Join(lines, "\n")
}

func (w *WelcomeScreen) View(width, height int) string {
	sections := []string{w.renderBeaker()}

	if w.elapsed >= bannerAt {
		sections = append(sections,
			"",
			RenderBanner(width),
			"",
			lipgloss.NewStyle().Foreground(theme.Text).Bold(true).Render(tagline),
			"",
			lipgloss.NewStyle().Foreground(theme.TextDim).Italic(true).Render("press any key to continue"),
		)
	}

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, strings.Join(sections, "\n"))
}
