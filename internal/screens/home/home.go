// Package home is the main menu.
package home

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/vlab/internal/challenge"
	"github.com/abhisek/vlab/internal/experiment"
	"github.com/abhisek/vlab/internal/guidance"
	"github.com/abhisek/vlab/internal/lab"
	"github.com/abhisek/vlab/internal/router"
	"github.com/abhisek/vlab/internal/screen"
	"github.com/abhisek/vlab/internal/screens/bench"
	challengescreen "github.com/abhisek/vlab/internal/screens/challenge"
	"github.com/abhisek/vlab/internal/screens/history"
	"github.com/abhisek/vlab/internal/store"
	"github.com/abhisek/vlab/internal/ui/components"
	"github.com/abhisek/vlab/internal/ui/theme"
)

// Deps are the services the home screen hands to the screens it opens.
// Guide and Runs may be nil; history is disabled without Runs.
type Deps struct {
	Lab   *lab.Lab
	Guide *guidance.Service
	Runs  store.RunRepo
}

type bestLoadedMsg struct {
	Best []store.BestScore
}

// HomeScreen is the main menu.
type HomeScreen struct {
	deps Deps
	menu components.Menu
	best []store.BestScore
}

var _ screen.Screen = (*HomeScreen)(nil)

// New creates a new HomeScreen.
func New(deps Deps) *HomeScreen {
	push := func(build func() screen.Screen) func() tea.Cmd {
		return func() tea.Cmd {
			s := build()
			return func() tea.Msg { return router.PushScreenMsg{Screen: s} }
		}
	}

	items := []components.MenuItem{
		{
			Label:  "LAB BENCH",
			Hint:   "Run the osmosis experiment step by step",
			Action: push(func() screen.Screen { return bench.New(deps.Lab, deps.Guide) }),
		},
		{
			Label:  "CHALLENGE",
			Hint:   "Timed quiz with speed and streak bonuses",
			Action: push(func() screen.Screen { return challengescreen.New(deps.Lab) }),
		},
		{
			Label:    "HISTORY",
			Hint:     "Past experiments and challenge scores",
			Disabled: deps.Runs == nil,
			Action:   push(func() screen.Screen { return history.New(deps.Runs) }),
		},
		{
			Label:  "QUIT",
			Action: func() tea.Cmd { return tea.Quit },
		},
	}

	return &HomeScreen{deps: deps, menu: components.NewMenu(items)}
}

func (h *HomeScreen) Init() tea.Cmd {
	runs := h.deps.Runs
	if runs == nil {
		return nil
	}
	return func() tea.Msg {
		best, _ := runs.BestScores(context.Background())
		return bestLoadedMsg{Best: best}
	}
}

func (h *HomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if m, ok := msg.(bestLoadedMsg); ok {
		h.best = m.Best
		return h, nil
	}
	var cmd tea.Cmd
	h.menu, cmd = h.menu.Update(msg)
	return h, cmd
}

func (h *HomeScreen) View(width, height int) string {
	sections := []string{
		theme.Title.Render("Virtual Osmosis Lab"),
		theme.Subtitle.Render("Solute, water and a membrane."),
		"",
		theme.Card.Render(h.renderBench()),
	}
	if line := h.renderBest(); line != "" {
		sections = append(sections, line)
	}
	sections = append(sections, "", h.menu.View())

	content := strings.Join(sections, "\n")
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}

// renderBench summarizes the experiment currently on the bench.
func (h *HomeScreen) renderBench() string {
	exp := h.deps.Lab.Snapshot().Experiment
	state := theme.Paused.Render("paused")
	if exp.Running {
		state = theme.Running.Render("running")
	}
	phaseStyle := lipgloss.NewStyle().Foreground(components.PhaseColor(exp.Phase))
	return fmt.Sprintf("%s in %s solution  %s\n%s  step %d/%d  t=%d",
		theme.Body.Render(exp.Archetype.DisplayName()),
		theme.Body.Render(string(exp.Solution)),
		state,
		phaseStyle.Render(exp.Phase.DisplayName()),
		int(exp.CurrentStep)+1, experiment.StepCount, exp.TimeElapsedTicks,
	)
}

func (h *HomeScreen) renderBest() string {
	if len(h.best) == 0 {
		return ""
	}
	parts := make([]string, 0, len(h.best))
	for _, b := range h.best {
		d, _ := challenge.ParseDifficulty(b.Difficulty)
		parts = append(parts, fmt.Sprintf("%s %d", d.DisplayName(), b.Score))
	}
	return theme.Label.Render("Best  ") + lipgloss.NewStyle().Foreground(theme.Accent).Render(strings.Join(parts, "  "))
}

func (h *HomeScreen) Title() string {
	return "Home"
}
