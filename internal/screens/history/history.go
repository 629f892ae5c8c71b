// Package history lists recorded experiments and challenges.
package history

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/vlab/internal/challenge"
	"github.com/abhisek/vlab/internal/osmosis"
	"github.com/abhisek/vlab/internal/phase"
	"github.com/abhisek/vlab/internal/router"
	"github.com/abhisek/vlab/internal/screen"
	"github.com/abhisek/vlab/internal/store"
	"github.com/abhisek/vlab/internal/ui/components"
	"github.com/abhisek/vlab/internal/ui/layout"
	"github.com/abhisek/vlab/internal/ui/theme"
)

// listLimit bounds each kind of run loaded.
const listLimit = 50

// entry is one row: exactly one of exp and chal is set.
type entry struct {
	at   time.Time
	exp  *store.ExperimentRun
	chal *store.ChallengeRun
}

type historyLoadedMsg struct {
	Entries []entry
	Best    []store.BestScore
	Err     error
}

// HistoryScreen displays past runs newest first.
type HistoryScreen struct {
	runs     store.RunRepo
	entries  []entry
	best     []store.BestScore
	selected int
	expanded map[int]bool
	loaded   bool
	errMsg   string
}

var _ screen.Screen = (*HistoryScreen)(nil)
var _ screen.KeyHintProvider = (*HistoryScreen)(nil)

// New creates a HistoryScreen reading from runs.
func New(runs store.RunRepo) *HistoryScreen {
	return &HistoryScreen{
		runs:     runs,
		expanded: make(map[int]bool),
	}
}

func (s *HistoryScreen) Init() tea.Cmd {
	runs := s.runs
	return func() tea.Msg {
		return load(context.Background(), runs)
	}
}

func load(ctx context.Context, runs store.RunRepo) historyLoadedMsg {
	exps, err := runs.ListExperiments(ctx, store.QueryOpts{Limit: listLimit})
	if err != nil {
		return historyLoadedMsg{Err: err}
	}
	chals, err := runs.ListChallenges(ctx, store.QueryOpts{Limit: listLimit})
	if err != nil {
		return historyLoadedMsg{Err: err}
	}
	best, err := runs.BestScores(ctx)
	if err != nil {
		return historyLoadedMsg{Err: err}
	}

	entries := make([]entry, 0, len(exps)+len(chals))
	for i := range exps {
		entries = append(entries, entry{at: exps[i].CreatedAt, exp: &exps[i]})
	}
	for i := range chals {
		entries = append(entries, entry{at: chals[i].CreatedAt, chal: &chals[i]})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].at.After(entries[j].at)
	})
	return historyLoadedMsg{Entries: entries, Best: best}
}

func (s *HistoryScreen) Title() string {
	return "History"
}

func (s *HistoryScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Details"},
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *HistoryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case historyLoadedMsg:
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
		} else {
			s.entries = msg.Entries
			s.best = msg.Best
		}
		s.loaded = true
		return s, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		case "up", "k":
			if s.selected > 0 {
				s.selected--
			}
		case "down", "j":
			if s.selected < len(s.entries)-1 {
				s.selected++
			}
		case "enter":
			s.expanded[s.selected] = !s.expanded[s.selected]
		}
	}
	return s, nil
}

func (s *HistoryScreen) View(width, height int) string {
	centered := lipgloss.NewStyle().Width(width).Align(lipgloss.Center)
	if s.errMsg != "" {
		return centered.Foreground(theme.Error).Render(fmt.Sprintf("\n\nError: %s", s.errMsg))
	}
	if !s.loaded {
		return centered.Foreground(theme.TextDim).Render("\n\n  Loading history...")
	}
	if len(s.entries) == 0 {
		return centered.Foreground(theme.TextDim).Italic(true).
			Render("\n\n  No runs yet. Finish an experiment or a challenge!")
	}

	var b strings.Builder
	b.WriteString("\n")
	if len(s.best) > 0 {
		parts := make([]string, 0, len(s.best))
		for _, bs := range s.best {
			d, _ := challenge.ParseDifficulty(bs.Difficulty)
			parts = append(parts, fmt.Sprintf("%s %d", d.DisplayName(), bs.Score))
		}
		b.WriteString("  " + theme.Label.Render("Best: ") +
			lipgloss.NewStyle().Foreground(theme.Accent).Render(strings.Join(parts, "   ")) + "\n\n")
	}

	// Keep the selection on screen.
	visible := max(1, height-6)
	start := 0
	if s.selected >= visible {
		start = s.selected - visible + 1
	}

	for i := start; i < len(s.entries); i++ {
		e := s.entries[i]
		prefix := "  "
		style := theme.Unselected
		if i == s.selected {
			prefix = "▸ "
			style = theme.Selected
		}
		b.WriteString(style.Render(prefix+e.at.Local().Format("Jan 02 15:04")+"  ") + summaryLine(e) + "\n")
		if s.expanded[i] {
			b.WriteString(details(e))
		}
	}

	return lipgloss.NewStyle().MaxHeight(height).Render(b.String())
}

func summaryLine(e entry) string {
	if r := e.exp; r != nil {
		a, _ := osmosis.ParseArchetype(r.Archetype)
		status := theme.Label.Render(fmt.Sprintf("step %d", r.CurrentStep+1))
		if r.Completed {
			status = theme.Correct.Render("complete")
		}
		label := phase.Label(r.FinalPhase)
		return lipgloss.NewStyle().Foreground(theme.Water).Render("EXP  ") +
			theme.Body.Render(fmt.Sprintf("%-24s %-10s ", a.DisplayName(), r.Solution)) +
			lipgloss.NewStyle().Foreground(components.PhaseColor(label)).Render(fmt.Sprintf("%-20s ", label.DisplayName())) +
			status
	}
	r := e.chal
	d, _ := challenge.ParseDifficulty(r.Difficulty)
	return lipgloss.NewStyle().Foreground(theme.Accent).Render("QUIZ ") +
		theme.Body.Render(fmt.Sprintf("%-24s %4d pts  %3.0f%%  ", d.DisplayName(), r.Score, r.Percent)) +
		theme.Label.Render(r.RankLabel)
}

func details(e entry) string {
	indent := "        "
	var lines []string
	if r := e.exp; r != nil {
		lines = []string{
			fmt.Sprintf("ticks %d   water %+.3f   size %.2f   observations %d", r.Ticks, r.WaterMovement, r.CellSize, r.Observations),
		}
		if r.Ruptured {
			lines = append(lines, "membrane ruptured")
		}
	} else {
		r := e.chal
		lines = []string{
			fmt.Sprintf("correct %d/%d   answered %d   best streak %d   score %d/%d", r.Correct, r.Total, r.Answered, r.BestStreak, r.Score, r.MaxPossible),
		}
		if r.TimedOut {
			lines = append(lines, "ran out of time")
		}
	}
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(theme.Hint.Render(indent+l) + "\n")
	}
	return b.String()
}
