// Package bench is the lab bench screen: the live experiment with its
// controls, the step list, observations and hints.
package bench

import (
	"context"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/vlab/internal/experiment"
	"github.com/abhisek/vlab/internal/guidance"
	"github.com/abhisek/vlab/internal/lab"
	"github.com/abhisek/vlab/internal/osmosis"
	"github.com/abhisek/vlab/internal/router"
	"github.com/abhisek/vlab/internal/screen"
	"github.com/abhisek/vlab/internal/ui/components"
	"github.com/abhisek/vlab/internal/ui/layout"
)

// RefreshInterval is how often the screen polls the lab.
const RefreshInterval = 100 * time.Millisecond

// concentrationStep is the change per +/- keypress, in percent.
const concentrationStep = 5.0

// maxObservation bounds a typed observation.
const maxObservation = 200

// BenchScreen implements screen.Screen for the running experiment.
type BenchScreen struct {
	lab   *lab.Lab
	guide *guidance.Service

	snap     lab.Snapshot
	hint     *guidance.Hint
	hintStep experiment.Step
	waiting  bool

	input  components.TextInput
	errMsg string
}

var _ screen.Screen = (*BenchScreen)(nil)
var _ screen.KeyHintProvider = (*BenchScreen)(nil)
var _ screen.StatusProvider = (*BenchScreen)(nil)
var _ screen.EscapeCapturer = (*BenchScreen)(nil)

// New creates a bench bound to l. guide may be nil, which hides hints.
func New(l *lab.Lab, guide *guidance.Service) *BenchScreen {
	return &BenchScreen{
		lab:      l,
		guide:    guide,
		hintStep: -1,
		input:    components.NewTextInput("Observation:", "what do you see?", maxObservation),
	}
}

func (b *BenchScreen) Init() tea.Cmd {
	b.setSnapshot(b.lab.Snapshot())
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(RefreshInterval, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

func (b *BenchScreen) Title() string {
	return "Lab Bench"
}

func (b *BenchScreen) Status() string {
	exp := b.snap.Experiment
	state := "❚❚ paused"
	if exp.Running {
		state = "● running"
	}
	return state + "  t=" + itoa(exp.TimeElapsedTicks)
}

func (b *BenchScreen) CapturesEscape() bool {
	return b.input.Focused()
}

func (b *BenchScreen) KeyHints() []layout.KeyHint {
	if b.input.Focused() {
		return []layout.KeyHint{
			{Key: "Enter", Description: "Save"},
			{Key: "Esc", Description: "Cancel"},
		}
	}
	return []layout.KeyHint{
		{Key: "Space", Description: "Run/Pause"},
		{Key: "R", Description: "Reset"},
		{Key: "A/S", Description: "Cell/Solution"},
		{Key: "[ ] - +", Description: "Conc."},
		{Key: "←→ 1-6", Description: "Step"},
		{Key: "O", Description: "Observe"},
		{Key: "H", Description: "Hint"},
		{Key: "Esc", Description: "Back"},
	}
}

func (b *BenchScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case refreshMsg:
		b.setSnapshot(b.lab.Snapshot())
		b.consumeHint()
		return b, tick()

	case tea.KeyMsg:
		if b.input.Focused() {
			return b.handleInputKey(msg)
		}
		return b.handleKey(msg)
	}

	if b.input.Focused() {
		var cmd tea.Cmd
		b.input, cmd = b.input.Update(msg)
		return b, cmd
	}
	return b, nil
}

func (b *BenchScreen) handleInputKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	switch msg.String() {
	case "esc":
		b.input.Blur()
		return b, nil
	case "enter":
		text := strings.TrimSpace(b.input.Value())
		b.input.Blur()
		if text != "" {
			b.apply(lab.Intent{Type: lab.IntentAddObservation, Text: text})
		}
		return b, nil
	}
	var cmd tea.Cmd
	b.input, cmd = b.input.Update(msg)
	return b, cmd
}

func (b *BenchScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	exp := b.snap.Experiment
	conc := exp.Concentration

	switch key := msg.String(); key {
	case "esc":
		return b, func() tea.Msg { return router.PopScreenMsg{} }
	case "space":
		if exp.Running {
			b.apply(lab.Intent{Type: lab.IntentPause})
		} else {
			b.apply(lab.Intent{Type: lab.IntentStart})
		}
	case "r":
		b.apply(lab.Intent{Type: lab.IntentReset})
	case "a":
		b.apply(lab.Intent{Type: lab.IntentSetArchetype, Archetype: string(exp.Archetype.Next())})
	case "s":
		b.apply(lab.Intent{Type: lab.IntentSetSolution, Solution: string(nextSolution(exp.Solution))})
	case "+", "=":
		b.setConcentration(conc.Inside, conc.Outside+concentrationStep)
	case "-":
		b.setConcentration(conc.Inside, conc.Outside-concentrationStep)
	case "]":
		b.setConcentration(conc.Inside+concentrationStep, conc.Outside)
	case "[":
		b.setConcentration(conc.Inside-concentrationStep, conc.Outside)
	case "right", "n":
		b.apply(lab.Intent{Type: lab.IntentAdvanceStep})
	case "left", "p":
		b.apply(lab.Intent{Type: lab.IntentRetreatStep})
	case "1", "2", "3", "4", "5", "6":
		step := int(key[0] - '1')
		b.apply(lab.Intent{Type: lab.IntentGoToStep, Step: &step})
	case "o":
		return b, b.input.Focus()
	case "h":
		b.requestHint()
	}
	return b, nil
}

func (b *BenchScreen) setConcentration(inside, outside float64) {
	b.apply(lab.Intent{Type: lab.IntentSetConcentration, Inside: &inside, Outside: &outside})
}

func (b *BenchScreen) apply(in lab.Intent) {
	snap, err := b.lab.Apply(in)
	if err != nil {
		b.errMsg = err.Error()
		return
	}
	b.errMsg = ""
	b.setSnapshot(snap)
}

// setSnapshot keeps the newest snapshot and asks for a hint whenever the
// step changes.
func (b *BenchScreen) setSnapshot(s lab.Snapshot) {
	if s.Version < b.snap.Version {
		return
	}
	b.snap = s
	if s.Experiment.CurrentStep != b.hintStep {
		b.requestHint()
	}
}

func (b *BenchScreen) requestHint() {
	if b.guide == nil {
		return
	}
	b.hintStep = b.snap.Experiment.CurrentStep
	b.waiting = true
	b.guide.Request(context.Background(), b.lab.Guidance())
}

func (b *BenchScreen) consumeHint() {
	if b.guide == nil || !b.waiting {
		return
	}
	if h, ok := b.guide.Consume(); ok {
		b.hint = &h
		b.waiting = false
	}
}

func nextSolution(t osmosis.SolutionType) osmosis.SolutionType {
	switch t {
	case osmosis.Hypertonic:
		return osmosis.Hypotonic
	case osmosis.Hypotonic:
		return osmosis.Isotonic
	default:
		return osmosis.Hypertonic
	}
}
