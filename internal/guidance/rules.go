package guidance

import (
	"context"
	"fmt"

	"github.com/abhisek/vlab/internal/challenge"
	"github.com/abhisek/vlab/internal/experiment"
	"github.com/abhisek/vlab/internal/osmosis"
	"github.com/abhisek/vlab/internal/phase"
)

// RuleHinter answers from fixed per-step rules. It never fails.
type RuleHinter struct{}

func (RuleHinter) Hint(_ context.Context, v View) (Hint, error) {
	return ruleHint(v), nil
}

func ruleHint(v View) Hint {
	e := v.Experiment
	h := Hint{Step: e.CurrentStep, Title: e.CurrentStep.Title(), Source: SourceRules}

	switch e.CurrentStep {
	case experiment.StepSetup:
		h.Text = fmt.Sprintf("You are testing %s in a %s solution. Predict which way water will move before you start.",
			e.Archetype.DisplayName(), e.Solution)
		h.Suggestions = []string{
			"Compare the solute concentration inside and outside the cell",
			"Try a different specimen to compare plant and animal cells",
		}

	case experiment.StepObserving:
		if e.Ticks == 0 {
			h.Text = "Start the simulation and watch the cell for a few seconds."
			h.Suggestions = []string{"Press start"}
			break
		}
		h.Text = fmt.Sprintf("After %d ticks the cell shows: %s. %s",
			e.Ticks, e.Phase.DisplayName(), explainPhase(e.Phase))

	case experiment.StepRecording:
		if len(e.Observations) == 0 {
			h.Text = "Write down what you see: the cell size, the phase and which way water is moving."
			h.Suggestions = []string{"Add your first observation"}
			break
		}
		h.Text = fmt.Sprintf("You have %d observation(s). Note how the phase changes over time, not just its current value.",
			len(e.Observations))

	case experiment.StepMonitoring:
		h.Text = fmt.Sprintf("%s Water movement slows as the two sides approach the same concentration.",
			explainPhase(e.Phase))
		h.Suggestions = []string{"Record the tick at which movement becomes very small"}

	case experiment.StepSolutionSwitch:
		next := opposite(e.Solution)
		h.Text = fmt.Sprintf("Switch to a %s solution and see whether the change reverses.", next)
		if e.Ruptured {
			h.Text = "The red blood cell has burst. Hemolysis cannot be undone; reset to try the switch again."
		}
		h.Suggestions = []string{fmt.Sprintf("Set the solution to %s", next)}

	case experiment.StepAnalysis:
		h.Text = fmt.Sprintf("Explain why the %s ended up %s. Use the words solute, gradient and membrane.",
			e.Archetype.DisplayName(), e.Phase.DisplayName())
		h.Suggestions = challengeSuggestions(v.Challenges)
	}

	return h
}

func explainPhase(l phase.Label) string {
	switch l {
	case phase.PlasmolysisOnset:
		return "Water is leaving the cell and the membrane starts to pull away from the wall."
	case phase.SeverePlasmolysis:
		return "The cell has lost a lot of water; the membrane has shrunk well away from the wall."
	case phase.Turgid:
		return "Water has moved in and the cell wall is holding the pressure."
	case phase.Crenation:
		return "The red blood cell is losing water and shrivelling."
	case phase.Hemolysis:
		return "Too much water moved in and the cell burst."
	case phase.FlowIn:
		return "Net water flow is into the bag."
	case phase.FlowOut:
		return "Net water flow is out of the bag."
	case phase.NoNetFlow:
		return "Water crosses both ways at the same rate."
	default:
		return "The cell is close to its starting shape."
	}
}

func opposite(t osmosis.SolutionType) osmosis.SolutionType {
	if t == osmosis.Hypotonic {
		return osmosis.Hypertonic
	}
	return osmosis.Hypotonic
}

// challengeSuggestions recommends a quiz level from past results.
func challengeSuggestions(history []ChallengeSummary) []string {
	if len(history) == 0 {
		return []string{"Test yourself with a beginner challenge"}
	}
	last := history[len(history)-1]
	if last.Percent >= 80 {
		if next, ok := harder(last.Difficulty); ok {
			return []string{fmt.Sprintf("You scored %.0f%%. Try the %s challenge", last.Percent, next.DisplayName())}
		}
		return []string{"You have mastered the advanced challenge. Beat your best score"}
	}
	return []string{fmt.Sprintf("Retry the %s challenge to improve on %.0f%%", last.Difficulty.DisplayName(), last.Percent)}
}

func harder(d challenge.Difficulty) (challenge.Difficulty, bool) {
	all := challenge.AllDifficulties()
	for i, x := range all {
		if x == d && i+1 < len(all) {
			return all[i+1], true
		}
	}
	return "", false
}
