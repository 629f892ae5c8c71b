package guidance

import (
	"fmt"
	"strings"
)

const hintSystemPrompt = `You are a lab assistant in a virtual osmosis lab for secondary-school students. Give short, concrete hints about the step the student is on. Do not give away the final analysis; ask the student to reason about solute concentration, the water gradient and the membrane.`

// maxPromptObservations bounds how much of the observation log is sent.
const maxPromptObservations = 5

func buildHintUserMessage(v View) string {
	e := v.Experiment
	var b strings.Builder

	fmt.Fprintf(&b, "Specimen: %s\n", e.Archetype.DisplayName())
	fmt.Fprintf(&b, "Solution: %s\n", e.Solution)
	fmt.Fprintf(&b, "Current step: %d of 6 (%s)\n", int(e.CurrentStep)+1, e.CurrentStep.Title())

	done := make([]string, 0, len(e.CompletedSteps))
	for _, s := range e.CompletedSteps {
		done = append(done, s.String())
	}
	if len(done) == 0 {
		done = append(done, "none")
	}
	fmt.Fprintf(&b, "Completed steps: %s\n", strings.Join(done, ", "))
	fmt.Fprintf(&b, "Ticks elapsed: %d\n", e.Ticks)
	fmt.Fprintf(&b, "Phase: %s\n", e.Phase.DisplayName())
	if e.Ruptured {
		b.WriteString("The cell has ruptured.\n")
	}

	b.WriteString("\nObservations:\n")
	obs := e.Observations
	if len(obs) > maxPromptObservations {
		obs = obs[len(obs)-maxPromptObservations:]
	}
	if len(obs) == 0 {
		b.WriteString("None yet\n")
	}
	for _, o := range obs {
		fmt.Fprintf(&b, "- tick %d: %s\n", o.Tick, o.Text)
	}

	if len(v.Challenges) > 0 {
		b.WriteString("\nRecent challenge results:\n")
		for _, c := range v.Challenges {
			fmt.Fprintf(&b, "- %s: %d/%d correct, %.0f%% (%s)\n",
				c.Difficulty, c.Correct, c.Total, c.Percent, c.Rank)
		}
	}

	b.WriteString(`
Instructions:
1. Write one to three sentences about what the student should do or notice in the current step.
2. Refer to their observations if they have any.
3. Suggest at most three short next actions.
4. Plain text only.`)

	return b.String()
}
