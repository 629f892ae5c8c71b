package experiment

import (
	"github.com/abhisek/vlab/internal/osmosis"
	"github.com/abhisek/vlab/internal/phase"
)

// Step is a stage of the guided workflow.
type Step int

const (
	StepSetup          Step = iota // Choose membrane and solution
	StepObserving                  // Watch the first ticks
	StepRecording                  // Write observations down
	StepMonitoring                 // Follow the cell toward equilibrium
	StepSolutionSwitch             // Reverse the gradient
	StepAnalysis                   // Explain what happened
)

// StepCount is the fixed number of steps in a session.
const StepCount = 6

// LastStep is the final step index.
const LastStep = StepAnalysis

// Valid reports whether s is within [StepSetup, StepAnalysis].
func (s Step) Valid() bool {
	return s >= StepSetup && s <= LastStep
}

// String returns the step's short name.
func (s Step) String() string {
	switch s {
	case StepSetup:
		return "setup"
	case StepObserving:
		return "observing"
	case StepRecording:
		return "recording"
	case StepMonitoring:
		return "monitoring"
	case StepSolutionSwitch:
		return "solution-switch"
	case StepAnalysis:
		return "analysis"
	default:
		return "unknown"
	}
}

// Title returns the heading shown to the learner for the step.
func (s Step) Title() string {
	switch s {
	case StepSetup:
		return "Set up the experiment"
	case StepObserving:
		return "Observe the membrane"
	case StepRecording:
		return "Record observations"
	case StepMonitoring:
		return "Monitor water movement"
	case StepSolutionSwitch:
		return "Switch the solution"
	case StepAnalysis:
		return "Analyse the results"
	default:
		return ""
	}
}

// Observation is one entry of the append-only observation log.
type Observation struct {
	Tick int    `json:"tick"`
	Text string `json:"text"`
}

// State is the mutable simulation state owned by a Session.
type State struct {
	Concentration    osmosis.Concentration `json:"concentration"`
	WaterMovement    float64               `json:"waterMovement"`
	CellSize         float64               `json:"cellSize"`
	TimeElapsedTicks int                   `json:"timeElapsedTicks"`
	CurrentStep      Step                  `json:"currentStep"`
	Observations     []Observation         `json:"observations"`
	Running          bool                  `json:"running"`
	Completed        bool                  `json:"completed"`

	// Ruptured latches once an animal cell bursts and stays set until the
	// next reset.
	Ruptured bool `json:"ruptured"`
}

// Snapshot is a read-only copy of a Session for presentation layers.
type Snapshot struct {
	State
	Archetype      osmosis.Archetype    `json:"archetype"`
	Solution       osmosis.SolutionType `json:"solution"`
	SolutionType   osmosis.SolutionType `json:"solutionType"`
	Gradient       float64              `json:"gradient"`
	LastRate       float64              `json:"lastRate"`
	Phase          phase.Label          `json:"phase"`
	FlowMagnitude  float64              `json:"flowMagnitude"`
	CompletedSteps []Step               `json:"completedSteps"`
}

// GuidanceView is the read view handed to the guidance collaborator.
type GuidanceView struct {
	Archetype      osmosis.Archetype    `json:"archetype"`
	Solution       osmosis.SolutionType `json:"solution"`
	CurrentStep    Step                 `json:"currentStep"`
	CompletedSteps []Step               `json:"completedSteps"`
	Observations   []Observation        `json:"observations"`
	Phase          phase.Label          `json:"phase"`
	Ticks          int                  `json:"ticks"`
	Ruptured       bool                 `json:"ruptured"`
}
