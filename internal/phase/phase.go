// Package phase maps the osmosis model's state to physiological labels.
//
// Classification is recomputed from state on every tick. The only memory it
// honours is the irreversible rupture of animal cells, which the experiment
// session latches and passes in through Resolve.
package phase

import (
	"math"

	"github.com/abhisek/vlab/internal/osmosis"
)

// Label is a physiological phase.
type Label string

const (
	// Plant cells (potato, onion).
	Normal            Label = "normal"
	PlasmolysisOnset  Label = "plasmolysis-onset"
	SeverePlasmolysis Label = "severe-plasmolysis"
	Turgid            Label = "turgid"

	// Animal cells (blood).
	NormalBiconcave Label = "normal-biconcave"
	Crenation       Label = "crenation"
	Hemolysis       Label = "hemolysis"

	// Artificial membranes only report flow direction.
	FlowIn    Label = "flow-in"
	FlowOut   Label = "flow-out"
	NoNetFlow Label = "no-net-flow"
)

// DisplayName returns a human-readable label.
func (l Label) DisplayName() string {
	switch l {
	case Normal:
		return "Normal"
	case PlasmolysisOnset:
		return "Plasmolysis onset"
	case SeverePlasmolysis:
		return "Severe plasmolysis"
	case Turgid:
		return "Turgid (high turgor)"
	case NormalBiconcave:
		return "Normal biconcave"
	case Crenation:
		return "Crenation"
	case Hemolysis:
		return "Hemolysis (ruptured)"
	case FlowIn:
		return "Net flow in"
	case FlowOut:
		return "Net flow out"
	case NoNetFlow:
		return "No net flow"
	default:
		return string(l)
	}
}

// PlantThresholds are the water-movement cut-offs for walled cells.
type PlantThresholds struct {
	PlasmolysisOnset  float64 `json:"plasmolysis_onset" yaml:"plasmolysis_onset"`
	SeverePlasmolysis float64 `json:"severe_plasmolysis" yaml:"severe_plasmolysis"`
	Turgid            float64 `json:"turgid" yaml:"turgid"`
}

// AnimalThresholds are the water-movement cut-offs for cells without a wall.
type AnimalThresholds struct {
	Crenation float64 `json:"crenation" yaml:"crenation"`
	Hemolysis float64 `json:"hemolysis" yaml:"hemolysis"`
}

// Thresholds groups the cut-offs per archetype. The values pace the visual
// transitions of the lab and carry no physical meaning.
type Thresholds struct {
	Potato PlantThresholds  `json:"potato" yaml:"potato"`
	Onion  PlantThresholds  `json:"onion" yaml:"onion"`
	Blood  AnimalThresholds `json:"blood" yaml:"blood"`

	// FlowEpsilon is the smallest |water movement| reported as directional
	// flow for dialysis tubing.
	FlowEpsilon float64 `json:"flow_epsilon" yaml:"flow_epsilon"`
}

// DefaultThresholds returns the lab's standard cut-offs.
func DefaultThresholds() Thresholds {
	plant := PlantThresholds{
		PlasmolysisOnset:  -0.3,
		SeverePlasmolysis: -0.5,
		Turgid:            0.3,
	}
	return Thresholds{
		Potato:      plant,
		Onion:       plant,
		Blood:       AnimalThresholds{Crenation: -0.5, Hemolysis: 1.0},
		FlowEpsilon: 1e-6,
	}
}

// Classify labels the cell state for the given cumulative water movement.
func Classify(waterMovement float64, a osmosis.Archetype, th Thresholds) Label {
	switch a {
	case osmosis.ArchetypePotato:
		return classifyPlant(waterMovement, th.Potato)
	case osmosis.ArchetypeOnion:
		return classifyPlant(waterMovement, th.Onion)
	case osmosis.ArchetypeBlood:
		return classifyAnimal(waterMovement, th.Blood)
	default:
		return classifyFlow(waterMovement, th.FlowEpsilon)
	}
}

// Resolve is Classify with the session's latched rupture applied.
func Resolve(waterMovement float64, a osmosis.Archetype, ruptured bool, th Thresholds) Label {
	if ruptured && a == osmosis.ArchetypeBlood {
		return Hemolysis
	}
	return Classify(waterMovement, a, th)
}

// Ruptures reports whether waterMovement crosses the irreversible rupture
// threshold of a. Only animal cells rupture.
func Ruptures(waterMovement float64, a osmosis.Archetype, th Thresholds) bool {
	return a == osmosis.ArchetypeBlood && waterMovement > th.Blood.Hemolysis
}

func classifyPlant(wm float64, th PlantThresholds) Label {
	switch {
	case wm < th.SeverePlasmolysis:
		return SeverePlasmolysis
	case wm < th.PlasmolysisOnset:
		return PlasmolysisOnset
	case wm > th.Turgid:
		return Turgid
	default:
		return Normal
	}
}

func classifyAnimal(wm float64, th AnimalThresholds) Label {
	switch {
	case wm < th.Crenation:
		return Crenation
	case wm > th.Hemolysis:
		return Hemolysis
	default:
		return NormalBiconcave
	}
}

func classifyFlow(wm, eps float64) Label {
	switch {
	case wm > eps:
		return FlowIn
	case wm < -eps:
		return FlowOut
	default:
		return NoNetFlow
	}
}

// FlowMagnitude is the unsigned net movement reported for membranes without
// phase labels.
func FlowMagnitude(waterMovement float64) float64 {
	return math.Abs(waterMovement)
}

// SolutionTypeOf classifies the outside solution relative to the cell using
// an isotonic band of ±band around zero gradient.
func SolutionTypeOf(c osmosis.Concentration, band float64) osmosis.SolutionType {
	g := c.Gradient()
	switch {
	case g > band:
		return osmosis.Hypertonic
	case g < -band:
		return osmosis.Hypotonic
	default:
		return osmosis.Isotonic
	}
}
