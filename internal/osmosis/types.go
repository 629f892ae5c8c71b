package osmosis

import "fmt"

// Archetype identifies the membrane being simulated.
type Archetype string

const (
	ArchetypePotato   Archetype = "potato"   // plant cell, flexible wall
	ArchetypeOnion    Archetype = "onion"    // plant cell, rigid wall
	ArchetypeBlood    Archetype = "blood"    // animal cell, no wall
	ArchetypeDialysis Archetype = "dialysis" // artificial membrane
)

// AllArchetypes returns the archetypes in display order.
func AllArchetypes() []Archetype {
	return []Archetype{ArchetypePotato, ArchetypeOnion, ArchetypeBlood, ArchetypeDialysis}
}

// ParseArchetype maps a string to an Archetype.
func ParseArchetype(s string) (Archetype, error) {
	for _, a := range AllArchetypes() {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown archetype %q", s)
}

// Valid reports whether a is a known archetype.
func (a Archetype) Valid() bool {
	_, err := ParseArchetype(string(a))
	return err == nil
}

// IsPlant reports whether the archetype has a cell wall.
func (a Archetype) IsPlant() bool {
	return a == ArchetypePotato || a == ArchetypeOnion
}

// DisplayName returns a human-readable label.
func (a Archetype) DisplayName() string {
	switch a {
	case ArchetypePotato:
		return "Potato (plant, flexible)"
	case ArchetypeOnion:
		return "Onion (plant, rigid)"
	case ArchetypeBlood:
		return "Red blood cell"
	case ArchetypeDialysis:
		return "Dialysis tubing"
	default:
		return string(a)
	}
}

// Next cycles to the following archetype.
func (a Archetype) Next() Archetype {
	all := AllArchetypes()
	for i, x := range all {
		if x == a {
			return all[(i+1)%len(all)]
		}
	}
	return all[0]
}

// SolutionType describes the outside solution relative to the cell.
type SolutionType string

const (
	Hypertonic SolutionType = "hypertonic"
	Hypotonic  SolutionType = "hypotonic"
	Isotonic   SolutionType = "isotonic"
)

// ParseSolutionType maps a string to a SolutionType.
func ParseSolutionType(s string) (SolutionType, error) {
	switch SolutionType(s) {
	case Hypertonic, Hypotonic, Isotonic:
		return SolutionType(s), nil
	}
	return "", fmt.Errorf("unknown solution type %q", s)
}

// Concentration is the solute percentage on each side of the membrane.
type Concentration struct {
	Inside  float64 `json:"inside" yaml:"inside"`
	Outside float64 `json:"outside" yaml:"outside"`
}

// Gradient returns outside - inside.
func (c Concentration) Gradient() float64 {
	return c.Outside - c.Inside
}

// Clamp bounds both sides to [lo, hi].
func (c Concentration) Clamp(lo, hi float64) Concentration {
	return Concentration{
		Inside:  clamp(c.Inside, lo, hi),
		Outside: clamp(c.Outside, lo, hi),
	}
}

// Preset returns the starting concentrations for a solution type.
func Preset(t SolutionType) Concentration {
	switch t {
	case Hypertonic:
		return Concentration{Inside: 20, Outside: 80}
	case Isotonic:
		return Concentration{Inside: 30, Outside: 30}
	default:
		return Concentration{Inside: 50, Outside: 10}
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
