// Package osmosis implements the discrete-time model of water transport
// across a semi-permeable membrane.
//
// The model is a pure function of the current concentrations and the water
// that has already crossed the membrane. It is called once per simulation
// tick; identical inputs always produce bit-identical outputs.
package osmosis

import "math"

// Params holds the model's tuning constants. The defaults were chosen for
// visual pacing of the lab, not derived from membrane physics.
type Params struct {
	// RateConstant scales the concentration gradient into a per-tick rate.
	RateConstant float64 `json:"rate_constant" yaml:"rate_constant"`

	// MaxRate bounds the absolute per-tick rate.
	MaxRate float64 `json:"max_rate" yaml:"max_rate"`

	// DilutionCoefficient turns accumulated water movement into the
	// dilution factor applied to concentrations.
	DilutionCoefficient float64 `json:"dilution_coefficient" yaml:"dilution_coefficient"`

	// OutsideShare is the fraction of the inside change mirrored outside.
	OutsideShare float64 `json:"outside_share" yaml:"outside_share"`

	// ConcentrationMin and ConcentrationMax bound concentrations after a step.
	ConcentrationMin float64 `json:"concentration_min" yaml:"concentration_min"`
	ConcentrationMax float64 `json:"concentration_max" yaml:"concentration_max"`

	// CellSizeBase is the resting cell size; CellSizeGain converts water
	// movement into size change before the archetype growth factor.
	CellSizeBase float64 `json:"cell_size_base" yaml:"cell_size_base"`
	CellSizeGain float64 `json:"cell_size_gain" yaml:"cell_size_gain"`
	CellSizeMin  float64 `json:"cell_size_min" yaml:"cell_size_min"`
	CellSizeMax  float64 `json:"cell_size_max" yaml:"cell_size_max"`

	// IsotonicBand is the half-width of the gradient band treated as isotonic.
	IsotonicBand float64 `json:"isotonic_band" yaml:"isotonic_band"`

	// Growth is the per-archetype size-growth factor.
	Growth map[Archetype]float64 `json:"growth" yaml:"growth"`
}

// DefaultParams returns the lab's standard constants.
func DefaultParams() Params {
	return Params{
		RateConstant:        0.05,
		MaxRate:             2.0,
		DilutionCoefficient: 0.005,
		OutsideShare:        0.3,
		ConcentrationMin:    5,
		ConcentrationMax:    95,
		CellSizeBase:        100,
		CellSizeGain:        0.3,
		CellSizeMin:         70,
		CellSizeMax:         140,
		IsotonicBand:        2,
		Growth: map[Archetype]float64{
			ArchetypePotato:   1.0,
			ArchetypeOnion:    0.5,
			ArchetypeBlood:    1.5,
			ArchetypeDialysis: 1.0,
		},
	}
}

// GrowthFor returns the size-growth factor of a, defaulting to 1.
func (p Params) GrowthFor(a Archetype) float64 {
	if g, ok := p.Growth[a]; ok {
		return g
	}
	return 1
}

// Input is the model state consumed by Step.
type Input struct {
	Concentration Concentration
	WaterMovement float64 // cumulative net water movement so far
}

// Result is the model state produced by Step.
type Result struct {
	Concentration Concentration
	Rate          float64 // this tick's movement; positive is influx
	WaterMovement float64 // cumulative, including Rate
	CellSize      float64
}

// Rate returns the clamped per-tick water movement for c. Water moves toward
// the side holding more solute, so a cell sitting in a weaker solution takes
// water in (positive rate).
func Rate(c Concentration, p Params) float64 {
	return clamp(-c.Gradient()*p.RateConstant, -p.MaxRate, p.MaxRate)
}

// Step advances the model by one tick. There is no special case for the
// isotonic band: the rate simply shrinks with the gradient, so convergence is
// continuous and only asymptotic.
func Step(in Input, a Archetype, p Params) Result {
	rate := Rate(in.Concentration, p)
	moved := in.WaterMovement + rate
	dilution := math.Abs(moved) * p.DilutionCoefficient

	c := in.Concentration
	delta := math.Abs(rate) * dilution
	switch {
	case rate > 0:
		c.Inside -= delta
		c.Outside += delta * p.OutsideShare
	case rate < 0:
		c.Inside += delta
		c.Outside -= delta * p.OutsideShare
	}
	c = c.Clamp(p.ConcentrationMin, p.ConcentrationMax)

	return Result{
		Concentration: c,
		Rate:          rate,
		WaterMovement: moved,
		CellSize:      CellSize(moved, a, p),
	}
}

// CellSize derives the displayed cell size from cumulative water movement.
func CellSize(waterMovement float64, a Archetype, p Params) float64 {
	size := p.CellSizeBase + waterMovement*p.CellSizeGain*p.GrowthFor(a)
	return clamp(size, p.CellSizeMin, p.CellSizeMax)
}
