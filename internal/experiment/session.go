// Package experiment runs the six-step guided osmosis experiment.
//
// A Session owns its simulation state exclusively and mutates it only through
// its methods. It has no timer of its own: whatever schedules ticks (the lab
// coordinator, a TUI tick message or a test) calls Tick once per period while
// the session is running. Session is not safe for concurrent use.
package experiment

import (
	"strings"

	"github.com/abhisek/vlab/internal/osmosis"
	"github.com/abhisek/vlab/internal/phase"
)

// Config holds the constants a Session is built with.
type Config struct {
	Params     osmosis.Params
	Thresholds phase.Thresholds
	Archetype  osmosis.Archetype
	Solution   osmosis.SolutionType
}

// DefaultConfig returns a potato in the hypotonic preset with standard
// constants.
func DefaultConfig() Config {
	return Config{
		Params:     osmosis.DefaultParams(),
		Thresholds: phase.DefaultThresholds(),
		Archetype:  osmosis.ArchetypePotato,
		Solution:   osmosis.Hypotonic,
	}
}

// Session is a single guided experiment.
type Session struct {
	params     osmosis.Params
	thresholds phase.Thresholds
	archetype  osmosis.Archetype
	solution   osmosis.SolutionType

	state     State
	lastRate  float64
	completed []Step
}

// New creates a Session in its reset state.
func New(cfg Config) *Session {
	if !cfg.Archetype.Valid() {
		cfg.Archetype = osmosis.ArchetypePotato
	}
	if _, err := osmosis.ParseSolutionType(string(cfg.Solution)); err != nil {
		cfg.Solution = osmosis.Hypotonic
	}
	s := &Session{
		params:     cfg.Params,
		thresholds: cfg.Thresholds,
		archetype:  cfg.Archetype,
		solution:   cfg.Solution,
	}
	s.Reset(cfg.Solution)
	return s
}

// Archetype returns the membrane being simulated.
func (s *Session) Archetype() osmosis.Archetype { return s.archetype }

// Solution returns the solution type chosen at the last reset.
func (s *Session) Solution() osmosis.SolutionType { return s.solution }

// Running reports whether ticks are currently applied.
func (s *Session) Running() bool { return s.state.Running }

// Start sets the session running. It reports false if it already was.
func (s *Session) Start() bool {
	if s.state.Running {
		return false
	}
	s.state.Running = true
	return true
}

// Pause stops applying ticks. State is retained.
func (s *Session) Pause() bool {
	if !s.state.Running {
		return false
	}
	s.state.Running = false
	return true
}

// Reset reinitialises the session from the preset for t. Calling it twice in a
// row yields identical state.
func (s *Session) Reset(t osmosis.SolutionType) {
	if _, err := osmosis.ParseSolutionType(string(t)); err != nil {
		t = s.solution
	}
	s.solution = t
	s.state = State{
		Concentration: osmosis.Preset(t),
		CellSize:      s.params.CellSizeBase,
		CurrentStep:   StepSetup,
		Observations:  []Observation{},
	}
	s.lastRate = 0
	s.completed = nil
}

// SetSolution switches the solution type. Any change pauses and fully resets
// the session; selecting the current type or an unknown one does nothing.
func (s *Session) SetSolution(t osmosis.SolutionType) bool {
	if _, err := osmosis.ParseSolutionType(string(t)); err != nil {
		return false
	}
	if t == s.solution {
		return false
	}
	s.Reset(t)
	return true
}

// SetArchetype switches the membrane. Any change pauses and fully resets the
// session to the current solution preset.
func (s *Session) SetArchetype(a osmosis.Archetype) bool {
	if !a.Valid() || a == s.archetype {
		return false
	}
	s.archetype = a
	s.Reset(s.solution)
	return true
}

// SetConcentration overrides both concentrations, clamped to [0,100]. It keeps
// the accumulated water movement and the rupture latch, so it can reverse the
// gradient mid-session.
func (s *Session) SetConcentration(inside, outside float64) {
	s.state.Concentration = osmosis.Concentration{Inside: inside, Outside: outside}.Clamp(0, 100)
}

// AdvanceStep moves to the next step, recording the step being left.
// Reaching the last step marks the session completed.
func (s *Session) AdvanceStep() bool {
	if s.state.CurrentStep >= LastStep {
		return false
	}
	s.markCompleted(s.state.CurrentStep)
	s.state.CurrentStep++
	if s.state.CurrentStep == LastStep {
		s.state.Completed = true
	}
	return true
}

// RetreatStep moves back one step. Completed steps stay recorded.
func (s *Session) RetreatStep() bool {
	if s.state.CurrentStep <= StepSetup {
		return false
	}
	s.state.CurrentStep--
	return true
}

// GoToStep jumps to step i. Indices outside [0,5] are ignored. Jumping forward
// records every step passed over.
func (s *Session) GoToStep(i int) bool {
	target := Step(i)
	if !target.Valid() || target == s.state.CurrentStep {
		return false
	}
	for st := s.state.CurrentStep; st < target; st++ {
		s.markCompleted(st)
	}
	s.state.CurrentStep = target
	if target == LastStep {
		s.state.Completed = true
	}
	return true
}

func (s *Session) markCompleted(st Step) {
	for _, c := range s.completed {
		if c == st {
			return
		}
	}
	s.completed = append(s.completed, st)
}

// AddObservation appends text to the log, stamped with the current tick.
// Blank text is ignored.
func (s *Session) AddObservation(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	s.state.Observations = append(s.state.Observations, Observation{
		Tick: s.state.TimeElapsedTicks,
		Text: text,
	})
	return true
}

// Tick applies one model step. It does nothing while paused.
func (s *Session) Tick() bool {
	if !s.state.Running {
		return false
	}
	r := osmosis.Step(osmosis.Input{
		Concentration: s.state.Concentration,
		WaterMovement: s.state.WaterMovement,
	}, s.archetype, s.params)

	s.state.Concentration = r.Concentration
	s.state.WaterMovement = r.WaterMovement
	s.state.CellSize = r.CellSize
	s.state.TimeElapsedTicks++
	s.lastRate = r.Rate

	if phase.Ruptures(r.WaterMovement, s.archetype, s.thresholds) {
		s.state.Ruptured = true
	}
	return true
}

// Phase returns the current physiological label.
func (s *Session) Phase() phase.Label {
	return phase.Resolve(s.state.WaterMovement, s.archetype, s.state.Ruptured, s.thresholds)
}

// SolutionType classifies the current concentrations.
func (s *Session) SolutionType() osmosis.SolutionType {
	return phase.SolutionTypeOf(s.state.Concentration, s.params.IsotonicBand)
}

// CompletedSteps returns the recorded steps in completion order.
func (s *Session) CompletedSteps() []Step {
	return append([]Step(nil), s.completed...)
}

// Snapshot returns a deep copy of the session for rendering.
func (s *Session) Snapshot() Snapshot {
	st := s.state
	st.Observations = append([]Observation{}, s.state.Observations...)
	return Snapshot{
		State:          st,
		Archetype:      s.archetype,
		Solution:       s.solution,
		SolutionType:   s.SolutionType(),
		Gradient:       s.state.Concentration.Gradient(),
		LastRate:       s.lastRate,
		Phase:          s.Phase(),
		FlowMagnitude:  phase.FlowMagnitude(s.state.WaterMovement),
		CompletedSteps: append([]Step{}, s.completed...),
	}
}

// Guidance returns the read view used to generate hints.
func (s *Session) Guidance() GuidanceView {
	return GuidanceView{
		Archetype:      s.archetype,
		Solution:       s.solution,
		CurrentStep:    s.state.CurrentStep,
		CompletedSteps: append([]Step{}, s.completed...),
		Observations:   append([]Observation{}, s.state.Observations...),
		Phase:          s.Phase(),
		Ticks:          s.state.TimeElapsedTicks,
		Ruptured:       s.state.Ruptured,
	}
}

// Restore replaces the session's state, e.g. from a saved record. Values are
// clamped into their valid ranges.
func (s *Session) Restore(a osmosis.Archetype, t osmosis.SolutionType, st State, completed []Step) {
	if a.Valid() {
		s.archetype = a
	}
	s.Reset(t)
	st.Concentration = st.Concentration.Clamp(0, 100)
	st.CellSize = osmosis.CellSize(st.WaterMovement, s.archetype, s.params)
	st.Observations = append([]Observation{}, st.Observations...)
	if !st.CurrentStep.Valid() {
		st.CurrentStep = StepSetup
	}
	if st.TimeElapsedTicks < 0 {
		st.TimeElapsedTicks = 0
	}
	st.Running = false
	s.state = st
	for _, c := range completed {
		if c.Valid() {
			s.markCompleted(c)
		}
	}
}
