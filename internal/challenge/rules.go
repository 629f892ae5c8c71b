package challenge

import (
	"fmt"
	"time"
)

// Rules are the scoring and timing constants of a challenge.
type Rules struct {
	// FeedbackDelay is how long answer feedback stays up before the next
	// question is shown.
	FeedbackDelay time.Duration `json:"feedback_delay" yaml:"feedback_delay"`

	// SpeedBonusWindow is the answer time under which the speed bonus is paid.
	SpeedBonusWindow time.Duration `json:"speed_bonus_window" yaml:"speed_bonus_window"`

	// StreakThreshold is the streak (before the answer) that starts paying
	// StreakBonus per streak step.
	StreakThreshold int `json:"streak_threshold" yaml:"streak_threshold"`
	StreakBonus     int `json:"streak_bonus" yaml:"streak_bonus"`

	// TimeLimits override a pool's default time limit, in seconds.
	TimeLimits map[Difficulty]int `json:"time_limits,omitempty" yaml:"time_limits,omitempty"`
}

// DefaultRules returns the standard challenge rules.
func DefaultRules() Rules {
	return Rules{
		FeedbackDelay:    1500 * time.Millisecond,
		SpeedBonusWindow: 5 * time.Second,
		StreakThreshold:  2,
		StreakBonus:      5,
	}
}

// Validate reports rules that cannot produce a playable challenge.
func (r Rules) Validate() error {
	if r.FeedbackDelay < 0 {
		return fmt.Errorf("feedback_delay must not be negative")
	}
	if r.SpeedBonusWindow < 0 {
		return fmt.Errorf("speed_bonus_window must not be negative")
	}
	if r.StreakThreshold < 0 || r.StreakBonus < 0 {
		return fmt.Errorf("streak settings must not be negative")
	}
	for d, secs := range r.TimeLimits {
		if _, err := ParseDifficulty(string(d)); err != nil {
			return err
		}
		if secs <= 0 {
			return fmt.Errorf("time limit for %s must be positive", d)
		}
	}
	return nil
}

// Award holds the points earned by one answer.
type Award struct {
	Base        int `json:"base"`
	SpeedBonus  int `json:"speedBonus"`
	StreakBonus int `json:"streakBonus"`
}

// Total is the sum of all components.
func (a Award) Total() int {
	return a.Base + a.SpeedBonus + a.StreakBonus
}

// Score computes the award for an answer given the streak held before it.
// Wrong answers earn nothing.
func (r Rules) Score(q Question, correct bool, elapsed time.Duration, streak int) Award {
	if !correct {
		return Award{}
	}
	a := Award{Base: q.BasePoints}
	if elapsed < r.SpeedBonusWindow {
		a.SpeedBonus = q.SpeedBonusPoints
	}
	if streak >= r.StreakThreshold {
		a.StreakBonus = streak * r.StreakBonus
	}
	return a
}

// RankTier is one bucket of the final ranking.
type RankTier struct {
	MinPercent float64
	Label      string
}

// RankTiers are ordered from best to worst; the last tier catches everything.
var RankTiers = []RankTier{
	{MinPercent: 90, Label: "Osmosis Master"},
	{MinPercent: 80, Label: "Membrane Expert"},
	{MinPercent: 70, Label: "Cell Scientist"},
	{MinPercent: 60, Label: "Lab Apprentice"},
	{MinPercent: 0, Label: "Keep Experimenting"},
}

// Rank is a score's position among RankTiers.
type Rank struct {
	Score       int     `json:"score"`
	MaxPossible int     `json:"maxPossible"`
	Percent     float64 `json:"percent"`
	Tier        int     `json:"tier"` // index into RankTiers, 0 is best
	Label       string  `json:"label"`
}

// MaxPossible sums base and speed-bonus points over questions.
func MaxPossible(questions []Question) int {
	total := 0
	for _, q := range questions {
		total += q.MaxPoints()
	}
	return total
}

// RankFor buckets score against the maximum obtainable from questions.
// Streak bonuses can push the percentage above 100.
func RankFor(score int, questions []Question) Rank {
	maxPts := MaxPossible(questions)
	var pct float64
	if maxPts > 0 {
		pct = float64(score) * 100 / float64(maxPts)
	}
	r := Rank{Score: score, MaxPossible: maxPts, Percent: pct}
	for i, tier := range RankTiers {
		if pct >= tier.MinPercent || i == len(RankTiers)-1 {
			r.Tier = i
			r.Label = tier.Label
			break
		}
	}
	return r
}
