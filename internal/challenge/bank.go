package challenge

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed questions.yaml
var defaultQuestions []byte

// Difficulty selects a question pool.
type Difficulty string

const (
	Beginner     Difficulty = "beginner"
	Intermediate Difficulty = "intermediate"
	Advanced     Difficulty = "advanced"
)

// AllDifficulties returns the difficulties in ascending order.
func AllDifficulties() []Difficulty {
	return []Difficulty{Beginner, Intermediate, Advanced}
}

// ParseDifficulty maps a string to a Difficulty.
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllDifficulties() {
		if d == known {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown difficulty %q", s)
}

// DisplayName returns a title-cased label.
func (d Difficulty) DisplayName() string {
	switch d {
	case Beginner:
		return "Beginner"
	case Intermediate:
		return "Intermediate"
	case Advanced:
		return "Advanced"
	default:
		return string(d)
	}
}

// OptionCount is the number of options every question offers.
const OptionCount = 4

// Question is one multiple-choice item.
type Question struct {
	ID               string   `json:"id" yaml:"id"`
	Prompt           string   `json:"prompt" yaml:"prompt"`
	Options          []string `json:"options" yaml:"options"`
	CorrectOption    int      `json:"correctOption" yaml:"correct"`
	BasePoints       int      `json:"basePoints" yaml:"base_points"`
	SpeedBonusPoints int      `json:"speedBonusPoints" yaml:"speed_bonus_points"`
	Explanation      string   `json:"explanation,omitempty" yaml:"explanation"`
}

// MaxPoints is the most a question can score without streak bonuses.
func (q Question) MaxPoints() int {
	return q.BasePoints + q.SpeedBonusPoints
}

// Pool is the fixed question set of one difficulty.
type Pool struct {
	BasePoints       int        `yaml:"base_points"`
	SpeedBonusPoints int        `yaml:"speed_bonus_points"`
	TimeLimitSeconds int        `yaml:"time_limit_seconds"`
	Questions        []Question `yaml:"questions"`
}

// Bank holds a pool per difficulty.
type Bank map[Difficulty]Pool

// LoadBank parses a YAML question bank. Pool-level points are copied into
// questions that do not set their own.
func LoadBank(data []byte) (Bank, error) {
	raw := map[string]Pool{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse question bank: %w", err)
	}

	bank := make(Bank, len(raw))
	for name, pool := range raw {
		d, err := ParseDifficulty(name)
		if err != nil {
			return nil, err
		}
		seen := make(map[string]bool, len(pool.Questions))
		for i := range pool.Questions {
			q := &pool.Questions[i]
			if q.BasePoints == 0 {
				q.BasePoints = pool.BasePoints
			}
			if q.SpeedBonusPoints == 0 {
				q.SpeedBonusPoints = pool.SpeedBonusPoints
			}
			if err := validateQuestion(*q); err != nil {
				return nil, fmt.Errorf("%s question %d: %w", d, i, err)
			}
			if seen[q.ID] {
				return nil, fmt.Errorf("%s: duplicate question id %q", d, q.ID)
			}
			seen[q.ID] = true
		}
		bank[d] = pool
	}
	return bank, nil
}

func validateQuestion(q Question) error {
	switch {
	case q.ID == "":
		return fmt.Errorf("missing id")
	case strings.TrimSpace(q.Prompt) == "":
		return fmt.Errorf("%s: missing prompt", q.ID)
	case len(q.Options) != OptionCount:
		return fmt.Errorf("%s: want %d options, got %d", q.ID, OptionCount, len(q.Options))
	case q.CorrectOption < 0 || q.CorrectOption >= OptionCount:
		return fmt.Errorf("%s: correct option %d out of range", q.ID, q.CorrectOption)
	case q.BasePoints < 0 || q.SpeedBonusPoints < 0:
		return fmt.Errorf("%s: negative points", q.ID)
	}
	return nil
}

// DefaultBank returns the embedded question bank.
func DefaultBank() Bank {
	b, err := LoadBank(defaultQuestions)
	if err != nil {
		panic(fmt.Sprintf("embedded question bank: %v", err))
	}
	return b
}

// Pool returns a copy of the questions for d.
func (b Bank) Pool(d Difficulty) ([]Question, bool) {
	p, ok := b[d]
	if !ok || len(p.Questions) == 0 {
		return nil, false
	}
	out := make([]Question, len(p.Questions))
	for i, q := range p.Questions {
		q.Options = append([]string(nil), q.Options...)
		out[i] = q
	}
	return out, true
}

// TimeLimit returns the pool's default time limit in seconds, or 0.
func (b Bank) TimeLimit(d Difficulty) int {
	return b[d].TimeLimitSeconds
}
