// Package guidance produces step hints for the lab bench.
//
// Hints are advisory. The experiment and challenge engines never read them,
// and every Hinter falls back to the built-in rules when it cannot answer.
package guidance

import (
	"context"

	"github.com/abhisek/vlab/internal/challenge"
	"github.com/abhisek/vlab/internal/experiment"
)

// Hint sources.
const (
	SourceRules = "rules"
	SourceLLM   = "llm"
)

// ChallengeSummary is the part of a finished challenge guidance looks at.
type ChallengeSummary struct {
	Difficulty challenge.Difficulty `json:"difficulty"`
	Score      int                  `json:"score"`
	Percent    float64              `json:"percent"`
	Rank       string               `json:"rank"`
	Correct    int                  `json:"correct"`
	Total      int                  `json:"total"`
	TimedOut   bool                 `json:"timedOut"`
}

// Summarize reduces a challenge session to a ChallengeSummary. A nil
// session yields the zero value.
func Summarize(s *challenge.Session) ChallengeSummary {
	if s == nil {
		return ChallengeSummary{}
	}
	r := s.Rank()
	return ChallengeSummary{
		Difficulty: s.Difficulty,
		Score:      s.Score,
		Percent:    r.Percent,
		Rank:       r.Label,
		Correct:    s.Correct(),
		Total:      len(s.Questions),
		TimedOut:   s.TimedOut,
	}
}

// View is everything a Hinter may use.
type View struct {
	Experiment experiment.GuidanceView `json:"experiment"`
	Challenges []ChallengeSummary      `json:"challenges,omitempty"`
}

// Hint is advice for the current step.
type Hint struct {
	Step        experiment.Step `json:"step"`
	Title       string          `json:"title"`
	Text        string          `json:"text"`
	Suggestions []string        `json:"suggestions,omitempty"`
	Source      string          `json:"source"`
}

// Hinter turns a View into a Hint.
type Hinter interface {
	Hint(ctx context.Context, v View) (Hint, error)
}
