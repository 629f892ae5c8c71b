// Package challenge implements the timed, scored osmosis quiz.
//
// An Engine holds at most one live Session. Starting a new challenge detaches
// the previous session: nothing the engine does afterwards touches it. The
// engine has no timers; a scheduler calls Tick once per second and Next once
// the feedback delay has passed. Engine is not safe for concurrent use.
package challenge

import (
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/vlab/internal/clock"
)

// AnswerResult records one submitted answer.
type AnswerResult struct {
	QuestionID  string        `json:"questionId"`
	Selected    int           `json:"selected"`
	Correct     bool          `json:"correct"`
	Elapsed     time.Duration `json:"elapsed"`
	Award       Award         `json:"award"`
	Points      int           `json:"points"`
	StreakAfter int           `json:"streakAfter"`
}

// Session is a snapshot of one challenge run.
type Session struct {
	ID               string         `json:"id"`
	Difficulty       Difficulty     `json:"difficulty"`
	TimeLimitSeconds int            `json:"timeLimitSeconds"`
	TimeLeftSeconds  int            `json:"timeLeftSeconds"`
	Questions        []Question     `json:"questions"`
	CurrentIndex     int            `json:"currentIndex"`
	Score            int            `json:"score"`
	Streak           int            `json:"streak"`
	BestStreak       int            `json:"bestStreak"`
	Completed        bool           `json:"completed"`
	TimedOut         bool           `json:"timedOut"`
	AwaitingNext     bool           `json:"awaitingNext"`
	StartedAt        time.Time      `json:"startedAt"`
	QuestionStart    time.Time      `json:"questionStart"`
	LastResult       *AnswerResult  `json:"lastResult,omitempty"`
	Answers          []AnswerResult `json:"answers"`
}

// Current returns the question being asked, if any.
func (s *Session) Current() (Question, bool) {
	if s == nil || s.Completed || s.CurrentIndex >= len(s.Questions) {
		return Question{}, false
	}
	return s.Questions[s.CurrentIndex], true
}

// Correct counts correct answers.
func (s *Session) Correct() int {
	n := 0
	for _, a := range s.Answers {
		if a.Correct {
			n++
		}
	}
	return n
}

// Rank computes the session's rank over its whole question set.
func (s *Session) Rank() Rank {
	return RankFor(s.Score, s.Questions)
}

func (s *Session) clone() *Session {
	c := *s
	c.Questions = make([]Question, len(s.Questions))
	for i, q := range s.Questions {
		q.Options = append([]string(nil), q.Options...)
		c.Questions[i] = q
	}
	c.Answers = append([]AnswerResult{}, s.Answers...)
	if s.LastResult != nil {
		lr := *s.LastResult
		c.LastResult = &lr
	}
	return &c
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand sets the shuffle source.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// WithClock sets the clock used to time answers.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// Engine runs challenges against a question bank.
type Engine struct {
	bank  Bank
	rules Rules
	rng   *rand.Rand
	clock clock.Clock

	cur *Session
}

// NewEngine creates an Engine with no active session.
func NewEngine(bank Bank, rules Rules, opts ...Option) *Engine {
	e := &Engine{
		bank:  bank,
		rules: rules,
		clock: clock.Real{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return e
}

// Rules returns the engine's rules.
func (e *Engine) Rules() Rules { return e.rules }

// Bank returns the engine's question bank.
func (e *Engine) Bank() Bank { return e.bank }

// TimeLimit resolves the time limit for d: a positive request wins, then the
// rules override, then the pool default.
func (e *Engine) TimeLimit(d Difficulty, requested int) int {
	if requested > 0 {
		return requested
	}
	if secs, ok := e.rules.TimeLimits[d]; ok && secs > 0 {
		return secs
	}
	return e.bank.TimeLimit(d)
}

// Start begins a challenge at difficulty d, replacing any previous session.
// An unknown difficulty or empty pool leaves the engine unchanged.
func (e *Engine) Start(d Difficulty, timeLimitSeconds int) (*Session, bool) {
	questions, ok := e.bank.Pool(d)
	if !ok {
		return nil, false
	}
	limit := e.TimeLimit(d, timeLimitSeconds)
	if limit <= 0 {
		return nil, false
	}
	e.rng.Shuffle(len(questions), func(i, j int) {
		questions[i], questions[j] = questions[j], questions[i]
	})

	now := e.clock.Now()
	e.cur = &Session{
		ID:               uuid.NewString(),
		Difficulty:       d,
		TimeLimitSeconds: limit,
		TimeLeftSeconds:  limit,
		Questions:        questions,
		StartedAt:        now,
		QuestionStart:    now,
		Answers:          []AnswerResult{},
	}
	return e.cur.clone(), true
}

// Active reports whether a session exists and is not completed.
func (e *Engine) Active() bool {
	return e.cur != nil && !e.cur.Completed
}

// Session returns a copy of the current session, or nil.
func (e *Engine) Session() *Session {
	if e.cur == nil {
		return nil
	}
	return e.cur.clone()
}

// Tick counts down one second. Reaching zero completes the session.
func (e *Engine) Tick() bool {
	s := e.cur
	if s == nil || s.Completed {
		return false
	}
	s.TimeLeftSeconds--
	if s.TimeLeftSeconds <= 0 {
		s.TimeLeftSeconds = 0
		s.Completed = true
		s.TimedOut = true
		s.AwaitingNext = false
	}
	return true
}

// Answer scores option for the current question and puts the session into
// the feedback state. It is rejected while feedback is showing, after
// completion, and for options outside [0, OptionCount).
func (e *Engine) Answer(option int) (AnswerResult, bool) {
	s := e.cur
	if s == nil || s.Completed || s.AwaitingNext {
		return AnswerResult{}, false
	}
	q, ok := s.Current()
	if !ok || option < 0 || option >= len(q.Options) {
		return AnswerResult{}, false
	}

	elapsed := e.clock.Now().Sub(s.QuestionStart)
	correct := option == q.CorrectOption
	award := e.rules.Score(q, correct, elapsed, s.Streak)

	if correct {
		s.Streak++
		if s.Streak > s.BestStreak {
			s.BestStreak = s.Streak
		}
	} else {
		s.Streak = 0
	}
	s.Score += award.Total()

	res := AnswerResult{
		QuestionID:  q.ID,
		Selected:    option,
		Correct:     correct,
		Elapsed:     elapsed,
		Award:       award,
		Points:      award.Total(),
		StreakAfter: s.Streak,
	}
	s.Answers = append(s.Answers, res)
	s.LastResult = &res
	s.AwaitingNext = true
	return res, true
}

// Next leaves the feedback state and moves to the following question,
// completing the session when none remain.
func (e *Engine) Next() bool {
	s := e.cur
	if s == nil || s.Completed || !s.AwaitingNext {
		return false
	}
	s.AwaitingNext = false
	s.CurrentIndex++
	if s.CurrentIndex >= len(s.Questions) {
		s.Completed = true
		return true
	}
	s.QuestionStart = e.clock.Now()
	return true
}

// Reset discards the current session without starting a new one.
func (e *Engine) Reset() {
	e.cur = nil
}
