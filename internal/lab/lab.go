// Package lab coordinates an experiment session and a challenge engine
// behind one lock.
//
// Lab owns the experiment clock, the challenge countdown and the one-shot
// feedback timer. Every intent and every tick runs under Lab's mutex, and
// ticks whose generation is no longer current are dropped, so a paused
// experiment or a replaced challenge never sees a late tick. Listeners are
// notified outside the lock with a versioned Snapshot.
package lab

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/vlab/internal/challenge"
	"github.com/abhisek/vlab/internal/clock"
	"github.com/abhisek/vlab/internal/experiment"
	"github.com/abhisek/vlab/internal/guidance"
	"github.com/abhisek/vlab/internal/osmosis"
	"github.com/abhisek/vlab/internal/record"
)

// ErrClosed is returned by Apply after Close.
var ErrClosed = errors.New("lab closed")

// maxHistory bounds the finished challenges kept for guidance.
const maxHistory = 10

// recordTimeout bounds a single Recorder call.
const recordTimeout = 5 * time.Second

// Recorder persists finished runs. record.Sink implements it.
type Recorder interface {
	RecordExperiment(ctx context.Context, id string, snap experiment.Snapshot) error
	RecordChallenge(ctx context.Context, s *challenge.Session) error
}

// Options configures a Lab. Zero values and nil take defaults.
type Options struct {
	Experiment experiment.Config
	Bank       challenge.Bank
	Rules      *challenge.Rules
	Engine     []challenge.Option

	// TickPeriod drives both the experiment clock and the countdown.
	TickPeriod time.Duration

	Recorder Recorder
	Logger   *slog.Logger
}

// Snapshot is the state broadcast after every change. Version increases
// with each change so clients can drop out-of-order deliveries.
type Snapshot struct {
	Version    uint64              `json:"version"`
	Experiment experiment.Snapshot `json:"experiment"`
	Challenge  *challenge.Session  `json:"challenge,omitempty"`
	Rank       *challenge.Rank     `json:"rank,omitempty"`
}

// Lab is safe for concurrent use.
type Lab struct {
	mu       sync.Mutex
	exp      *experiment.Session
	expID    string
	recorded bool
	engine   *challenge.Engine
	delay    time.Duration
	history  []guidance.ChallengeSummary
	version  uint64
	closed   bool

	expTicker *clock.Ticker
	chTicker  *clock.Ticker
	feedback  clock.Timer

	recorder Recorder
	logger   *slog.Logger

	lmu       sync.Mutex
	listeners map[int]func(Snapshot)
	nextID    int
}

// New creates a Lab with a paused experiment and no challenge.
func New(opts Options) *Lab {
	cfg := opts.Experiment
	if cfg.Params.Growth == nil {
		def := experiment.DefaultConfig()
		cfg.Params = def.Params
		cfg.Thresholds = def.Thresholds
	}
	bank := opts.Bank
	if bank == nil {
		bank = challenge.DefaultBank()
	}
	rules := challenge.DefaultRules()
	if opts.Rules != nil {
		rules = *opts.Rules
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Lab{
		exp:       experiment.New(cfg),
		expID:     uuid.NewString(),
		engine:    challenge.NewEngine(bank, rules, opts.Engine...),
		delay:     rules.FeedbackDelay,
		expTicker: clock.NewTicker(opts.TickPeriod),
		chTicker:  clock.NewTicker(opts.TickPeriod),
		recorder:  opts.Recorder,
		logger:    logger,
		listeners: make(map[int]func(Snapshot)),
	}
}

// effects collects work to do after the lock is released.
type effects struct {
	changed    bool
	experiment *experiment.Snapshot
	expID      string
	challenge  *challenge.Session
}

// update runs fn under the lock, then records and notifies.
func (l *Lab) update(fn func(fx *effects)) Snapshot {
	l.mu.Lock()
	var fx effects
	fn(&fx)
	if fx.changed {
		l.version++
	}
	snap := l.snapshotLocked()
	l.mu.Unlock()

	l.record(fx)
	if fx.changed {
		l.notify(snap)
	}
	return snap
}

// Apply performs one intent and returns the resulting state. Rejected
// transitions are no-ops; only malformed intents return an error.
func (l *Lab) Apply(in Intent) (Snapshot, error) {
	var err error
	snap := l.update(func(fx *effects) {
		if l.closed {
			err = ErrClosed
			return
		}
		fx.changed, err = l.applyLocked(in, fx)
	})
	return snap, err
}

func (l *Lab) applyLocked(in Intent, fx *effects) (bool, error) {
	switch in.Type {
	case IntentStart:
		if !l.exp.Start() {
			return false, nil
		}
		l.expTicker.Start(l.onExperimentTick)
		return true, nil

	case IntentPause:
		l.expTicker.Stop()
		return l.exp.Pause(), nil

	case IntentReset:
		t := l.exp.Solution()
		if in.Solution != "" {
			parsed, err := osmosis.ParseSolutionType(in.Solution)
			if err != nil {
				return false, nil
			}
			t = parsed
		}
		l.expTicker.Stop()
		l.exp.Reset(t)
		l.newExperimentID()
		return true, nil

	case IntentSetArchetype:
		a, err := osmosis.ParseArchetype(in.Archetype)
		if err != nil {
			return false, nil
		}
		return l.resetIf(l.exp.SetArchetype(a)), nil

	case IntentSetSolution:
		t, err := osmosis.ParseSolutionType(in.Solution)
		if err != nil {
			return false, nil
		}
		return l.resetIf(l.exp.SetSolution(t)), nil

	case IntentSetConcentration:
		if in.Inside == nil || in.Outside == nil {
			return false, fmt.Errorf("%s: inside and outside are required", in.Type)
		}
		l.exp.SetConcentration(*in.Inside, *in.Outside)
		return true, nil

	case IntentAdvanceStep:
		return l.stepChanged(fx, l.exp.AdvanceStep()), nil

	case IntentRetreatStep:
		return l.exp.RetreatStep(), nil

	case IntentGoToStep:
		if in.Step == nil {
			return false, fmt.Errorf("%s: step is required", in.Type)
		}
		return l.stepChanged(fx, l.exp.GoToStep(*in.Step)), nil

	case IntentAddObservation:
		return l.exp.AddObservation(in.Text), nil

	case IntentStartChallenge:
		d, err := challenge.ParseDifficulty(in.Difficulty)
		if err != nil {
			return false, nil
		}
		if _, ok := l.engine.Start(d, in.TimeLimit); !ok {
			return false, nil
		}
		l.feedback.Cancel()
		l.chTicker.Start(l.onChallengeTick)
		return true, nil

	case IntentAnswerChallenge:
		if in.Option == nil {
			return false, fmt.Errorf("%s: option is required", in.Type)
		}
		if _, ok := l.engine.Answer(*in.Option); !ok {
			return false, nil
		}
		l.feedback.Schedule(l.delay, l.onFeedback)
		return true, nil

	case IntentNextQuestion:
		l.feedback.Cancel()
		return l.nextLocked(fx), nil

	case IntentResetChallenge:
		l.feedback.Cancel()
		l.chTicker.Stop()
		had := l.engine.Session() != nil
		l.engine.Reset()
		return had, nil

	default:
		return false, fmt.Errorf("unknown intent %q", in.Type)
	}
}

// resetIf handles a context switch: the session has already paused and
// reset itself, so the clock stops and a new run begins.
func (l *Lab) resetIf(changed bool) bool {
	if changed {
		l.expTicker.Stop()
		l.newExperimentID()
	}
	return changed
}

func (l *Lab) newExperimentID() {
	l.expID = uuid.NewString()
	l.recorded = false
}

// stepChanged queues the experiment record the first time the run
// reaches its last step.
func (l *Lab) stepChanged(fx *effects, changed bool) bool {
	if changed && l.exp.Snapshot().Completed && !l.recorded {
		l.recorded = true
		snap := l.exp.Snapshot()
		fx.experiment = &snap
		fx.expID = l.expID
	}
	return changed
}

// nextLocked leaves the feedback state and finishes the challenge when no
// questions remain.
func (l *Lab) nextLocked(fx *effects) bool {
	if !l.engine.Next() {
		return false
	}
	if s := l.engine.Session(); s.Completed {
		l.finishLocked(fx, s)
	}
	return true
}

func (l *Lab) finishLocked(fx *effects, s *challenge.Session) {
	l.chTicker.Stop()
	l.feedback.Cancel()
	l.history = append(l.history, guidance.Summarize(s))
	if len(l.history) > maxHistory {
		l.history = l.history[len(l.history)-maxHistory:]
	}
	fx.challenge = s
}

func (l *Lab) onExperimentTick(gen uint64) {
	l.update(func(fx *effects) {
		if l.closed || l.expTicker.Current() != gen {
			return
		}
		fx.changed = l.exp.Tick()
	})
}

func (l *Lab) onChallengeTick(gen uint64) {
	l.update(func(fx *effects) {
		if l.closed || l.chTicker.Current() != gen {
			return
		}
		if !l.engine.Tick() {
			return
		}
		fx.changed = true
		if s := l.engine.Session(); s.Completed {
			l.finishLocked(fx, s)
		}
	})
}

func (l *Lab) onFeedback(gen uint64) {
	l.update(func(fx *effects) {
		if l.closed || l.feedback.Current() != gen {
			return
		}
		fx.changed = l.nextLocked(fx)
	})
}

// Snapshot returns the current state.
func (l *Lab) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

func (l *Lab) snapshotLocked() Snapshot {
	snap := Snapshot{
		Version:    l.version,
		Experiment: l.exp.Snapshot(),
	}
	if s := l.engine.Session(); s != nil {
		rank := s.Rank()
		snap.Challenge = s
		snap.Rank = &rank
	}
	return snap
}

// ExperimentID returns the id the current run will be recorded under.
func (l *Lab) ExperimentID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.expID
}

// Guidance returns the view the hint layer reads.
func (l *Lab) Guidance() guidance.View {
	l.mu.Lock()
	defer l.mu.Unlock()
	return guidance.View{
		Experiment: l.exp.Guidance(),
		Challenges: append([]guidance.ChallengeSummary(nil), l.history...),
	}
}

// ChallengeInfo describes a difficulty as Start would run it.
type ChallengeInfo struct {
	Difficulty       challenge.Difficulty `json:"difficulty"`
	Questions        int                  `json:"questions"`
	TimeLimitSeconds int                  `json:"timeLimitSeconds"`
}

// Challenges lists the difficulties that have questions.
func (l *Lab) Challenges() []ChallengeInfo {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []ChallengeInfo
	for _, d := range challenge.AllDifficulties() {
		pool, ok := l.engine.Bank().Pool(d)
		if !ok {
			continue
		}
		out = append(out, ChallengeInfo{
			Difficulty:       d,
			Questions:        len(pool),
			TimeLimitSeconds: l.engine.TimeLimit(d, 0),
		})
	}
	return out
}

// Restore loads a saved experiment, paused, as a new run.
func (l *Lab) Restore(r record.Experiment) Snapshot {
	return l.update(func(fx *effects) {
		l.expTicker.Stop()
		r.Restore(l.exp)
		l.newExperimentID()
		fx.changed = true
	})
}

// Subscribe registers fn for every changed Snapshot and returns a function
// that removes it. fn runs on the goroutine that made the change and must
// not block.
func (l *Lab) Subscribe(fn func(Snapshot)) func() {
	l.lmu.Lock()
	defer l.lmu.Unlock()
	id := l.nextID
	l.nextID++
	l.listeners[id] = fn
	return func() {
		l.lmu.Lock()
		defer l.lmu.Unlock()
		delete(l.listeners, id)
	}
}

func (l *Lab) notify(snap Snapshot) {
	l.lmu.Lock()
	fns := make([]func(Snapshot), 0, len(l.listeners))
	for _, fn := range l.listeners {
		fns = append(fns, fn)
	}
	l.lmu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

func (l *Lab) record(fx effects) {
	if l.recorder == nil || (fx.experiment == nil && fx.challenge == nil) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	if fx.experiment != nil {
		if err := l.recorder.RecordExperiment(ctx, fx.expID, *fx.experiment); err != nil {
			l.logger.Warn("record experiment", "id", fx.expID, "err", err)
		} else {
			l.logger.Debug("recorded experiment", "id", fx.expID, "phase", fx.experiment.Phase)
		}
	}
	if fx.challenge != nil {
		if err := l.recorder.RecordChallenge(ctx, fx.challenge); err != nil {
			l.logger.Warn("record challenge", "id", fx.challenge.ID, "err", err)
		} else {
			l.logger.Debug("recorded challenge", "id", fx.challenge.ID, "score", fx.challenge.Score)
		}
	}
}

// Close stops all producers and waits for them. Later intents return
// ErrClosed.
func (l *Lab) Close() {
	l.mu.Lock()
	l.closed = true
	l.feedback.Cancel()
	l.mu.Unlock()

	l.expTicker.Close()
	l.chTicker.Close()
}
