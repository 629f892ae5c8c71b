package lab

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/abhisek/vlab/internal/challenge"
	"github.com/abhisek/vlab/internal/experiment"
	"github.com/abhisek/vlab/internal/osmosis"
	"github.com/abhisek/vlab/internal/phase"
	"github.com/abhisek/vlab/internal/record"
)

const testPeriod = 5 * time.Millisecond

type fakeRecorder struct {
	mu          sync.Mutex
	experiments []string
	challenges  []*challenge.Session
	err         error
}

func (f *fakeRecorder) RecordExperiment(_ context.Context, id string, _ experiment.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.experiments = append(f.experiments, id)
	return f.err
}

func (f *fakeRecorder) RecordChallenge(_ context.Context, s *challenge.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.challenges = append(f.challenges, s)
	return f.err
}

func (f *fakeRecorder) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.experiments), len(f.challenges)
}

func newTestLab(t *testing.T, feedback time.Duration) (*Lab, *fakeRecorder) {
	t.Helper()
	rules := challenge.DefaultRules()
	rules.FeedbackDelay = feedback
	rec := &fakeRecorder{}
	l := New(Options{
		Rules:      &rules,
		Engine:     []challenge.Option{challenge.WithRand(rand.New(rand.NewPCG(7, 7)))},
		TickPeriod: testPeriod,
		Recorder:   rec,
	})
	t.Cleanup(l.Close)
	return l, rec
}

func apply(t *testing.T, l *Lab, in Intent) Snapshot {
	t.Helper()
	snap, err := l.Apply(in)
	if err != nil {
		t.Fatalf("Apply(%s): %v", in.Type, err)
	}
	return snap
}

func waitFor(t *testing.T, l *Lab, what string, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if snap := l.Snapshot(); cond(snap) {
			return snap
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
	return Snapshot{}
}

func intPtr(i int) *int           { return &i }
func floatPtr(f float64) *float64 { return &f }

func TestStartTicksUntilPaused(t *testing.T) {
	l, _ := newTestLab(t, time.Second)

	apply(t, l, Intent{Type: IntentStart})
	waitFor(t, l, "three ticks", func(s Snapshot) bool { return s.Experiment.TimeElapsedTicks >= 3 })

	paused := apply(t, l, Intent{Type: IntentPause})
	if paused.Experiment.Running {
		t.Fatal("still running after pause")
	}
	time.Sleep(10 * testPeriod)
	if got := l.Snapshot().Experiment.TimeElapsedTicks; got != paused.Experiment.TimeElapsedTicks {
		t.Errorf("ticks after pause = %d, want %d", got, paused.Experiment.TimeElapsedTicks)
	}
}

func TestStartTwiceIsNoop(t *testing.T) {
	l, _ := newTestLab(t, time.Second)

	first := apply(t, l, Intent{Type: IntentStart})
	second := apply(t, l, Intent{Type: IntentStart})
	if !second.Experiment.Running {
		t.Fatal("expected running")
	}
	if second.Version > first.Version+uint64(second.Experiment.TimeElapsedTicks) {
		t.Errorf("second start changed state: version %d -> %d", first.Version, second.Version)
	}
}

func TestResetStopsClock(t *testing.T) {
	l, _ := newTestLab(t, time.Second)
	before := l.ExperimentID()

	apply(t, l, Intent{Type: IntentStart})
	waitFor(t, l, "a tick", func(s Snapshot) bool { return s.Experiment.TimeElapsedTicks >= 1 })

	snap := apply(t, l, Intent{Type: IntentReset, Solution: string(osmosis.Hypertonic)})
	if snap.Experiment.Running || snap.Experiment.TimeElapsedTicks != 0 {
		t.Fatalf("after reset running=%v ticks=%d", snap.Experiment.Running, snap.Experiment.TimeElapsedTicks)
	}
	if snap.Experiment.Solution != osmosis.Hypertonic {
		t.Errorf("solution = %s, want hypertonic", snap.Experiment.Solution)
	}
	if l.ExperimentID() == before {
		t.Error("reset should begin a new run id")
	}

	time.Sleep(10 * testPeriod)
	if got := l.Snapshot().Experiment.TimeElapsedTicks; got != 0 {
		t.Errorf("ticks after reset = %d, want 0", got)
	}
}

func TestContextSwitchPausesAndResets(t *testing.T) {
	l, _ := newTestLab(t, time.Second)
	apply(t, l, Intent{Type: IntentStart})
	waitFor(t, l, "a tick", func(s Snapshot) bool { return s.Experiment.TimeElapsedTicks >= 1 })

	snap := apply(t, l, Intent{Type: IntentSetArchetype, Archetype: "onion"})
	if snap.Experiment.Running || snap.Experiment.TimeElapsedTicks != 0 {
		t.Fatalf("running=%v ticks=%d", snap.Experiment.Running, snap.Experiment.TimeElapsedTicks)
	}
	if snap.Experiment.Archetype != osmosis.ArchetypeOnion {
		t.Errorf("archetype = %s", snap.Experiment.Archetype)
	}

	unchanged := apply(t, l, Intent{Type: IntentSetArchetype, Archetype: "leaf"})
	if unchanged.Version != snap.Version {
		t.Errorf("unknown archetype changed version %d -> %d", snap.Version, unchanged.Version)
	}
}

func TestMalformedIntents(t *testing.T) {
	l, _ := newTestLab(t, time.Second)

	tests := []Intent{
		{Type: "explode"},
		{Type: IntentSetConcentration, Inside: floatPtr(10)},
		{Type: IntentGoToStep},
		{Type: IntentAnswerChallenge},
	}
	for _, in := range tests {
		if _, err := l.Apply(in); err == nil {
			t.Errorf("Apply(%+v) succeeded, want error", in)
		}
	}

	if _, err := DecodeIntent([]byte(`{"inside": 3}`)); err == nil {
		t.Error("DecodeIntent without type succeeded")
	}
	in, err := DecodeIntent([]byte(`{"type":"goToStep","step":2}`))
	if err != nil || in.Step == nil || *in.Step != 2 {
		t.Errorf("DecodeIntent = %+v, %v", in, err)
	}
}

func TestConcentrationClamped(t *testing.T) {
	l, _ := newTestLab(t, time.Second)
	snap := apply(t, l, Intent{Type: IntentSetConcentration, Inside: floatPtr(150), Outside: floatPtr(-4)})
	c := snap.Experiment.Concentration
	if c.Inside != 100 || c.Outside != 0 {
		t.Errorf("concentration = %+v, want {100 0}", c)
	}
}

func TestExperimentRecordedOnceAtLastStep(t *testing.T) {
	l, rec := newTestLab(t, time.Second)

	apply(t, l, Intent{Type: IntentAddObservation, Text: "  "})
	apply(t, l, Intent{Type: IntentAddObservation, Text: "cell is firm"})
	snap := apply(t, l, Intent{Type: IntentGoToStep, Step: intPtr(int(experiment.LastStep))})
	if !snap.Experiment.Completed {
		t.Fatal("expected completed")
	}
	apply(t, l, Intent{Type: IntentRetreatStep})
	apply(t, l, Intent{Type: IntentAdvanceStep})

	if exps, _ := rec.counts(); exps != 1 {
		t.Fatalf("experiment records = %d, want 1", exps)
	}
	if got := len(l.Guidance().Experiment.Observations); got != 1 {
		t.Errorf("observations = %d, want 1", got)
	}
}

func TestChallengeFeedbackAdvances(t *testing.T) {
	l, _ := newTestLab(t, 20*time.Millisecond)

	snap := apply(t, l, Intent{Type: IntentStartChallenge, Difficulty: "beginner", TimeLimit: 60})
	if snap.Challenge == nil || snap.Challenge.TimeLimitSeconds != 60 {
		t.Fatalf("challenge = %+v", snap.Challenge)
	}

	q, _ := snap.Challenge.Current()
	snap = apply(t, l, Intent{Type: IntentAnswerChallenge, Option: intPtr(q.CorrectOption)})
	if !snap.Challenge.AwaitingNext || snap.Challenge.Score == 0 {
		t.Fatalf("after answer awaiting=%v score=%d", snap.Challenge.AwaitingNext, snap.Challenge.Score)
	}

	again, _ := l.Apply(Intent{Type: IntentAnswerChallenge, Option: intPtr(0)})
	if len(again.Challenge.Answers) != 1 {
		t.Errorf("answer during feedback accepted")
	}

	waitFor(t, l, "next question", func(s Snapshot) bool {
		return s.Challenge != nil && s.Challenge.CurrentIndex == 1 && !s.Challenge.AwaitingNext
	})
}

func TestChallengeTimesOut(t *testing.T) {
	l, rec := newTestLab(t, time.Second)

	apply(t, l, Intent{Type: IntentStartChallenge, Difficulty: "advanced", TimeLimit: 3})
	snap := waitFor(t, l, "timeout", func(s Snapshot) bool { return s.Challenge.Completed })
	if !snap.Challenge.TimedOut || snap.Challenge.TimeLeftSeconds != 0 {
		t.Fatalf("timedOut=%v left=%d", snap.Challenge.TimedOut, snap.Challenge.TimeLeftSeconds)
	}
	if snap.Rank == nil || snap.Rank.Score != 0 {
		t.Errorf("rank = %+v", snap.Rank)
	}

	waitFor(t, l, "record", func(Snapshot) bool { _, n := rec.counts(); return n == 1 })
	view := l.Guidance()
	if len(view.Challenges) != 1 || !view.Challenges[0].TimedOut {
		t.Errorf("guidance challenges = %+v", view.Challenges)
	}
}

func TestNewChallengeDetachesOld(t *testing.T) {
	l, rec := newTestLab(t, 20*time.Millisecond)

	first := apply(t, l, Intent{Type: IntentStartChallenge, Difficulty: "beginner"})
	q, _ := first.Challenge.Current()
	apply(t, l, Intent{Type: IntentAnswerChallenge, Option: intPtr(q.CorrectOption)})

	second := apply(t, l, Intent{Type: IntentStartChallenge, Difficulty: "intermediate"})
	if second.Challenge.ID == first.Challenge.ID || second.Challenge.Score != 0 {
		t.Fatalf("second = %+v", second.Challenge)
	}

	time.Sleep(60 * time.Millisecond)
	got := l.Snapshot().Challenge
	if got.CurrentIndex != 0 || len(got.Answers) != 0 {
		t.Errorf("stale feedback touched new session: index=%d answers=%d", got.CurrentIndex, len(got.Answers))
	}
	if _, n := rec.counts(); n != 0 {
		t.Errorf("abandoned challenge was recorded")
	}
}

func TestUnknownDifficultyIgnored(t *testing.T) {
	l, _ := newTestLab(t, time.Second)
	snap := apply(t, l, Intent{Type: IntentStartChallenge, Difficulty: "expert"})
	if snap.Challenge != nil {
		t.Errorf("challenge started for unknown difficulty")
	}
}

func TestResetChallenge(t *testing.T) {
	l, _ := newTestLab(t, time.Second)
	apply(t, l, Intent{Type: IntentStartChallenge, Difficulty: "beginner"})
	snap := apply(t, l, Intent{Type: IntentResetChallenge})
	if snap.Challenge != nil || snap.Rank != nil {
		t.Errorf("challenge survived reset")
	}
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	l, _ := newTestLab(t, time.Second)

	var mu sync.Mutex
	var versions []uint64
	cancel := l.Subscribe(func(s Snapshot) {
		mu.Lock()
		versions = append(versions, s.Version)
		mu.Unlock()
	})

	apply(t, l, Intent{Type: IntentAdvanceStep})
	apply(t, l, Intent{Type: IntentRetreatStep})
	apply(t, l, Intent{Type: IntentRetreatStep}) // no-op at step 0
	cancel()
	apply(t, l, Intent{Type: IntentAdvanceStep})

	mu.Lock()
	defer mu.Unlock()
	if len(versions) != 2 || versions[0] >= versions[1] {
		t.Errorf("versions = %v, want two increasing", versions)
	}
}

func TestRestore(t *testing.T) {
	src := experiment.New(experiment.Config{
		Params:     osmosis.DefaultParams(),
		Thresholds: phase.DefaultThresholds(),
		Archetype:  osmosis.ArchetypeBlood,
		Solution:   osmosis.Hypertonic,
	})
	src.Start()
	for range 10 {
		src.Tick()
	}
	rec := record.NewExperiment("saved", src.Snapshot(), time.Now())

	l, _ := newTestLab(t, time.Second)
	snap := l.Restore(rec)
	if snap.Experiment.Archetype != osmosis.ArchetypeBlood || snap.Experiment.TimeElapsedTicks != 10 {
		t.Fatalf("restored = %+v", snap.Experiment)
	}
	if snap.Experiment.Running {
		t.Error("restored session should be paused")
	}
	if snap.Experiment.Phase != phase.Crenation {
		t.Errorf("phase = %s, want crenation", snap.Experiment.Phase)
	}
}

func TestClose(t *testing.T) {
	l, _ := newTestLab(t, time.Second)
	apply(t, l, Intent{Type: IntentStart})
	l.Close()
	if _, err := l.Apply(Intent{Type: IntentPause}); !errors.Is(err, ErrClosed) {
		t.Errorf("Apply after Close = %v, want ErrClosed", err)
	}
}

func TestChallenges(t *testing.T) {
	l, _ := newTestLab(t, time.Second)

	infos := l.Challenges()
	if len(infos) != 3 {
		t.Fatalf("Challenges() = %d entries, want 3", len(infos))
	}
	want := map[challenge.Difficulty]int{
		challenge.Beginner:     120,
		challenge.Intermediate: 90,
		challenge.Advanced:     60,
	}
	for _, info := range infos {
		if info.Questions == 0 {
			t.Errorf("%s: no questions", info.Difficulty)
		}
		if info.TimeLimitSeconds != want[info.Difficulty] {
			t.Errorf("%s: time limit %d, want %d", info.Difficulty, info.TimeLimitSeconds, want[info.Difficulty])
		}
	}
}
