package record

import (
	"context"
	"fmt"
	"time"

	"github.com/abhisek/vlab/internal/challenge"
	"github.com/abhisek/vlab/internal/experiment"
	"github.com/abhisek/vlab/internal/store"
)

// Sink writes finished runs to a store.RunRepo as records plus their
// indexed columns.
type Sink struct {
	runs store.RunRepo
	now  func() time.Time
}

func NewSink(runs store.RunRepo) *Sink {
	return &Sink{runs: runs, now: time.Now}
}

// RecordExperiment stores an experiment snapshot under id.
func (s *Sink) RecordExperiment(ctx context.Context, id string, snap experiment.Snapshot) error {
	rec := NewExperiment(id, snap, s.now())
	data, err := EncodeExperiment(rec)
	if err != nil {
		return err
	}
	run := ExperimentRun(rec)
	run.Record = data
	if err := s.runs.SaveExperiment(ctx, &run); err != nil {
		return fmt.Errorf("record experiment %s: %w", id, err)
	}
	return nil
}

// RecordChallenge stores a finished challenge session.
func (s *Sink) RecordChallenge(ctx context.Context, sess *challenge.Session) error {
	rec := NewChallenge(sess, s.now())
	data, err := EncodeChallenge(rec)
	if err != nil {
		return err
	}
	run := ChallengeRun(rec)
	run.Record = data
	if err := s.runs.SaveChallenge(ctx, &run); err != nil {
		return fmt.Errorf("record challenge %s: %w", sess.ID, err)
	}
	return nil
}

// ExperimentRun maps a record to its store row, without the record body.
func ExperimentRun(r Experiment) store.ExperimentRun {
	return store.ExperimentRun{
		RunID:         r.ID,
		CreatedAt:     r.CreatedAt,
		Archetype:     string(r.Archetype),
		Solution:      string(r.Solution),
		Ticks:         r.State.TimeElapsedTicks,
		WaterMovement: r.State.WaterMovement,
		CellSize:      r.State.CellSize,
		FinalPhase:    string(r.Phase),
		CurrentStep:   int(r.State.CurrentStep),
		Completed:     r.State.Completed,
		Ruptured:      r.State.Ruptured,
		Observations:  len(r.State.Observations),
	}
}

// ChallengeRun maps a record to its store row, without the record body.
func ChallengeRun(r Challenge) store.ChallengeRun {
	return store.ChallengeRun{
		RunID:       r.ID,
		CreatedAt:   r.CreatedAt,
		Difficulty:  string(r.Session.Difficulty),
		Score:       r.Session.Score,
		MaxPossible: r.Rank.MaxPossible,
		Percent:     r.Rank.Percent,
		RankLabel:   r.Rank.Label,
		Correct:     r.Session.Correct(),
		Answered:    len(r.Session.Answers),
		Total:       len(r.Session.Questions),
		BestStreak:  r.Session.BestStreak,
		TimedOut:    r.Session.TimedOut,
	}
}
