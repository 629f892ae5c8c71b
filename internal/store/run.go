package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// runRepo implements RunRepo on the experiment_runs and challenge_runs tables.
type runRepo struct {
	db  *sql.DB
	seq *sequenceCounter
}

var experimentColumns = []string{
	"id", "sequence", "run_id", "created_at", "archetype", "solution", "ticks",
	"water_movement", "cell_size", "final_phase", "current_step", "completed",
	"ruptured", "observations", "record",
}

var challengeColumns = []string{
	"id", "sequence", "run_id", "created_at", "difficulty", "score",
	"max_possible", "percent", "rank_label", "correct", "answered", "total",
	"best_streak", "timed_out", "record",
}

func (r *runRepo) SaveExperiment(ctx context.Context, run *ExperimentRun) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	run.CreatedAt = run.CreatedAt.UTC()

	query, args := entsql.Dialect(dialect.SQLite).
		Insert(ExperimentRunsTable.Name).
		Columns(experimentColumns[1:]...).
		Values(seqNum, run.RunID, run.CreatedAt, run.Archetype, run.Solution,
			run.Ticks, run.WaterMovement, run.CellSize, run.FinalPhase,
			run.CurrentStep, run.Completed, run.Ruptured, run.Observations,
			[]byte(run.Record)).
		Query()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("save experiment run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("save experiment run: %w", err)
	}
	run.ID = int(id)
	run.Sequence = seqNum
	return nil
}

func (r *runRepo) SaveChallenge(ctx context.Context, run *ChallengeRun) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	run.CreatedAt = run.CreatedAt.UTC()

	query, args := entsql.Dialect(dialect.SQLite).
		Insert(ChallengeRunsTable.Name).
		Columns(challengeColumns[1:]...).
		Values(seqNum, run.RunID, run.CreatedAt, run.Difficulty, run.Score,
			run.MaxPossible, run.Percent, run.RankLabel, run.Correct,
			run.Answered, run.Total, run.BestStreak, run.TimedOut,
			[]byte(run.Record)).
		Query()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("save challenge run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("save challenge run: %w", err)
	}
	run.ID = int(id)
	run.Sequence = seqNum
	return nil
}

func (r *runRepo) GetExperiment(ctx context.Context, runID string) (*ExperimentRun, error) {
	b := entsql.Dialect(dialect.SQLite)
	t := b.Table(ExperimentRunsTable.Name)
	query, args := b.Select(t.Columns(experimentColumns...)...).
		From(t).
		Where(entsql.EQ(t.C("run_id"), runID)).
		Limit(1).
		Query()

	runs, err := r.queryExperiments(ctx, query, args)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

func (r *runRepo) GetChallenge(ctx context.Context, runID string) (*ChallengeRun, error) {
	b := entsql.Dialect(dialect.SQLite)
	t := b.Table(ChallengeRunsTable.Name)
	query, args := b.Select(t.Columns(challengeColumns...)...).
		From(t).
		Where(entsql.EQ(t.C("run_id"), runID)).
		Limit(1).
		Query()

	runs, err := r.queryChallenges(ctx, query, args)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

func (r *runRepo) ListExperiments(ctx context.Context, opts QueryOpts) ([]ExperimentRun, error) {
	b := entsql.Dialect(dialect.SQLite)
	t := b.Table(ExperimentRunsTable.Name)
	sel := b.Select(t.Columns(experimentColumns...)...).From(t)
	applyOpts(sel, t, "created_at", opts)
	query, args := sel.Query()
	return r.queryExperiments(ctx, query, args)
}

func (r *runRepo) ListChallenges(ctx context.Context, opts QueryOpts) ([]ChallengeRun, error) {
	b := entsql.Dialect(dialect.SQLite)
	t := b.Table(ChallengeRunsTable.Name)
	sel := b.Select(t.Columns(challengeColumns...)...).From(t)
	applyOpts(sel, t, "created_at", opts)
	query, args := sel.Query()
	return r.queryChallenges(ctx, query, args)
}

func (r *runRepo) BestScores(ctx context.Context) ([]BestScore, error) {
	b := entsql.Dialect(dialect.SQLite)
	t := b.Table(ChallengeRunsTable.Name)
	query, args := b.Select(
		t.C("difficulty"),
		entsql.As(entsql.Max(t.C("score")), "best"),
		entsql.As(entsql.Count(t.C("id")), "runs"),
	).
		From(t).
		GroupBy(t.C("difficulty")).
		OrderBy(t.C("difficulty")).
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query best scores: %w", err)
	}
	defer rows.Close()

	var out []BestScore
	for rows.Next() {
		var bs BestScore
		if err := rows.Scan(&bs.Difficulty, &bs.Score, &bs.Runs); err != nil {
			return nil, fmt.Errorf("scan best score: %w", err)
		}
		out = append(out, bs)
	}
	return out, rows.Err()
}

func (r *runRepo) queryExperiments(ctx context.Context, query string, args []any) ([]ExperimentRun, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query experiment runs: %w", err)
	}
	defer rows.Close()

	var out []ExperimentRun
	for rows.Next() {
		var (
			run    ExperimentRun
			record []byte
		)
		if err := rows.Scan(&run.ID, &run.Sequence, &run.RunID, &run.CreatedAt,
			&run.Archetype, &run.Solution, &run.Ticks, &run.WaterMovement,
			&run.CellSize, &run.FinalPhase, &run.CurrentStep, &run.Completed,
			&run.Ruptured, &run.Observations, &record); err != nil {
			return nil, fmt.Errorf("scan experiment run: %w", err)
		}
		run.Record = record
		out = append(out, run)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return out, nil
}

func (r *runRepo) queryChallenges(ctx context.Context, query string, args []any) ([]ChallengeRun, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query challenge runs: %w", err)
	}
	defer rows.Close()

	var out []ChallengeRun
	for rows.Next() {
		var (
			run    ChallengeRun
			record []byte
		)
		if err := rows.Scan(&run.ID, &run.Sequence, &run.RunID, &run.CreatedAt,
			&run.Difficulty, &run.Score, &run.MaxPossible, &run.Percent,
			&run.RankLabel, &run.Correct, &run.Answered, &run.Total,
			&run.BestStreak, &run.TimedOut, &record); err != nil {
			return nil, fmt.Errorf("scan challenge run: %w", err)
		}
		run.Record = record
		out = append(out, run)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return out, nil
}
