package record

import (
	"context"
	"fmt"

	"github.com/abhisek/vlab/internal/store"
)

// resumeKeep is how many lab snapshots survive a save.
const resumeKeep = 5

// SaveResume stores r as the newest lab snapshot and prunes older ones.
func SaveResume(ctx context.Context, repo store.SnapshotRepo, r Experiment) error {
	data, err := EncodeExperiment(r)
	if err != nil {
		return err
	}
	if err := repo.Save(ctx, &store.Snapshot{Timestamp: r.CreatedAt, Data: data}); err != nil {
		return fmt.Errorf("save resume snapshot: %w", err)
	}
	if err := repo.Prune(ctx, resumeKeep); err != nil {
		return fmt.Errorf("prune resume snapshots: %w", err)
	}
	return nil
}

// LoadResume returns the newest saved experiment, or nil if there is none.
func LoadResume(ctx context.Context, repo store.SnapshotRepo) (*Experiment, error) {
	snap, err := repo.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("load resume snapshot: %w", err)
	}
	if snap == nil {
		return nil, nil
	}
	r, err := DecodeExperiment(snap.Data)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
