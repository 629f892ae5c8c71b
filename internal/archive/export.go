package archive

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/abhisek/vlab/internal/record"
	"github.com/abhisek/vlab/internal/store"
)

// ExportOptions filters the runs copied by Export.
type ExportOptions struct {
	Since time.Time
	Limit int
	// Overwrite replaces objects that already exist.
	Overwrite bool
}

// ExportResult counts what Export did.
type ExportResult struct {
	Experiments int
	Challenges  int
	Skipped     int
}

// Export copies stored run records into dst. Runs without a record body
// and, unless Overwrite is set, runs already archived are skipped.
func Export(ctx context.Context, runs store.RunRepo, dst Store, opts ExportOptions, logger *slog.Logger) (ExportResult, error) {
	var res ExportResult
	q := store.QueryOpts{From: opts.Since, Limit: opts.Limit}

	existing := map[string]bool{}
	if !opts.Overwrite {
		for _, kind := range []record.Kind{record.KindExperiment, record.KindChallenge} {
			infos, err := dst.List(ctx, string(kind)+"/")
			if err != nil {
				return res, err
			}
			for _, info := range infos {
				existing[info.Key] = true
			}
		}
	}

	put := func(kind record.Kind, id string, data []byte) (bool, error) {
		key := Key(kind, id)
		if len(data) == 0 || existing[key] {
			res.Skipped++
			return false, nil
		}
		if err := dst.Put(ctx, key, data); err != nil {
			return false, err
		}
		if logger != nil {
			logger.Debug("archived record", "driver", dst.Driver(), "key", key)
		}
		return true, nil
	}

	exps, err := runs.ListExperiments(ctx, q)
	if err != nil {
		return res, fmt.Errorf("list experiments: %w", err)
	}
	for _, run := range exps {
		ok, err := put(record.KindExperiment, run.RunID, run.Record)
		if err != nil {
			return res, err
		}
		if ok {
			res.Experiments++
		}
	}

	chs, err := runs.ListChallenges(ctx, q)
	if err != nil {
		return res, fmt.Errorf("list challenges: %w", err)
	}
	for _, run := range chs {
		ok, err := put(record.KindChallenge, run.RunID, run.Record)
		if err != nil {
			return res, err
		}
		if ok {
			res.Challenges++
		}
	}
	return res, nil
}
