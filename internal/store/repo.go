package store

import (
	"context"
	"encoding/json"
	"time"
)

// QueryOpts configures list queries with filtering and pagination.
type QueryOpts struct {
	Limit int       // max results (0 = unlimited)
	After int64     // sequence > After
	From  time.Time // created at >= From
}

// ExperimentRun is a finished or saved experiment session.
type ExperimentRun struct {
	ID            int
	Sequence      int64
	RunID         string
	CreatedAt     time.Time
	Archetype     string
	Solution      string
	Ticks         int
	WaterMovement float64
	CellSize      float64
	FinalPhase    string
	CurrentStep   int
	Completed     bool
	Ruptured      bool
	Observations  int

	// Record is the versioned session record, stored opaquely.
	Record json.RawMessage
}

// ChallengeRun is a finished challenge session.
type ChallengeRun struct {
	ID          int
	Sequence    int64
	RunID       string
	CreatedAt   time.Time
	Difficulty  string
	Score       int
	MaxPossible int
	Percent     float64
	RankLabel   string
	Correct     int
	Answered    int
	Total       int
	BestStreak  int
	TimedOut    bool
	Record      json.RawMessage
}

// BestScore is the top challenge result for a difficulty.
type BestScore struct {
	Difficulty string
	Score      int
	Runs       int
}

// RunRepo stores experiment and challenge runs.
type RunRepo interface {
	// SaveExperiment stores a run and fills in its ID and Sequence.
	SaveExperiment(ctx context.Context, run *ExperimentRun) error

	// SaveChallenge stores a run and fills in its ID and Sequence.
	SaveChallenge(ctx context.Context, run *ChallengeRun) error

	// GetExperiment returns the run with runID, or nil if it does not exist.
	GetExperiment(ctx context.Context, runID string) (*ExperimentRun, error)

	// GetChallenge returns the run with runID, or nil if it does not exist.
	GetChallenge(ctx context.Context, runID string) (*ChallengeRun, error)

	// ListExperiments returns runs newest first.
	ListExperiments(ctx context.Context, opts QueryOpts) ([]ExperimentRun, error)

	// ListChallenges returns runs newest first.
	ListChallenges(ctx context.Context, opts QueryOpts) ([]ChallengeRun, error)

	// BestScores returns the highest score per difficulty.
	BestScores(ctx context.Context) ([]BestScore, error)
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMRequestEvent is a stored LLM request event.
type LLMRequestEvent struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	LLMRequestEventData
}

// EventRepo provides append and query access to LLM request events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns events newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error)
}

// Snapshot is a point-in-time capture of the lab, used to resume.
type Snapshot struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	Data      json.RawMessage
}

// SnapshotRepo manages lab snapshots.
type SnapshotRepo interface {
	// Save stores a new snapshot.
	Save(ctx context.Context, snap *Snapshot) error

	// Latest returns the most recent snapshot, or nil if none exist.
	Latest(ctx context.Context) (*Snapshot, error)

	// Prune deletes all but the N most recent snapshots.
	Prune(ctx context.Context, keep int) error
}
