package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Table and column definitions, laid out the way ent's migrate package
// declares them.

var (
	// ExperimentRunsColumns holds the columns for the "experiment_runs" table.
	ExperimentRunsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64},
		{Name: "run_id", Type: field.TypeString, Unique: true},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "archetype", Type: field.TypeString},
		{Name: "solution", Type: field.TypeString},
		{Name: "ticks", Type: field.TypeInt},
		{Name: "water_movement", Type: field.TypeFloat64},
		{Name: "cell_size", Type: field.TypeFloat64},
		{Name: "final_phase", Type: field.TypeString},
		{Name: "current_step", Type: field.TypeInt},
		{Name: "completed", Type: field.TypeBool, Default: false},
		{Name: "ruptured", Type: field.TypeBool, Default: false},
		{Name: "observations", Type: field.TypeInt, Default: 0},
		{Name: "record", Type: field.TypeJSON, Nullable: true},
	}
	// ExperimentRunsTable holds the schema information for the "experiment_runs" table.
	ExperimentRunsTable = &schema.Table{
		Name:       "experiment_runs",
		Columns:    ExperimentRunsColumns,
		PrimaryKey: []*schema.Column{ExperimentRunsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "experimentrun_created_at",
				Unique:  false,
				Columns: []*schema.Column{ExperimentRunsColumns[3]},
			},
		},
	}

	// ChallengeRunsColumns holds the columns for the "challenge_runs" table.
	ChallengeRunsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64},
		{Name: "run_id", Type: field.TypeString, Unique: true},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "difficulty", Type: field.TypeString},
		{Name: "score", Type: field.TypeInt},
		{Name: "max_possible", Type: field.TypeInt},
		{Name: "percent", Type: field.TypeFloat64},
		{Name: "rank_label", Type: field.TypeString},
		{Name: "correct", Type: field.TypeInt},
		{Name: "answered", Type: field.TypeInt},
		{Name: "total", Type: field.TypeInt},
		{Name: "best_streak", Type: field.TypeInt},
		{Name: "timed_out", Type: field.TypeBool, Default: false},
		{Name: "record", Type: field.TypeJSON, Nullable: true},
	}
	// ChallengeRunsTable holds the schema information for the "challenge_runs" table.
	ChallengeRunsTable = &schema.Table{
		Name:       "challenge_runs",
		Columns:    ChallengeRunsColumns,
		PrimaryKey: []*schema.Column{ChallengeRunsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "challengerun_difficulty_score",
				Unique:  false,
				Columns: []*schema.Column{ChallengeRunsColumns[4], ChallengeRunsColumns[5]},
			},
			{
				Name:    "challengerun_created_at",
				Unique:  false,
				Columns: []*schema.Column{ChallengeRunsColumns[3]},
			},
		},
	}

	// LlmRequestEventsColumns holds the columns for the "llm_request_events" table.
	LlmRequestEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "timestamp", Type: field.TypeTime},
		{Name: "provider", Type: field.TypeString},
		{Name: "model", Type: field.TypeString},
		{Name: "purpose", Type: field.TypeString},
		{Name: "input_tokens", Type: field.TypeInt, Default: 0},
		{Name: "output_tokens", Type: field.TypeInt, Default: 0},
		{Name: "latency_ms", Type: field.TypeInt64},
		{Name: "success", Type: field.TypeBool},
		{Name: "error_message", Type: field.TypeString, Nullable: true},
		{Name: "request_body", Type: field.TypeString, Size: 2147483647, Nullable: true},
		{Name: "response_body", Type: field.TypeString, Size: 2147483647, Nullable: true},
	}
	// LlmRequestEventsTable holds the schema information for the "llm_request_events" table.
	LlmRequestEventsTable = &schema.Table{
		Name:       "llm_request_events",
		Columns:    LlmRequestEventsColumns,
		PrimaryKey: []*schema.Column{LlmRequestEventsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "llmrequestevent_purpose",
				Unique:  false,
				Columns: []*schema.Column{LlmRequestEventsColumns[5]},
			},
		},
	}

	// LabSnapshotsColumns holds the columns for the "lab_snapshots" table.
	LabSnapshotsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64},
		{Name: "timestamp", Type: field.TypeTime},
		{Name: "data", Type: field.TypeJSON},
	}
	// LabSnapshotsTable holds the schema information for the "lab_snapshots" table.
	LabSnapshotsTable = &schema.Table{
		Name:       "lab_snapshots",
		Columns:    LabSnapshotsColumns,
		PrimaryKey: []*schema.Column{LabSnapshotsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "labsnapshot_timestamp",
				Unique:  false,
				Columns: []*schema.Column{LabSnapshotsColumns[2]},
			},
		},
	}

	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		ExperimentRunsTable,
		ChallengeRunsTable,
		LlmRequestEventsTable,
		LabSnapshotsTable,
	}
)
