package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/vlab/internal/experiment"
	"github.com/abhisek/vlab/internal/osmosis"
	"github.com/abhisek/vlab/internal/phase"
	"github.com/abhisek/vlab/internal/store"
)

// execute runs the root command with an isolated config and data home.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv("VLAB_CONFIG", "")
	t.Setenv("VLAB_DB", "")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSimulateJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, simulate(&buf, experiment.DefaultConfig(), 5, true))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 6)

	var first, last experiment.Snapshot
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(lines[5]), &last))

	assert.Equal(t, 0, first.TimeElapsedTicks)
	assert.Equal(t, 5, last.TimeElapsedTicks)
	assert.Equal(t, osmosis.ArchetypePotato, last.Archetype)
	assert.Greater(t, last.WaterMovement, 0.0, "hypotonic potato takes water in")
	assert.True(t, last.Running)
}

func TestSimulateTable(t *testing.T) {
	cfg := experiment.DefaultConfig()
	cfg.Archetype = osmosis.ArchetypeOnion
	cfg.Solution = osmosis.Hypertonic

	var buf bytes.Buffer
	require.NoError(t, simulate(&buf, cfg, 3, false))

	out := buf.String()
	assert.Contains(t, out, "Onion (plant, rigid) in hypertonic solution")
	assert.Contains(t, out, "Phase")
	// Header, rule, title, blank, tick 0 and three ticks.
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 8)
}

func TestSimulateCommandRejectsBadInput(t *testing.T) {
	_, err := execute(t, "simulate", "--archetype", "banana", "--db", filepath.Join(t.TempDir(), "v.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown archetype")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "vlab (devel)\n", out)
}

func TestHistoryEmpty(t *testing.T) {
	out, err := execute(t, "history", "--db", filepath.Join(t.TempDir(), "v.db"))
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded yet.")
}

func seedChallenge(t *testing.T, dbPath string) {
	t.Helper()
	s, err := store.Open(dbPath)
	require.NoError(t, err)
	defer s.Close()

	err = s.RunRepo().SaveChallenge(context.Background(), &store.ChallengeRun{
		RunID:       "run-1",
		Difficulty:  "beginner",
		Score:       85,
		MaxPossible: 100,
		Percent:     85,
		RankLabel:   "Advanced Learner",
		Correct:     8,
		Answered:    10,
		Total:       10,
		BestStreak:  4,
		Record:      json.RawMessage(`{"version":1,"id":"run-1"}`),
	})
	require.NoError(t, err)
}

func TestHistoryListsChallenges(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "v.db")
	seedChallenge(t, dbPath)

	out, err := execute(t, "history", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Best Scores")
	assert.Contains(t, out, "beginner")
	assert.Contains(t, out, "Advanced Learner")
	assert.Contains(t, out, "8/10")
}

func TestExportToDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "v.db")
	seedChallenge(t, dbPath)
	dir := t.TempDir()

	out, err := execute(t, "export", "--to", "fs", "--dir", dir, "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 0 experiments and 1 challenges to fs (0 skipped).")

	data, err := os.ReadFile(filepath.Join(dir, "challenge", "run-1.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":1,"id":"run-1"}`, string(data))
}

func TestExportRejectsUnknownDriver(t *testing.T) {
	_, err := execute(t, "export", "--to", "ftp", "--db", filepath.Join(t.TempDir(), "v.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown archive driver")
}

func TestPrintTickUsesPhaseName(t *testing.T) {
	var buf bytes.Buffer
	printTick(&buf, experiment.Snapshot{Phase: phase.Turgid})
	assert.Contains(t, buf.String(), "Turgid (high turgor)")
}
