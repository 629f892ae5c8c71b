package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/abhisek/vlab/internal/store"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved experiments, challenge results and best scores",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		limit, _ := cmd.Flags().GetInt("limit")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		s, err := openStore(cmd, cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		runs := s.RunRepo()
		best, err := runs.BestScores(ctx)
		if err != nil {
			return fmt.Errorf("query best scores: %w", err)
		}
		chals, err := runs.ListChallenges(ctx, store.QueryOpts{Limit: limit})
		if err != nil {
			return fmt.Errorf("query challenges: %w", err)
		}
		exps, err := runs.ListExperiments(ctx, store.QueryOpts{Limit: limit})
		if err != nil {
			return fmt.Errorf("query experiments: %w", err)
		}

		w := cmd.OutOrStdout()
		if len(best) == 0 && len(chals) == 0 && len(exps) == 0 {
			fmt.Fprintln(w, "No runs recorded yet.")
			return nil
		}
		printHistory(w, best, chals, exps)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "Number of runs of each kind to show")
}

func printHistory(w io.Writer, best []store.BestScore, chals []store.ChallengeRun, exps []store.ExperimentRun) {
	if len(best) > 0 {
		fmt.Fprintln(w, "Best Scores")
		fmt.Fprintln(w, strings.Repeat("─", 40))
		fmt.Fprintf(w, "%-14s  %8s  %6s\n", "Difficulty", "Score", "Runs")
		for _, b := range best {
			fmt.Fprintf(w, "%-14s  %8d  %6d\n", b.Difficulty, b.Score, b.Runs)
		}
		fmt.Fprintln(w)
	}

	if len(chals) > 0 {
		fmt.Fprintln(w, "Challenges")
		fmt.Fprintln(w, strings.Repeat("─", 86))
		fmt.Fprintf(w, "%-16s  %-12s  %6s  %6s  %-22s  %7s  %6s\n",
			"Date", "Difficulty", "Score", "Pct", "Rank", "Correct", "Streak")
		for _, c := range chals {
			rank := c.RankLabel
			if c.TimedOut {
				rank += " ⏱"
			}
			fmt.Fprintf(w, "%-16s  %-12s  %6d  %5.0f%%  %-22s  %3d/%-3d  %6d\n",
				c.CreatedAt.Local().Format("2006-01-02 15:04"),
				c.Difficulty, c.Score, c.Percent, truncate(rank, 22),
				c.Correct, c.Total, c.BestStreak)
		}
		fmt.Fprintln(w)
	}

	if len(exps) > 0 {
		fmt.Fprintln(w, "Experiments")
		fmt.Fprintln(w, strings.Repeat("─", 86))
		fmt.Fprintf(w, "%-16s  %-9s  %-11s  %6s  %8s  %-20s  %s\n",
			"Date", "Membrane", "Solution", "Ticks", "Water", "Phase", "Notes")
		for _, e := range exps {
			fmt.Fprintf(w, "%-16s  %-9s  %-11s  %6d  %+8.2f  %-20s  %d\n",
				e.CreatedAt.Local().Format("2006-01-02 15:04"),
				e.Archetype, e.Solution, e.Ticks, e.WaterMovement,
				truncate(e.FinalPhase, 20), e.Observations)
		}
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
