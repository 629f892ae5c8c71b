package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/abhisek/vlab/internal/app"
	"github.com/abhisek/vlab/internal/lab"
	"github.com/abhisek/vlab/internal/record"
	"github.com/spf13/cobra"
)

var labCmd = &cobra.Command{
	Use:   "lab",
	Short: "Open the interactive lab (default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLab(cmd)
	},
}

func init() {
	for _, c := range []*cobra.Command{rootCmd, labCmd} {
		c.Flags().Bool("fresh", false, "Start a new experiment instead of resuming the last one")
		c.Flags().Bool("skip-welcome", false, "Open the home screen directly")
	}
}

// runLab opens the store, builds the lab and launches the TUI. The
// experiment is saved on exit and resumed on the next start.
func runLab(cmd *cobra.Command) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, logCloser, err := newLogger(cfg, true)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer logCloser.Close()

	st, err := openStore(cmd, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	rules := cfg.Challenge
	l := lab.New(lab.Options{
		Experiment: cfg.ExperimentConfig(),
		Rules:      &rules,
		TickPeriod: cfg.Lab.TickPeriod,
		Recorder:   record.NewSink(st.RunRepo()),
		Logger:     logger,
	})
	defer l.Close()

	if fresh, _ := cmd.Flags().GetBool("fresh"); !fresh {
		saved, err := record.LoadResume(ctx, st.SnapshotRepo())
		switch {
		case err != nil:
			logger.Warn("resume failed, starting fresh", "err", err)
		case saved != nil:
			l.Restore(*saved)
			logger.Info("resumed experiment", "archetype", saved.Archetype, "step", saved.State.CurrentStep.String())
		}
	}

	skip, _ := cmd.Flags().GetBool("skip-welcome")
	runErr := app.Run(ctx, app.Options{
		Lab:         l,
		Guide:       newGuidance(ctx, st.EventRepo(), logger),
		Runs:        st.RunRepo(),
		SkipWelcome: skip,
		Logger:      logger,
	})

	snap := l.Snapshot()
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := record.SaveResume(saveCtx, st.SnapshotRepo(), record.NewExperiment(l.ExperimentID(), snap.Experiment, time.Now())); err != nil {
		logger.Warn("save resume snapshot", "err", err)
	}
	return runErr
}
