package cmd

import (
	"fmt"

	"github.com/abhisek/vlab/internal/lab"
	"github.com/abhisek/vlab/internal/record"
	"github.com/abhisek/vlab/internal/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the lab over HTTP and websocket",
	Long: "serve runs one shared lab and exposes it at /api/state, /api/intent,\n" +
		"/api/guidance, /api/challenges and the /ws snapshot stream.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}

		logger, logCloser, err := newLogger(cfg, false)
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
			Logger:     logger.With("component", "lab"),
		})
		defer l.Close()

		srv := server.New(l, newGuidance(ctx, st.EventRepo(), logger), server.Options{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			Logger:         logger.With("component", "server"),
		})
		defer srv.Close()

		return srv.ListenAndServe(ctx, cfg.Server.Addr)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (default from config, 127.0.0.1:8080)")
}
