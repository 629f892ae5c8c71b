package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/abhisek/vlab/internal/config"
	"github.com/abhisek/vlab/internal/guidance"
	"github.com/abhisek/vlab/internal/llm"
	"github.com/abhisek/vlab/internal/logging"
	"github.com/abhisek/vlab/internal/store"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "vlab",
	Short: "Osmosis virtual lab",
	Long: "vlab is a terminal osmosis lab: place a potato, onion or red blood cell in a solution,\n" +
		"watch water cross the membrane, and test yourself with timed challenges.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLab(cmd)
	},
}

// Execute runs the root command. ctx is cancelled on interrupt.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config file (overrides VLAB_CONFIG env var)")
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides VLAB_DB env var)")

	rootCmd.AddCommand(labCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then the config file or VLAB_DB, then the default XDG path.
func resolveDBPath(cmd *cobra.Command, cfg *config.Config) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if cfg != nil && cfg.DB != "" {
		return cfg.DB, store.EnsureDir(cfg.DB)
	}
	return store.DefaultDBPath()
}

func openStore(cmd *cobra.Command, cfg *config.Config) (*store.Store, error) {
	dbPath, err := resolveDBPath(cmd, cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}

// newLogger builds the logger for a command. The TUI owns the terminal, so
// with tui set logs go to a file even when none is configured.
func newLogger(cfg *config.Config, tui bool) (*slog.Logger, io.Closer, error) {
	path := cfg.Logging.File
	if path == "" && tui {
		dir, err := store.DataDir()
		if err != nil {
			return nil, nil, err
		}
		path = filepath.Join(dir, "vlab.log")
	}
	if path == "" {
		return logging.NewLogger(cfg.Logging.Level, os.Stderr), io.NopCloser(nil), nil
	}
	return logging.OpenFile(cfg.Logging.Level, path)
}

// newGuidance returns an LLM-backed hint service when a provider is
// configured and a rules-only one otherwise.
func newGuidance(ctx context.Context, events store.EventRepo, logger *slog.Logger) *guidance.Service {
	llmCfg := llm.ResolveConfig()
	if !llmCfg.Enabled() {
		return guidance.NewService(nil)
	}
	provider, err := llm.NewProvider(ctx, llmCfg, events, logger)
	if err != nil {
		logger.Warn("llm provider unavailable, hints use built-in rules", "provider", llmCfg.Provider, "err", err)
		return guidance.NewService(nil)
	}
	gcfg := guidance.DefaultConfig()
	if llmCfg.Timeout > 0 {
		gcfg.Timeout = llmCfg.Timeout
	}
	logger.Info("llm hints enabled", "provider", llmCfg.Provider, "model", provider.ModelID())
	return guidance.NewService(guidance.NewLLMHinter(provider, gcfg, logger))
}
