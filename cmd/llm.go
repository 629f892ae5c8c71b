package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/abhisek/vlab/internal/llm"
	"github.com/abhisek/vlab/internal/store"
	"github.com/spf13/cobra"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect LLM hint requests",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent LLM events with an estimated cost",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		purpose, _ := cmd.Flags().GetString("purpose")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		s, err := openStore(cmd, cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		events, err := s.EventRepo().QueryLLMEvents(cmd.Context(), store.QueryOpts{Limit: limit})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		if purpose != "" {
			kept := events[:0]
			for _, e := range events {
				if e.Purpose == purpose {
					kept = append(kept, e)
				}
			}
			events = kept
		}

		w := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(w, "No LLM events found.")
			return nil
		}
		printLLMEvents(w, events)
		return nil
	},
}

var llmStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which LLM provider hints would use",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := llm.ResolveConfig()
		w := cmd.OutOrStdout()
		if !cfg.Enabled() {
			fmt.Fprintln(w, "LLM hints disabled; the built-in rules are used.")
			fmt.Fprintln(w, "Set VLAB_LLM_PROVIDER or a provider API key to enable them.")
			return
		}
		fmt.Fprintf(w, "Provider: %s\n", cfg.Provider)
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(w, "Problem:  %v\n", err)
		}
	},
}

func printLLMEvents(w io.Writer, events []store.LLMRequestEvent) {
	fmt.Fprintf(w, "%-5s  %-19s  %-14s  %-28s  %-6s  %-6s  %-7s  %s\n",
		"ID", "Timestamp", "Purpose", "Model", "In", "Out", "Ms", "OK")
	fmt.Fprintln(w, strings.Repeat("─", 100))

	for _, e := range events {
		ok := "✓"
		if !e.Success {
			ok = "✗"
		}
		fmt.Fprintf(w, "%-5d  %-19s  %-14s  %-28s  %-6d  %-6d  %-7d  %s\n",
			e.ID,
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			truncate(e.Purpose, 14),
			truncate(e.Model, 28),
			e.InputTokens,
			e.OutputTokens,
			e.LatencyMs,
			ok,
		)
	}

	fmt.Fprintln(w, strings.Repeat("─", 100))
	usd, unpriced := llm.EstimateCost(events)
	label := "Estimated cost"
	if unpriced > 0 {
		label += fmt.Sprintf(" (%d unpriced)", unpriced)
	}
	fmt.Fprintf(w, "%s: %s\n", label, formatCost(usd))
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func init() {
	llmListCmd.Flags().IntP("limit", "n", 20, "Number of events to show")
	llmListCmd.Flags().StringP("purpose", "p", "", "Filter by purpose (step-hint, challenge-tip)")

	llmCmd.AddCommand(llmListCmd)
	llmCmd.AddCommand(llmStatusCmd)
}
