package guidance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/abhisek/vlab/internal/llm"
)

// Config tunes LLM hint generation.
type Config struct {
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxTokens:   300,
		Temperature: 0.4,
		Timeout:     20 * time.Second,
	}
}

// LLMHinter asks an LLM for hints and falls back to RuleHinter on any
// error. The step and title always come from the rules.
type LLMHinter struct {
	provider llm.Provider
	cfg      Config
	logger   *slog.Logger
	fallback RuleHinter
}

// NewLLMHinter returns a hinter backed by provider. logger may be nil.
func NewLLMHinter(provider llm.Provider, cfg Config, logger *slog.Logger) *LLMHinter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LLMHinter{provider: provider, cfg: cfg, logger: logger}
}

type hintOutput struct {
	Text        string   `json:"text"`
	Suggestions []string `json:"suggestions"`
}

func (h *LLMHinter) Hint(ctx context.Context, v View) (Hint, error) {
	base, _ := h.fallback.Hint(ctx, v)

	out, err := h.generate(ctx, v)
	if err != nil {
		h.logger.Warn("llm hint failed, using rules", "step", v.Experiment.CurrentStep.String(), "err", err)
		return base, nil
	}

	base.Text = out.Text
	base.Suggestions = out.Suggestions
	base.Source = SourceLLM
	return base, nil
}

func (h *LLMHinter) generate(ctx context.Context, v View) (hintOutput, error) {
	if h.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.Timeout)
		defer cancel()
	}
	ctx = llm.WithPurpose(ctx, llm.PurposeStepHint)

	resp, err := h.provider.Generate(ctx, llm.Request{
		System:      hintSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: buildHintUserMessage(v)}},
		Schema:      HintSchema,
		MaxTokens:   h.cfg.MaxTokens,
		Temperature: h.cfg.Temperature,
	})
	if err != nil {
		return hintOutput{}, fmt.Errorf("hint generation: %w", err)
	}

	var out hintOutput
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return hintOutput{}, fmt.Errorf("parse hint response: %w", err)
	}
	out.Text = strings.TrimSpace(out.Text)
	if out.Text == "" {
		return hintOutput{}, fmt.Errorf("empty hint text")
	}
	return out, nil
}
