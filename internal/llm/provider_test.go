package llm

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/abhisek/vlab/internal/store"
)

type memEvents struct {
	mu     sync.Mutex
	events []store.LLMRequestEventData
	err    error
}

func (m *memEvents) AppendLLMRequest(_ context.Context, data store.LLMRequestEventData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, data)
	return nil
}

func (m *memEvents) QueryLLMEvents(context.Context, store.QueryOpts) ([]store.LLMRequestEvent, error) {
	return nil, nil
}

func TestMockProvider_Queue(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{"a":1}`), Usage: Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}},
	)
	mock.Enqueue(MockResponse{Err: &ErrRateLimit{}})

	resp, err := mock.Generate(context.Background(), Request{System: "sys"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp.Content) != `{"a":1}` || resp.Usage.InputTokens != 10 || resp.StopReason != "end" {
		t.Fatalf("resp = %+v", resp)
	}

	_, err = mock.Generate(context.Background(), Request{})
	var rl *ErrRateLimit
	if !errors.As(err, &rl) {
		t.Fatalf("expected ErrRateLimit, got %T", err)
	}

	_, err = mock.Generate(context.Background(), Request{})
	var unavail *ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("expected ErrProviderUnavailable on empty queue, got %T", err)
	}

	calls := mock.Calls()
	if len(calls) != 3 || calls[0].System != "sys" {
		t.Fatalf("calls = %+v", calls)
	}
}

func TestMockProvider_ValidatesSchema(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{"text":"x"}`)})
	_, err := mock.Generate(context.Background(), Request{Schema: hintSchema()})
	var inv *ErrInvalidResponse
	if !errors.As(err, &inv) {
		t.Fatalf("expected ErrInvalidResponse, got %T (%v)", err, err)
	}
}

func TestPurposeContext(t *testing.T) {
	ctx := context.Background()
	if p := PurposeFrom(ctx); p != PurposeUnknown {
		t.Fatalf("PurposeFrom(empty) = %q, want %q", p, PurposeUnknown)
	}
	ctx = WithPurpose(ctx, PurposeStepHint)
	if p := PurposeFrom(ctx); p != PurposeStepHint {
		t.Fatalf("PurposeFrom = %q, want %q", p, PurposeStepHint)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := DefaultConfig()
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"disabled", func(c *Config) {}, ""},
		{"mock", func(c *Config) { c.Provider = ProviderMock }, ""},
		{"anthropic without key", func(c *Config) { c.Provider = ProviderAnthropic }, "VLAB_ANTHROPIC_API_KEY"},
		{"anthropic with key", func(c *Config) {
			c.Provider = ProviderAnthropic
			c.Anthropic.APIKey = "sk"
		}, ""},
		{"openrouter without key", func(c *Config) { c.Provider = ProviderOpenRouter }, "VLAB_OPENROUTER_API_KEY"},
		{"gemini zero attempts", func(c *Config) {
			c.Provider = ProviderGemini
			c.Gemini.APIKey = "k"
			c.Retry.MaxAttempts = 0
		}, "max attempts"},
		{"unknown", func(c *Config) { c.Provider = "llama" }, "unknown LLM provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func clearLLMEnv(t *testing.T) {
	for _, k := range []string{
		"VLAB_LLM_PROVIDER", "VLAB_LLM_TIMEOUT", "VLAB_LLM_MAX_ATTEMPTS",
		"VLAB_OPENAI_API_KEY", "VLAB_ANTHROPIC_API_KEY",
		"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY", "OPENROUTER_API_KEY",
	} {
		t.Setenv(k, "")
	}
}

func TestConfigFromEnv(t *testing.T) {
	clearLLMEnv(t)
	t.Setenv("VLAB_LLM_PROVIDER", "openai")
	t.Setenv("VLAB_OPENAI_API_KEY", "sk-env")
	t.Setenv("VLAB_OPENAI_MODEL", "gpt")
	t.Setenv("VLAB_LLM_TIMEOUT", "3s")
	t.Setenv("VLAB_LLM_MAX_ATTEMPTS", "5")

	cfg := ConfigFromEnv()
	if cfg.Provider != ProviderOpenAI || cfg.OpenAI.APIKey != "sk-env" || cfg.OpenAI.Model != "gpt" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Timeout.Seconds() != 3 || cfg.Retry.MaxAttempts != 5 {
		t.Fatalf("timeout = %v attempts = %d", cfg.Timeout, cfg.Retry.MaxAttempts)
	}
}

func TestResolveConfig(t *testing.T) {
	t.Run("nothing set", func(t *testing.T) {
		clearLLMEnv(t)
		if cfg := ResolveConfig(); cfg.Enabled() {
			t.Fatalf("expected disabled config, got %q", cfg.Provider)
		}
	})

	t.Run("discovers vendor key", func(t *testing.T) {
		clearLLMEnv(t)
		t.Setenv("GEMINI_API_KEY", "g")
		t.Setenv("OPENROUTER_API_KEY", "o")
		cfg := ResolveConfig()
		if cfg.Provider != ProviderGemini || cfg.Gemini.APIKey != "g" {
			t.Fatalf("cfg = %+v", cfg)
		}
	})

	t.Run("explicit provider wins", func(t *testing.T) {
		clearLLMEnv(t)
		t.Setenv("VLAB_LLM_PROVIDER", "mock")
		t.Setenv("ANTHROPIC_API_KEY", "a")
		if cfg := ResolveConfig(); cfg.Provider != ProviderMock {
			t.Fatalf("provider = %q, want mock", cfg.Provider)
		}
	})
}

func TestNewProvider(t *testing.T) {
	ctx := context.Background()

	if _, err := NewProvider(ctx, DefaultConfig(), nil, nil); !errors.Is(err, ErrDisabled) {
		t.Fatalf("disabled: err = %v, want ErrDisabled", err)
	}

	cfg := DefaultConfig()
	cfg.Provider = ProviderAnthropic
	if _, err := NewProvider(ctx, cfg, nil, nil); err == nil {
		t.Fatal("expected validation error without API key")
	}

	cfg.Provider = ProviderMock
	events := &memEvents{}
	p, err := NewProvider(ctx, cfg, events, nil)
	if err != nil {
		t.Fatalf("mock: %v", err)
	}
	if _, ok := p.(*RetryProvider); !ok {
		t.Fatalf("provider = %T, want *RetryProvider", p)
	}
	if p.ModelID() != "mock" {
		t.Fatalf("ModelID = %q", p.ModelID())
	}
}

func TestLoggingProvider_RecordsEvents(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{"text":"hi","suggestions":[]}`), Usage: Usage{InputTokens: 12, OutputTokens: 4}},
		MockResponse{Err: &ErrProviderUnavailable{}},
	)
	events := &memEvents{}
	p := WithLogging(mock, ProviderMock, events, nil)

	ctx := WithPurpose(context.Background(), PurposeStepHint)
	req := Request{
		System:   "be brief",
		Messages: []Message{{Role: RoleUser, Content: "step 3"}},
		Schema:   hintSchema(),
	}
	if _, err := p.Generate(ctx, req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.Generate(ctx, req); err == nil {
		t.Fatal("expected error from second call")
	}

	if len(events.events) != 2 {
		t.Fatalf("events = %d, want 2", len(events.events))
	}
	first, second := events.events[0], events.events[1]
	if !first.Success || first.Purpose != PurposeStepHint || first.Provider != ProviderMock {
		t.Fatalf("first = %+v", first)
	}
	if first.InputTokens != 12 || first.OutputTokens != 4 {
		t.Fatalf("tokens = %d/%d", first.InputTokens, first.OutputTokens)
	}
	for _, want := range []string{"[system]\nbe brief", "[user]\nstep 3", "[schema: lab-hint]"} {
		if !strings.Contains(first.RequestBody, want) {
			t.Errorf("RequestBody missing %q:\n%s", want, first.RequestBody)
		}
	}
	if second.Success || second.ErrorMessage == "" {
		t.Fatalf("second = %+v", second)
	}
}

func TestLoggingProvider_StoreFailureIgnored(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`"ok"`)})
	p := WithLogging(mock, ProviderMock, &memEvents{err: errors.New("disk full")}, nil)
	if _, err := p.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("store failure leaked into Generate: %v", err)
	}
}

func TestPricing(t *testing.T) {
	c := LookupCost("claude-haiku-4-5-20251001")
	if c == nil {
		t.Fatal("expected pricing for claude haiku")
	}
	if got := c.Cost(1_000_000, 1_000_000); got != 6 {
		t.Fatalf("Cost = %v, want 6", got)
	}
	if LookupCost("google/gemini-2.0-flash-001") == nil {
		t.Fatal("expected OpenRouter slug to resolve")
	}
	if LookupCost("mystery-model") != nil {
		t.Fatal("expected nil for unknown model")
	}

	events := []store.LLMRequestEvent{
		{LLMRequestEventData: store.LLMRequestEventData{Model: "gpt-4o-mini", InputTokens: 1_000_000}},
		{LLMRequestEventData: store.LLMRequestEventData{Model: "gpt-4o-mini", OutputTokens: 1_000_000}},
		{LLMRequestEventData: store.LLMRequestEventData{Model: "mock"}},
	}
	usd, unpriced := EstimateCost(events)
	if math.Abs(usd-0.75) > 1e-9 || unpriced != 1 {
		t.Fatalf("EstimateCost = %v, %d; want 0.75, 1", usd, unpriced)
	}
}
