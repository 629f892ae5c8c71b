package llm

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Provider names accepted in Config.Provider.
const (
	ProviderNone       = "none"
	ProviderAnthropic  = "anthropic"
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderMock       = "mock"
)

// Config selects and configures an LLM backend for guidance hints.
type Config struct {
	Provider string

	Anthropic  AnthropicConfig
	OpenAI     OpenAIConfig
	Gemini     GeminiConfig
	OpenRouter OpenRouterConfig
	Retry      RetryConfig

	// Timeout bounds a single guidance call, retries included.
	Timeout time.Duration
}

type AnthropicConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type OpenRouterConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// RetryConfig controls exponential backoff in WithRetry.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultConfig returns a disabled provider with the default models filled
// in. Hints fall back to the built-in rules until a provider is chosen.
func DefaultConfig() Config {
	return Config{
		Provider:   ProviderNone,
		Anthropic:  AnthropicConfig{Model: "claude-haiku"},
		OpenAI:     OpenAIConfig{Model: "gpt-4o-mini"},
		Gemini:     GeminiConfig{Model: "gemini-flash"},
		OpenRouter: OpenRouterConfig{Model: "google/gemini-2.0-flash-001"},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: 500 * time.Millisecond,
			MaxWait:     5 * time.Second,
			Multiplier:  2.0,
		},
		Timeout: 20 * time.Second,
	}
}

// ConfigFromEnv applies VLAB_* environment variables on top of
// DefaultConfig.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	bindings := []struct {
		env string
		dst *string
	}{
		{"VLAB_LLM_PROVIDER", &cfg.Provider},
		{"VLAB_ANTHROPIC_API_KEY", &cfg.Anthropic.APIKey},
		{"VLAB_ANTHROPIC_MODEL", &cfg.Anthropic.Model},
		{"VLAB_ANTHROPIC_BASE_URL", &cfg.Anthropic.BaseURL},
		{"VLAB_OPENAI_API_KEY", &cfg.OpenAI.APIKey},
		{"VLAB_OPENAI_MODEL", &cfg.OpenAI.Model},
		{"VLAB_OPENAI_BASE_URL", &cfg.OpenAI.BaseURL},
		{"VLAB_GEMINI_API_KEY", &cfg.Gemini.APIKey},
		{"VLAB_GEMINI_MODEL", &cfg.Gemini.Model},
		{"VLAB_OPENROUTER_API_KEY", &cfg.OpenRouter.APIKey},
		{"VLAB_OPENROUTER_MODEL", &cfg.OpenRouter.Model},
		{"VLAB_OPENROUTER_BASE_URL", &cfg.OpenRouter.BaseURL},
	}
	for _, b := range bindings {
		if v := os.Getenv(b.env); v != "" {
			*b.dst = v
		}
	}

	if v := os.Getenv("VLAB_LLM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Timeout = d
		}
	}
	if v := os.Getenv("VLAB_LLM_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Retry.MaxAttempts = n
		}
	}

	return cfg
}

// DiscoverConfig looks for the vendors' own API key variables when
// VLAB_LLM_PROVIDER is unset. The first key found wins, in the order
// Anthropic, OpenAI, Gemini, OpenRouter.
func DiscoverConfig() (Config, bool) {
	cfg := DefaultConfig()

	candidates := []struct {
		env      string
		provider string
		dst      *string
	}{
		{"ANTHROPIC_API_KEY", ProviderAnthropic, &cfg.Anthropic.APIKey},
		{"OPENAI_API_KEY", ProviderOpenAI, &cfg.OpenAI.APIKey},
		{"GEMINI_API_KEY", ProviderGemini, &cfg.Gemini.APIKey},
		{"OPENROUTER_API_KEY", ProviderOpenRouter, &cfg.OpenRouter.APIKey},
	}
	for _, c := range candidates {
		if k := os.Getenv(c.env); k != "" {
			cfg.Provider = c.provider
			*c.dst = k
			return cfg, true
		}
	}
	return Config{}, false
}

// ResolveConfig returns ConfigFromEnv when a provider is set explicitly and
// falls back to DiscoverConfig otherwise.
func ResolveConfig() Config {
	cfg := ConfigFromEnv()
	if cfg.Provider != ProviderNone && cfg.Provider != "" {
		return cfg
	}
	if found, ok := DiscoverConfig(); ok {
		found.Timeout = cfg.Timeout
		found.Retry = cfg.Retry
		return found
	}
	return cfg
}

// Enabled reports whether a real or mock provider is selected.
func (c Config) Enabled() bool {
	return c.Provider != "" && c.Provider != ProviderNone
}

// Validate checks that the selected provider has its API key.
func (c Config) Validate() error {
	var key, env string
	switch c.Provider {
	case "", ProviderNone, ProviderMock:
		return nil
	case ProviderAnthropic:
		key, env = c.Anthropic.APIKey, "VLAB_ANTHROPIC_API_KEY"
	case ProviderOpenAI:
		key, env = c.OpenAI.APIKey, "VLAB_OPENAI_API_KEY"
	case ProviderGemini:
		key, env = c.Gemini.APIKey, "VLAB_GEMINI_API_KEY"
	case ProviderOpenRouter:
		key, env = c.OpenRouter.APIKey, "VLAB_OPENROUTER_API_KEY"
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	if key == "" {
		return fmt.Errorf("%s is required for the %s provider", env, c.Provider)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry max attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	return nil
}
