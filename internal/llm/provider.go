package llm

import (
	"context"
	"encoding/json"
)

// Provider is the interface every LLM backend implements.
type Provider interface {
	// Generate sends a request and returns the model output. When the
	// request carries a Schema the provider asks for structured output and
	// the returned Content has already been validated against it.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the resolved model identifier.
	ModelID() string
}

// Request describes a single generation call.
type Request struct {
	// System is the system prompt.
	System string

	// Messages is the conversation. Guidance calls send one user message
	// describing the bench.
	Messages []Message

	// Schema, when set, is the JSON Schema the response must satisfy.
	// When nil the response Content is the raw model text.
	Schema *Schema

	// MaxTokens caps the response length.
	MaxTokens int

	// Temperature in [0,1]. Zero leaves the provider default.
	Temperature float64
}

// Message is one turn of the conversation.
type Message struct {
	Role    Role
	Content string
}

// Role is the sender of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema describes the JSON object a caller expects back.
type Schema struct {
	// Name is a kebab-case identifier, e.g. "lab-hint". It doubles as the
	// cache key for the compiled validator.
	Name string

	// Description is sent to providers that accept one.
	Description string

	// Definition is the JSON Schema document.
	Definition map[string]any
}

// Response is the output of a Generate call.
type Response struct {
	// Content is validated JSON when a Schema was requested, raw text
	// otherwise.
	Content json.RawMessage

	Usage Usage

	// Model is the model that served the request, as reported by the API.
	Model string

	// StopReason is normalized to "end" or "max_tokens".
	StopReason string
}

// Usage is the token accounting for one request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
