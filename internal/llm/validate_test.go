package llm

import (
	"encoding/json"
	"errors"
	"testing"
)

func hintSchema() *Schema {
	return &Schema{
		Name:        "lab-hint",
		Description: "A short hint for the current lab step",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{"type": "string", "minLength": 1},
				"suggestions": map[string]any{
					"type":     "array",
					"items":    map[string]any{"type": "string"},
					"maxItems": 3,
				},
			},
			"required":             []any{"text", "suggestions"},
			"additionalProperties": false,
		},
	}
}

func TestValidateResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", `{"text":"Look at the vacuole.","suggestions":["Measure"]}`, false},
		{"empty suggestions", `{"text":"ok","suggestions":[]}`, false},
		{"missing required", `{"text":"ok"}`, true},
		{"wrong type", `{"text":3,"suggestions":[]}`, true},
		{"blank text", `{"text":"","suggestions":[]}`, true},
		{"too many suggestions", `{"text":"ok","suggestions":["a","b","c","d"]}`, true},
		{"extra property", `{"text":"ok","suggestions":[],"score":1}`, true},
		{"malformed", `{not json}`, true},
		{"empty", ``, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateResponse(hintSchema(), json.RawMessage(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("validateResponse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var inv *ErrInvalidResponse
				if !errors.As(err, &inv) {
					t.Fatalf("expected ErrInvalidResponse, got %T", err)
				}
				if string(inv.Content) != tt.raw {
					t.Fatalf("Content = %q, want %q", inv.Content, tt.raw)
				}
			}
		})
	}
}

func TestValidateResponse_NilSchema(t *testing.T) {
	if err := validateResponse(nil, json.RawMessage(`anything`)); err != nil {
		t.Fatalf("expected no error with nil schema, got: %v", err)
	}
}

func TestValidateResponse_BadSchema(t *testing.T) {
	bad := &Schema{
		Name:       "broken-type",
		Definition: map[string]any{"type": 42},
	}
	err := validateResponse(bad, json.RawMessage(`{}`))
	var inv *ErrInvalidResponse
	if !errors.As(err, &inv) {
		t.Fatalf("expected ErrInvalidResponse for uncompilable schema, got %T (%v)", err, err)
	}
}
