package guidance

import "github.com/abhisek/vlab/internal/llm"

// HintSchema is the structured output requested from the LLM.
var HintSchema = &llm.Schema{
	Name:        "lab-hint",
	Description: "A short hint for the learner's current step in an osmosis lab",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{
				"type":        "string",
				"description": "One to three sentences addressed to the learner",
				"minLength":   1,
			},
			"suggestions": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Up to three concrete next actions (3-10 words each)",
				"maxItems":    3,
			},
		},
		"required":             []any{"text", "suggestions"},
		"additionalProperties": false,
	},
}
