package llm

import "context"

// Purposes recorded on LLM request events.
const (
	PurposeStepHint     = "step-hint"
	PurposeChallengeTip = "challenge-tip"
	PurposeUnknown      = "unknown"
)

type purposeKey struct{}

// WithPurpose tags ctx with the reason for an LLM call. The logging
// decorator stores it with the request event.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey{}, purpose)
}

// PurposeFrom returns the purpose attached by WithPurpose, or PurposeUnknown.
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey{}).(string); ok && v != "" {
		return v
	}
	return PurposeUnknown
}
