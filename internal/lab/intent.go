package lab

import (
	"encoding/json"
	"fmt"
)

// IntentType names a user intent.
type IntentType string

const (
	IntentStart            IntentType = "start"
	IntentPause            IntentType = "pause"
	IntentReset            IntentType = "reset"
	IntentSetArchetype     IntentType = "setArchetype"
	IntentSetSolution      IntentType = "setSolution"
	IntentSetConcentration IntentType = "setConcentration"
	IntentAdvanceStep      IntentType = "advanceStep"
	IntentRetreatStep      IntentType = "retreatStep"
	IntentGoToStep         IntentType = "goToStep"
	IntentAddObservation   IntentType = "addObservation"
	IntentStartChallenge   IntentType = "startChallenge"
	IntentAnswerChallenge  IntentType = "answerChallenge"
	IntentNextQuestion     IntentType = "nextQuestion"
	IntentResetChallenge   IntentType = "resetChallenge"
)

// Intent is an inbound request from a presentation layer. Only the fields
// relevant to Type are read.
type Intent struct {
	Type IntentType `json:"type"`

	Solution   string   `json:"solution,omitempty"`
	Archetype  string   `json:"archetype,omitempty"`
	Inside     *float64 `json:"inside,omitempty"`
	Outside    *float64 `json:"outside,omitempty"`
	Step       *int     `json:"step,omitempty"`
	Text       string   `json:"text,omitempty"`
	Difficulty string   `json:"difficulty,omitempty"`
	TimeLimit  int      `json:"timeLimit,omitempty"`
	Option     *int     `json:"option,omitempty"`
}

// DecodeIntent parses an intent from JSON.
func DecodeIntent(data []byte) (Intent, error) {
	var in Intent
	if err := json.Unmarshal(data, &in); err != nil {
		return Intent{}, fmt.Errorf("decode intent: %w", err)
	}
	if in.Type == "" {
		return Intent{}, fmt.Errorf("decode intent: missing type")
	}
	return in, nil
}
