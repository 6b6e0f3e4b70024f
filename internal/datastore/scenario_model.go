package datastore

import (
	"database/sql"
	"time"
)

// Scenario types supported by the judge rubric.
const (
	ScenarioTypeTaskCompletion       = "task-completion"
	ScenarioTypeInformationRetrieval = "information-retrieval"
	ScenarioTypeConversationFlow     = "conversation-flow"
)

// ValidScenarioType reports whether t is one of the known scenario types.
// Empty is allowed; it falls back to the task-completion rubric at judge time.
func ValidScenarioType(t string) bool {
	switch t {
	case "", ScenarioTypeTaskCompletion, ScenarioTypeInformationRetrieval, ScenarioTypeConversationFlow:
		return true
	}
	return false
}

// Scenario maps to the scenarios table. PromptAudioPath, when set, is an
// object key in audio storage for a spoken version of the prompt.
type Scenario struct {
	ID              int            `json:"id"`
	Name            string         `json:"name"`
	PromptText      string         `json:"prompt_text"`
	ExpectedOutcome string         `json:"expected_outcome"`
	ScenarioType    string         `json:"scenario_type"`
	Difficulty      sql.NullString `json:"difficulty,omitempty"`
	PromptAudioPath sql.NullString `json:"prompt_audio_path,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}
