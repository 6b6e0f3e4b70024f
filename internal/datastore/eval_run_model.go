package datastore

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Run statuses. Transitions only move forward through this list; a run never
// returns to an earlier status.
const (
	RunStatusPending   = "pending"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
	RunStatusCancelled = "cancelled"
)

// statusRank orders run statuses for the forward-only transition guard.
// completed, failed and cancelled are all terminal and mutually unreachable.
var statusRank = map[string]int{
	RunStatusPending:   0,
	RunStatusRunning:   1,
	RunStatusCompleted: 2,
	RunStatusFailed:    2,
	RunStatusCancelled: 2,
}

// EvalRun maps to the eval_runs table.
type EvalRun struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	ScenarioIDs json.RawMessage `json:"scenario_ids"` // JSONB ordered array of scenario IDs
	ProviderIDs json.RawMessage `json:"provider_ids"` // JSONB array of provider config IDs
	Status      string          `json:"status"`
	Progress    float64         `json:"progress"`     // completedPairs/totalPairs*100
	FailedPairs int             `json:"failed_pairs"` // pairs persisted as error rows
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	StartedAt   sql.NullTime    `json:"started_at,omitempty"`
	CompletedAt sql.NullTime    `json:"completed_at,omitempty"`
}

// MarshalIntSliceToJSON converts an ID slice to the JSONB representation the
// run table stores.
func MarshalIntSliceToJSON(ids []int) (json.RawMessage, error) {
	if ids == nil {
		return json.RawMessage("[]"), nil
	}
	bytes, err := json.Marshal(ids)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(bytes), nil
}

// UnmarshalJSONToIntSlice is the inverse of MarshalIntSliceToJSON.
func UnmarshalJSONToIntSlice(data json.RawMessage) ([]int, error) {
	if data == nil || string(data) == "null" || string(data) == "" {
		return []int{}, nil
	}
	var ids []int
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}
