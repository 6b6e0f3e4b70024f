package datastore

import (
	"database/sql"
	"time"
)

// EvalResult maps to the eval_results table. Exactly one row exists per
// (run_id, scenario_id, provider_id) triple, enforced by a unique constraint;
// the presence of a row means the pair is done, success or failure. Rows are
// never updated after insertion.
//
// Judge scores are 0-100 percentages derived from the judge's 1-10 raw
// scores. For a failed pair all metric fields are null, TaskCompleted is
// false and JudgeReasoning carries an "ERROR: " prefixed message.
type EvalResult struct {
	ID                int             `json:"id"`
	RunID             int             `json:"run_id"`
	ScenarioID        int             `json:"scenario_id"`
	ProviderConfigID  int             `json:"provider_config_id"`
	AudioPath         sql.NullString  `json:"audio_path,omitempty"`
	Transcript        sql.NullString  `json:"transcript,omitempty"`
	TTFBMs            sql.NullInt64   `json:"ttfb_ms,omitempty"`
	TotalLatencyMs    sql.NullInt64   `json:"total_latency_ms,omitempty"`
	WER               sql.NullFloat64 `json:"wer,omitempty"`
	AccuracyScore     sql.NullFloat64 `json:"accuracy_score,omitempty"`
	HelpfulnessScore  sql.NullFloat64 `json:"helpfulness_score,omitempty"`
	NaturalnessScore  sql.NullFloat64 `json:"naturalness_score,omitempty"`
	EfficiencyScore   sql.NullFloat64 `json:"efficiency_score,omitempty"`
	JudgeReasoning    sql.NullString  `json:"judge_reasoning,omitempty"`
	TaskCompleted     sql.NullBool    `json:"task_completed,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}
