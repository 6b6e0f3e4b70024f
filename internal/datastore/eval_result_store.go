package datastore

import (
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// uniqueViolation is the Postgres error code raised when the
// (run_id, scenario_id, provider_config_id) unique constraint trips.
const uniqueViolation = "23505"

// CreateEvalResult inserts exactly one result row for a pair. A concurrent
// or retried duplicate insert for the same triple returns ErrDuplicateResult
// instead of a second row, which keeps resume counting safe.
func (s *Store) CreateEvalResult(result *EvalResult) (int, error) {
	if s.db == nil {
		return 0, errors.New("database connection not initialized")
	}

	query := `
		INSERT INTO eval_results (
			run_id, scenario_id, provider_config_id,
			audio_path, transcript, ttfb_ms, total_latency_ms,
			wer, accuracy_score, helpfulness_score, naturalness_score, efficiency_score,
			judge_reasoning, task_completed, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id
	`
	result.CreatedAt = time.Now()

	var id int
	err := s.db.QueryRow(
		query,
		result.RunID,
		result.ScenarioID,
		result.ProviderConfigID,
		result.AudioPath,
		result.Transcript,
		result.TTFBMs,
		result.TotalLatencyMs,
		result.WER,
		result.AccuracyScore,
		result.HelpfulnessScore,
		result.NaturalnessScore,
		result.EfficiencyScore,
		result.JudgeReasoning,
		result.TaskCompleted,
		result.CreatedAt,
	).Scan(&id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return 0, fmt.Errorf("run %d scenario %d provider %d: %w",
				result.RunID, result.ScenarioID, result.ProviderConfigID, ErrDuplicateResult)
		}
		return 0, fmt.Errorf("failed to create eval result: %w", err)
	}
	result.ID = id
	return id, nil
}

// ListEvalResultsForRun retrieves all result rows for a run, oldest first.
func (s *Store) ListEvalResultsForRun(runID int) ([]*EvalResult, error) {
	if s.db == nil {
		return nil, errors.New("database connection not initialized")
	}

	query := `
		SELECT id, run_id, scenario_id, provider_config_id,
		       audio_path, transcript, ttfb_ms, total_latency_ms,
		       wer, accuracy_score, helpfulness_score, naturalness_score, efficiency_score,
		       judge_reasoning, task_completed, created_at
		FROM eval_results
		WHERE run_id = $1
		ORDER BY created_at ASC
	`
	rows, err := s.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query eval results for run %d: %w", runID, err)
	}
	defer rows.Close()

	results := []*EvalResult{}
	for rows.Next() {
		res := &EvalResult{}
		if err := rows.Scan(
			&res.ID,
			&res.RunID,
			&res.ScenarioID,
			&res.ProviderConfigID,
			&res.AudioPath,
			&res.Transcript,
			&res.TTFBMs,
			&res.TotalLatencyMs,
			&res.WER,
			&res.AccuracyScore,
			&res.HelpfulnessScore,
			&res.NaturalnessScore,
			&res.EfficiencyScore,
			&res.JudgeReasoning,
			&res.TaskCompleted,
			&res.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan eval result row for run %d: %w", runID, err)
		}
		results = append(results, res)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration for eval results (run %d): %w", runID, err)
	}
	return results, nil
}
