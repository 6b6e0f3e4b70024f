package datastore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// CreateEvalRun inserts a new run in pending status and returns its ID.
func (s *Store) CreateEvalRun(run *EvalRun) (int, error) {
	if s.db == nil {
		return 0, errors.New("database connection not initialized")
	}

	query := `
		INSERT INTO eval_runs (name, scenario_ids, provider_ids, status, progress, failed_pairs, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	run.CreatedAt = time.Now()
	run.UpdatedAt = time.Now()
	if run.Status == "" {
		run.Status = RunStatusPending
	}

	scenarioIDsJSON := run.ScenarioIDs
	if scenarioIDsJSON == nil {
		scenarioIDsJSON = json.RawMessage("[]")
	}
	providerIDsJSON := run.ProviderIDs
	if providerIDsJSON == nil {
		providerIDsJSON = json.RawMessage("[]")
	}

	var id int
	err := s.db.QueryRow(
		query,
		run.Name,
		scenarioIDsJSON,
		providerIDsJSON,
		run.Status,
		run.Progress,
		run.FailedPairs,
		run.CreatedAt,
		run.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create eval run: %w", err)
	}
	run.ID = id
	return id, nil
}

// GetEvalRun retrieves a run by ID. Returns ErrNotFound for a missing run.
func (s *Store) GetEvalRun(id int) (*EvalRun, error) {
	if s.db == nil {
		return nil, errors.New("database connection not initialized")
	}

	query := `
		SELECT id, name, scenario_ids, provider_ids, status, progress, failed_pairs, created_at, updated_at, started_at, completed_at
		FROM eval_runs
		WHERE id = $1
	`
	run := &EvalRun{}
	var scenarioIDsJSON, providerIDsJSON []byte

	err := s.db.QueryRow(query, id).Scan(
		&run.ID,
		&run.Name,
		&scenarioIDsJSON,
		&providerIDsJSON,
		&run.Status,
		&run.Progress,
		&run.FailedPairs,
		&run.CreatedAt,
		&run.UpdatedAt,
		&run.StartedAt,
		&run.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("eval run %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get eval run %d: %w", id, err)
	}
	run.ScenarioIDs = json.RawMessage(scenarioIDsJSON)
	run.ProviderIDs = json.RawMessage(providerIDsJSON)
	return run, nil
}

// UpdateEvalRunStatus moves a run to a new status. The update only applies
// when the current status ranks strictly below the new one, so a completed
// run can never regress to running; a rejected transition is not an error.
func (s *Store) UpdateEvalRunStatus(id int, status string) error {
	if s.db == nil {
		return errors.New("database connection not initialized")
	}
	newRank, ok := statusRank[status]
	if !ok {
		return fmt.Errorf("unknown run status %q", status)
	}

	var predecessors []string
	for st, rank := range statusRank {
		if rank < newRank {
			predecessors = append(predecessors, st)
		}
	}
	if len(predecessors) == 0 {
		// pending is the initial status; nothing can move back into it.
		return fmt.Errorf("run status cannot transition to %q", status)
	}

	query := `UPDATE eval_runs SET status = $1, updated_at = $2 WHERE id = $3 AND status = ANY($4)`
	result, err := s.db.Exec(query, status, time.Now(), id, pq.Array(predecessors))
	if err != nil {
		return fmt.Errorf("failed to update status for run %d: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for run %d status update: %w", id, err)
	}
	if rowsAffected == 0 {
		// Either the run does not exist or it already reached this status or
		// beyond. Only the former is an error.
		if _, getErr := s.GetEvalRun(id); getErr != nil {
			return getErr
		}
	}
	return nil
}

// UpdateEvalRunProgress persists the recomputed progress percentage and
// failed-pair count. Progress is always derived from the completed-pair
// count, never incremented in place, so last-writer-wins here is safe.
func (s *Store) UpdateEvalRunProgress(id int, progress float64, failedPairs int) error {
	if s.db == nil {
		return errors.New("database connection not initialized")
	}

	query := `UPDATE eval_runs SET progress = $1, failed_pairs = $2, updated_at = $3 WHERE id = $4`
	result, err := s.db.Exec(query, progress, failedPairs, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update progress for run %d: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for run %d progress update: %w", id, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("eval run %d: %w", id, ErrNotFound)
	}
	return nil
}

// UpdateEvalRunTimestamps sets started_at and/or completed_at. Pass invalid
// NullTimes to leave a column untouched. started_at is only written once.
func (s *Store) UpdateEvalRunTimestamps(id int, startTime, endTime sql.NullTime) error {
	if s.db == nil {
		return errors.New("database connection not initialized")
	}

	var setClauses []string
	var args []interface{}
	argCount := 1

	if startTime.Valid {
		setClauses = append(setClauses, fmt.Sprintf("started_at = COALESCE(started_at, $%d)", argCount))
		args = append(args, startTime)
		argCount++
	}
	if endTime.Valid {
		setClauses = append(setClauses, fmt.Sprintf("completed_at = $%d", argCount))
		args = append(args, endTime)
		argCount++
	}
	if len(setClauses) == 0 {
		return errors.New("no timestamps provided for update")
	}

	setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", argCount))
	args = append(args, time.Now())
	argCount++

	args = append(args, id)
	query := fmt.Sprintf("UPDATE eval_runs SET %s WHERE id = $%d", strings.Join(setClauses, ", "), argCount)

	result, err := s.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update timestamps for run %d: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for run %d timestamp update: %w", id, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("eval run %d: %w", id, ErrNotFound)
	}
	return nil
}

// ListEvalRuns returns all runs, newest first.
func (s *Store) ListEvalRuns() ([]*EvalRun, error) {
	if s.db == nil {
		return nil, errors.New("database connection not initialized")
	}

	query := `
		SELECT id, name, scenario_ids, provider_ids, status, progress, failed_pairs, created_at, updated_at, started_at, completed_at
		FROM eval_runs
		ORDER BY created_at DESC
	`
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list eval runs: %w", err)
	}
	defer rows.Close()

	runs := []*EvalRun{}
	for rows.Next() {
		run := &EvalRun{}
		var scenarioIDsJSON, providerIDsJSON []byte
		if err := rows.Scan(
			&run.ID,
			&run.Name,
			&scenarioIDsJSON,
			&providerIDsJSON,
			&run.Status,
			&run.Progress,
			&run.FailedPairs,
			&run.CreatedAt,
			&run.UpdatedAt,
			&run.StartedAt,
			&run.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan eval run row: %w", err)
		}
		run.ScenarioIDs = json.RawMessage(scenarioIDsJSON)
		run.ProviderIDs = json.RawMessage(providerIDsJSON)
		runs = append(runs, run)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration for eval runs: %w", err)
	}
	return runs, nil
}
