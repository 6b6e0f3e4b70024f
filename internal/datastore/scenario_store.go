package datastore

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateScenario inserts a new scenario and returns its ID.
func (s *Store) CreateScenario(sc *Scenario) (int, error) {
	if s.db == nil {
		return 0, errors.New("database connection not initialized")
	}

	query := `
		INSERT INTO scenarios (name, prompt_text, expected_outcome, scenario_type, difficulty, prompt_audio_path, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	sc.CreatedAt = time.Now()
	sc.UpdatedAt = time.Now()

	var id int
	err := s.db.QueryRow(
		query,
		sc.Name,
		sc.PromptText,
		sc.ExpectedOutcome,
		sc.ScenarioType,
		sc.Difficulty,
		sc.PromptAudioPath,
		sc.CreatedAt,
		sc.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create scenario: %w", err)
	}
	sc.ID = id
	return id, nil
}

// GetScenario retrieves a scenario by ID. Returns ErrNotFound if missing.
func (s *Store) GetScenario(id int) (*Scenario, error) {
	if s.db == nil {
		return nil, errors.New("database connection not initialized")
	}

	query := `
		SELECT id, name, prompt_text, expected_outcome, scenario_type, difficulty, prompt_audio_path, created_at, updated_at
		FROM scenarios
		WHERE id = $1
	`
	sc := &Scenario{}
	err := s.db.QueryRow(query, id).Scan(
		&sc.ID,
		&sc.Name,
		&sc.PromptText,
		&sc.ExpectedOutcome,
		&sc.ScenarioType,
		&sc.Difficulty,
		&sc.PromptAudioPath,
		&sc.CreatedAt,
		&sc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("scenario %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get scenario %d: %w", id, err)
	}
	return sc, nil
}

// ListScenarios returns all scenarios, newest first.
func (s *Store) ListScenarios() ([]*Scenario, error) {
	if s.db == nil {
		return nil, errors.New("database connection not initialized")
	}

	query := `
		SELECT id, name, prompt_text, expected_outcome, scenario_type, difficulty, prompt_audio_path, created_at, updated_at
		FROM scenarios
		ORDER BY created_at DESC
	`
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}
	defer rows.Close()

	scenarios := []*Scenario{}
	for rows.Next() {
		sc := &Scenario{}
		if err := rows.Scan(
			&sc.ID,
			&sc.Name,
			&sc.PromptText,
			&sc.ExpectedOutcome,
			&sc.ScenarioType,
			&sc.Difficulty,
			&sc.PromptAudioPath,
			&sc.CreatedAt,
			&sc.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan scenario row: %w", err)
		}
		scenarios = append(scenarios, sc)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration for scenarios: %w", err)
	}
	return scenarios, nil
}

// UpdateScenario replaces the mutable fields of a scenario.
func (s *Store) UpdateScenario(sc *Scenario) error {
	if s.db == nil {
		return errors.New("database connection not initialized")
	}

	query := `
		UPDATE scenarios
		SET name = $1, prompt_text = $2, expected_outcome = $3, scenario_type = $4, difficulty = $5, prompt_audio_path = $6, updated_at = $7
		WHERE id = $8
	`
	sc.UpdatedAt = time.Now()
	result, err := s.db.Exec(
		query,
		sc.Name,
		sc.PromptText,
		sc.ExpectedOutcome,
		sc.ScenarioType,
		sc.Difficulty,
		sc.PromptAudioPath,
		sc.UpdatedAt,
		sc.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update scenario %d: %w", sc.ID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for scenario %d update: %w", sc.ID, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("scenario %d: %w", sc.ID, ErrNotFound)
	}
	return nil
}

// DeleteScenario removes a scenario by ID.
func (s *Store) DeleteScenario(id int) error {
	if s.db == nil {
		return errors.New("database connection not initialized")
	}

	result, err := s.db.Exec(`DELETE FROM scenarios WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete scenario %d: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for scenario %d delete: %w", id, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("scenario %d: %w", id, ErrNotFound)
	}
	return nil
}
