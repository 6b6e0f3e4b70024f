package datastore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// CreateProviderConfig inserts a new provider config and returns its ID.
func (s *Store) CreateProviderConfig(pc *ProviderConfig) (int, error) {
	if s.db == nil {
		return 0, errors.New("database connection not initialized")
	}

	query := `
		INSERT INTO provider_configs (name, provider_type, api_key, model, api_endpoint, other_configs, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	pc.CreatedAt = time.Now()
	pc.UpdatedAt = time.Now()

	var otherConfigs []byte
	if pc.OtherConfigs != nil {
		otherConfigs = pc.OtherConfigs
	} else {
		otherConfigs = json.RawMessage("null")
	}

	var id int
	err := s.db.QueryRow(
		query,
		pc.Name,
		pc.ProviderType,
		pc.APIKey,
		pc.Model,
		pc.APIEndpoint,
		otherConfigs,
		pc.CreatedAt,
		pc.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create provider config: %w", err)
	}
	pc.ID = id
	return id, nil
}

// GetProviderConfig retrieves a provider config by ID. Returns ErrNotFound
// if missing.
func (s *Store) GetProviderConfig(id int) (*ProviderConfig, error) {
	if s.db == nil {
		return nil, errors.New("database connection not initialized")
	}

	query := `
		SELECT id, name, provider_type, api_key, model, api_endpoint, other_configs, created_at, updated_at
		FROM provider_configs
		WHERE id = $1
	`
	pc := &ProviderConfig{}
	var otherConfigsJSON []byte

	err := s.db.QueryRow(query, id).Scan(
		&pc.ID,
		&pc.Name,
		&pc.ProviderType,
		&pc.APIKey,
		&pc.Model,
		&pc.APIEndpoint,
		&otherConfigsJSON,
		&pc.CreatedAt,
		&pc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("provider config %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get provider config %d: %w", id, err)
	}
	if otherConfigsJSON != nil && string(otherConfigsJSON) != "null" {
		pc.OtherConfigs = json.RawMessage(otherConfigsJSON)
	}
	return pc, nil
}

// ListProviderConfigs returns all provider configs, newest first.
func (s *Store) ListProviderConfigs() ([]*ProviderConfig, error) {
	if s.db == nil {
		return nil, errors.New("database connection not initialized")
	}

	query := `
		SELECT id, name, provider_type, api_key, model, api_endpoint, other_configs, created_at, updated_at
		FROM provider_configs
		ORDER BY created_at DESC
	`
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list provider configs: %w", err)
	}
	defer rows.Close()

	configs := []*ProviderConfig{}
	for rows.Next() {
		pc := &ProviderConfig{}
		var otherConfigsJSON []byte
		if err := rows.Scan(
			&pc.ID,
			&pc.Name,
			&pc.ProviderType,
			&pc.APIKey,
			&pc.Model,
			&pc.APIEndpoint,
			&otherConfigsJSON,
			&pc.CreatedAt,
			&pc.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan provider config row: %w", err)
		}
		if otherConfigsJSON != nil && string(otherConfigsJSON) != "null" {
			pc.OtherConfigs = json.RawMessage(otherConfigsJSON)
		}
		configs = append(configs, pc)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration for provider configs: %w", err)
	}
	return configs, nil
}

// UpdateProviderConfig replaces the mutable fields of a provider config.
func (s *Store) UpdateProviderConfig(pc *ProviderConfig) error {
	if s.db == nil {
		return errors.New("database connection not initialized")
	}

	query := `
		UPDATE provider_configs
		SET name = $1, provider_type = $2, api_key = $3, model = $4, api_endpoint = $5, other_configs = $6, updated_at = $7
		WHERE id = $8
	`
	pc.UpdatedAt = time.Now()

	var otherConfigs []byte
	if pc.OtherConfigs != nil {
		otherConfigs = pc.OtherConfigs
	} else {
		otherConfigs = json.RawMessage("null")
	}

	result, err := s.db.Exec(
		query,
		pc.Name,
		pc.ProviderType,
		pc.APIKey,
		pc.Model,
		pc.APIEndpoint,
		otherConfigs,
		pc.UpdatedAt,
		pc.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update provider config %d: %w", pc.ID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for provider config %d update: %w", pc.ID, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("provider config %d: %w", pc.ID, ErrNotFound)
	}
	return nil
}

// DeleteProviderConfig removes a provider config by ID.
func (s *Store) DeleteProviderConfig(id int) error {
	if s.db == nil {
		return errors.New("database connection not initialized")
	}

	result, err := s.db.Exec(`DELETE FROM provider_configs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete provider config %d: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for provider config %d delete: %w", id, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("provider config %d: %w", id, ErrNotFound)
	}
	return nil
}
