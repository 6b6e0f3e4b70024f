package datastore

import (
	"database/sql"
	"errors"
	"fmt"

	// pq is the PostgreSQL driver.
	_ "github.com/lib/pq"
)

// Sentinel errors surfaced by the stores so callers can branch without
// string matching.
var (
	ErrNotFound        = errors.New("record not found")
	ErrDuplicateResult = errors.New("eval result already exists for this pair")
)

// Store bundles all persistence operations over one *sql.DB pool. It is
// constructed once in main and passed by dependency injection; there is no
// package-level connection.
type Store struct {
	db *sql.DB
}

// New wraps an open database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to Postgres and verifies the connection.
func Open(dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}
