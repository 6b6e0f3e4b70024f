package datastore

import (
	"database/sql"
	"encoding/json"
	"time"
)

// ProviderConfig maps to the provider_configs table. ProviderType selects the
// adapter implementation (e.g. "openai", "gemini", "retell", "mock").
type ProviderConfig struct {
	ID           int             `json:"id"`
	Name         string          `json:"name"`
	ProviderType string          `json:"provider_type"`
	APIKey       sql.NullString  `json:"api_key,omitempty"`
	Model        sql.NullString  `json:"model,omitempty"`
	APIEndpoint  sql.NullString  `json:"api_endpoint,omitempty"`
	OtherConfigs json.RawMessage `json:"other_configs,omitempty"` // provider-specific JSON
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
