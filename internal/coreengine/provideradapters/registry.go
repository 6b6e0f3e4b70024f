package provideradapters

import (
	"fmt"
	"net/http"
	"time"

	"voice-agent-eval-platform/backend/internal/datastore"
)

// Registry maps provider types to adapter instances. It is built once at
// startup and handed to the orchestrator by dependency injection; there is no
// package-level registration.
type Registry struct {
	adapters map[string]VoiceAgentAdapter
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]VoiceAgentAdapter)}
}

// NewDefaultRegistry wires the built-in adapters over a shared HTTP client.
func NewDefaultRegistry() *Registry {
	httpClient := &http.Client{Timeout: 60 * time.Second}
	r := NewRegistry()
	r.Register("mock", NewMockAdapter())
	r.Register("openai", NewOpenAIVoiceAdapter(httpClient))
	r.Register("gemini", NewGeminiVoiceAdapter(httpClient))
	r.Register("retell", NewRetellVoiceAdapter(httpClient))
	return r
}

// Register adds or replaces the adapter for a provider type.
func (r *Registry) Register(providerType string, adapter VoiceAgentAdapter) {
	r.adapters[providerType] = adapter
}

// Get returns the adapter for a provider config's type.
func (r *Registry) Get(cfg *datastore.ProviderConfig) (VoiceAgentAdapter, error) {
	if cfg == nil {
		return nil, fmt.Errorf("provider config cannot be nil")
	}
	adapter, ok := r.adapters[cfg.ProviderType]
	if !ok {
		return nil, fmt.Errorf("no voice agent adapter registered for provider type %q", cfg.ProviderType)
	}
	return adapter, nil
}
