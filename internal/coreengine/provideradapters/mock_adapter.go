package provideradapters

import (
	"context"
	"fmt"
	"log"
	"time"

	"voice-agent-eval-platform/backend/internal/datastore"
)

// MockAdapter is a deterministic in-process adapter used for smoke tests and
// local setups without vendor credentials. A provider config named
// "Mock-Error" makes every call fail with a provider error.
type MockAdapter struct {
	// ResponseDelay simulates network latency; zero means no delay.
	ResponseDelay time.Duration
}

// NewMockAdapter returns a mock with a small simulated latency.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{ResponseDelay: 50 * time.Millisecond}
}

// GenerateResponse echoes the prompt back as a canned transcript with a tiny
// placeholder audio payload.
func (m *MockAdapter) GenerateResponse(ctx context.Context, req AgentRequest, cfg *datastore.ProviderConfig) (*AgentResponse, error) {
	log.Printf("MockAdapter: GenerateResponse called for provider '%s'", cfg.Name)

	start := time.Now()
	if m.ResponseDelay > 0 {
		select {
		case <-ctx.Done():
			return nil, wrapTransportError("mock", ctx.Err())
		case <-time.After(m.ResponseDelay):
		}
	}

	if cfg.Name == "Mock-Error" {
		return nil, NewProviderError("mock", CodeProviderError, 500, "simulated provider failure")
	}

	elapsed := time.Since(start).Milliseconds()
	transcript := fmt.Sprintf("Mock response to: %s", req.PromptText)
	return &AgentResponse{
		Audio:      []byte("RIFFmock-wav-payload"),
		MimeType:   "audio/wav",
		Transcript: transcript,
		Latency:    Latency{TTFBMs: elapsed, TotalMs: elapsed},
		Metadata:   map[string]string{"simulated": "true"},
	}, nil
}
