package provideradapters

import (
	"context"

	"voice-agent-eval-platform/backend/internal/datastore"
)

// AgentRequest carries one scenario prompt to a voice-AI provider. Providers
// that accept audio input get PromptAudio when the scenario has one; all
// providers get the prompt text.
type AgentRequest struct {
	PromptText   string
	PromptAudio  []byte
	SystemPrompt string
	History      []Turn
}

// Turn is a single prior exchange for providers supporting history.
type Turn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Latency captures the request timing for a provider call.
type Latency struct {
	TTFBMs  int64 `json:"ttfb_ms"`
	TotalMs int64 `json:"total_ms"`
}

// AgentResponse is the normalized output of a provider call. Transcript is
// set when the provider returns its own text alongside the audio; when empty
// the caller transcribes the audio itself.
type AgentResponse struct {
	Audio      []byte
	MimeType   string
	Transcript string
	Latency    Latency
	Metadata   map[string]string
}

// VoiceAgentAdapter is the contract every provider integration satisfies.
// Failures must be *ProviderError values so callers can read the code and
// retryable flag.
type VoiceAgentAdapter interface {
	GenerateResponse(ctx context.Context, req AgentRequest, cfg *datastore.ProviderConfig) (*AgentResponse, error)
}
