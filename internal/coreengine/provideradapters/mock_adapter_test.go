package provideradapters

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"voice-agent-eval-platform/backend/internal/datastore"
)

func TestMockAdapter_GenerateResponse(t *testing.T) {
	adapter := &MockAdapter{}
	cfg := &datastore.ProviderConfig{Name: "Mock-OK", ProviderType: "mock"}

	resp, err := adapter.GenerateResponse(context.Background(), AgentRequest{PromptText: "hello"}, cfg)
	require.NoError(t, err)
	require.Equal(t, "Mock response to: hello", resp.Transcript)
	require.NotEmpty(t, resp.Audio)
	require.Equal(t, "audio/wav", resp.MimeType)
}

func TestMockAdapter_SimulatedFailure(t *testing.T) {
	adapter := &MockAdapter{}
	cfg := &datastore.ProviderConfig{Name: "Mock-Error", ProviderType: "mock"}

	_, err := adapter.GenerateResponse(context.Background(), AgentRequest{PromptText: "hello"}, cfg)

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, CodeProviderError, pe.Code)
	require.True(t, pe.Retryable)
}

func TestRegistry_Get(t *testing.T) {
	registry := NewRegistry()
	mock := &MockAdapter{}
	registry.Register("mock", mock)

	adapter, err := registry.Get(&datastore.ProviderConfig{ProviderType: "mock"})
	require.NoError(t, err)
	require.Same(t, mock, adapter.(*MockAdapter))

	_, err = registry.Get(&datastore.ProviderConfig{ProviderType: "unknown"})
	require.Error(t, err)

	_, err = registry.Get(nil)
	require.Error(t, err)
}

func TestClassifyHTTPStatus(t *testing.T) {
	require.Equal(t, CodeAuthenticationFailed, classifyHTTPStatus(401))
	require.Equal(t, CodeAuthenticationFailed, classifyHTTPStatus(403))
	require.Equal(t, CodeRateLimited, classifyHTTPStatus(429))
	require.Equal(t, CodeInvalidRequest, classifyHTTPStatus(400))
	require.Equal(t, CodeModelNotFound, classifyHTTPStatus(404))
	require.Equal(t, CodeProviderError, classifyHTTPStatus(503))
}
