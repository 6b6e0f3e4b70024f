package provideradapters

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"voice-agent-eval-platform/backend/internal/datastore"
)

const (
	openAIDefaultEndpoint = "https://api.openai.com/v1"
	openAIDefaultModel    = "gpt-4o-audio-preview"
	openAIDefaultVoice    = "alloy"
)

// OpenAIVoiceAdapter calls OpenAI's audio-capable chat completions API. The
// model returns both an audio payload and its transcript in one call, so no
// separate transcription pass is needed for this provider.
type OpenAIVoiceAdapter struct {
	HTTPClient *http.Client
}

// NewOpenAIVoiceAdapter creates the adapter over a shared HTTP client.
func NewOpenAIVoiceAdapter(client *http.Client) *OpenAIVoiceAdapter {
	return &OpenAIVoiceAdapter{HTTPClient: client}
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Audio   *struct {
				ID         string `json:"id"`
				Data       string `json:"data"` // base64 wav
				Transcript string `json:"transcript"`
			} `json:"audio"`
		} `json:"message"`
	} `json:"choices"`
	Model string `json:"model"`
}

// GenerateResponse sends the scenario prompt and returns the spoken reply.
func (a *OpenAIVoiceAdapter) GenerateResponse(ctx context.Context, req AgentRequest, cfg *datastore.ProviderConfig) (*AgentResponse, error) {
	if !cfg.APIKey.Valid || cfg.APIKey.String == "" {
		return nil, NewProviderError("openai", CodeAuthenticationFailed, 0, "OpenAI API key is missing in provider configuration")
	}
	endpoint := openAIDefaultEndpoint
	if cfg.APIEndpoint.Valid && cfg.APIEndpoint.String != "" {
		endpoint = cfg.APIEndpoint.String
	}
	model := openAIDefaultModel
	if cfg.Model.Valid && cfg.Model.String != "" {
		model = cfg.Model.String
	}

	messages := []map[string]any{}
	if req.SystemPrompt != "" {
		messages = append(messages, map[string]any{"role": "system", "content": req.SystemPrompt})
	}
	for _, turn := range req.History {
		messages = append(messages, map[string]any{"role": turn.Role, "content": turn.Content})
	}
	messages = append(messages, map[string]any{"role": "user", "content": req.PromptText})

	body := map[string]any{
		"model":      model,
		"modalities": []string{"text", "audio"},
		"audio":      map[string]string{"voice": openAIDefaultVoice, "format": "wav"},
		"messages":   messages,
	}
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, NewProviderError("openai", CodeInvalidRequest, 0, fmt.Sprintf("failed to marshal request: %v", err))
	}

	var timer latencyTimer
	httpReq, err := http.NewRequestWithContext(timer.withClientTrace(ctx), "POST", endpoint+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, NewProviderError("openai", CodeInvalidRequest, 0, err.Error())
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+cfg.APIKey.String)

	httpResp, err := a.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, wrapTransportError("openai", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, NewProviderError("openai", CodeNetworkError, httpResp.StatusCode, "failed to read response body: "+err.Error())
	}
	if httpResp.StatusCode != http.StatusOK {
		log.Printf("OpenAIVoiceAdapter: API error status %s: %s", httpResp.Status, respBody)
		return nil, NewProviderError("openai", classifyHTTPStatus(httpResp.StatusCode), httpResp.StatusCode, string(respBody))
	}

	var parsed openAIChatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, NewProviderError("openai", CodeInvalidResponse, httpResp.StatusCode, "failed to parse response JSON: "+err.Error())
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Audio == nil {
		return nil, NewProviderError("openai", CodeInvalidResponse, httpResp.StatusCode, "response did not contain an audio message")
	}

	audioMsg := parsed.Choices[0].Message.Audio
	audio, err := base64.StdEncoding.DecodeString(audioMsg.Data)
	if err != nil {
		return nil, NewProviderError("openai", CodeInvalidResponse, httpResp.StatusCode, "failed to decode audio payload: "+err.Error())
	}

	return &AgentResponse{
		Audio:      audio,
		MimeType:   "audio/wav",
		Transcript: audioMsg.Transcript,
		Latency:    timer.snapshot(),
		Metadata:   map[string]string{"model": parsed.Model},
	}, nil
}
