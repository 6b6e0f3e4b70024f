package provideradapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"voice-agent-eval-platform/backend/internal/datastore"
)

const retellDefaultEndpoint = "https://api.retellai.com"

// RetellVoiceAdapter exercises a Retell agent through the single-turn
// response API: it sends the scenario prompt as the caller utterance and
// fetches the agent's spoken reply plus its transcript. The agent ID comes
// from the provider config's model field.
type RetellVoiceAdapter struct {
	HTTPClient *http.Client
}

// NewRetellVoiceAdapter creates the adapter over a shared HTTP client.
func NewRetellVoiceAdapter(client *http.Client) *RetellVoiceAdapter {
	return &RetellVoiceAdapter{HTTPClient: client}
}

type retellResponse struct {
	ResponseID string `json:"response_id"`
	Transcript string `json:"transcript"`
	AudioURL   string `json:"audio_url"`
}

// GenerateResponse implements VoiceAgentAdapter.
func (a *RetellVoiceAdapter) GenerateResponse(ctx context.Context, req AgentRequest, cfg *datastore.ProviderConfig) (*AgentResponse, error) {
	if !cfg.APIKey.Valid || cfg.APIKey.String == "" {
		return nil, NewProviderError("retell", CodeAuthenticationFailed, 0, "Retell API key is missing in provider configuration")
	}
	if !cfg.Model.Valid || cfg.Model.String == "" {
		return nil, NewProviderError("retell", CodeInvalidRequest, 0, "Retell agent ID is missing in provider configuration (model field)")
	}
	endpoint := retellDefaultEndpoint
	if cfg.APIEndpoint.Valid && cfg.APIEndpoint.String != "" {
		endpoint = cfg.APIEndpoint.String
	}

	body := map[string]any{
		"agent_id":  cfg.Model.String,
		"utterance": req.PromptText,
	}
	if len(req.History) > 0 {
		turns := make([]map[string]string, 0, len(req.History))
		for _, t := range req.History {
			turns = append(turns, map[string]string{"role": t.Role, "content": t.Content})
		}
		body["conversation_history"] = turns
	}
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, NewProviderError("retell", CodeInvalidRequest, 0, fmt.Sprintf("failed to marshal request: %v", err))
	}

	var timer latencyTimer
	tracedCtx := timer.withClientTrace(ctx)

	httpReq, err := http.NewRequestWithContext(tracedCtx, "POST", endpoint+"/v2/agent-response", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, NewProviderError("retell", CodeInvalidRequest, 0, err.Error())
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+cfg.APIKey.String)

	httpResp, err := a.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, wrapTransportError("retell", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, NewProviderError("retell", CodeNetworkError, httpResp.StatusCode, "failed to read response body: "+err.Error())
	}
	if httpResp.StatusCode != http.StatusOK && httpResp.StatusCode != http.StatusCreated {
		log.Printf("RetellVoiceAdapter: API error status %s: %s", httpResp.Status, respBody)
		return nil, NewProviderError("retell", classifyHTTPStatus(httpResp.StatusCode), httpResp.StatusCode, string(respBody))
	}

	var parsed retellResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, NewProviderError("retell", CodeInvalidResponse, httpResp.StatusCode, "failed to parse response JSON: "+err.Error())
	}
	if parsed.AudioURL == "" {
		return nil, NewProviderError("retell", CodeInvalidResponse, httpResp.StatusCode, "response did not contain an audio URL")
	}

	audio, mimeType, err := a.fetchAudio(tracedCtx, parsed.AudioURL)
	if err != nil {
		return nil, err
	}

	return &AgentResponse{
		Audio:      audio,
		MimeType:   mimeType,
		Transcript: parsed.Transcript,
		Latency:    timer.snapshot(),
		Metadata:   map[string]string{"response_id": parsed.ResponseID},
	}, nil
}

func (a *RetellVoiceAdapter) fetchAudio(ctx context.Context, audioURL string) ([]byte, string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", audioURL, nil)
	if err != nil {
		return nil, "", NewProviderError("retell", CodeInvalidResponse, 0, "invalid audio URL: "+err.Error())
	}
	httpResp, err := a.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, "", wrapTransportError("retell", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, "", NewProviderError("retell", classifyHTTPStatus(httpResp.StatusCode), httpResp.StatusCode, "failed to download response audio")
	}
	audio, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, "", NewProviderError("retell", CodeNetworkError, httpResp.StatusCode, "failed to read audio body: "+err.Error())
	}
	mimeType := httpResp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "audio/wav"
	}
	return audio, mimeType, nil
}
