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
	geminiDefaultEndpoint = "https://generativelanguage.googleapis.com/v1beta"
	geminiDefaultModel    = "gemini-2.0-flash"
	geminiTTSModel        = "gemini-2.5-flash-preview-tts"
)

// GeminiVoiceAdapter produces a spoken reply in two calls: generateContent
// for the text answer, then the TTS model to speak it. The text answer is
// returned as the transcript so no transcription pass is needed downstream.
type GeminiVoiceAdapter struct {
	HTTPClient *http.Client
}

// NewGeminiVoiceAdapter creates the adapter over a shared HTTP client.
func NewGeminiVoiceAdapter(client *http.Client) *GeminiVoiceAdapter {
	return &GeminiVoiceAdapter{HTTPClient: client}
}

type geminiGenerateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text       string `json:"text,omitempty"`
				InlineData *struct {
					MimeType string `json:"mimeType"`
					Data     string `json:"data"` // base64 audio
				} `json:"inlineData,omitempty"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// GenerateResponse implements VoiceAgentAdapter.
func (a *GeminiVoiceAdapter) GenerateResponse(ctx context.Context, req AgentRequest, cfg *datastore.ProviderConfig) (*AgentResponse, error) {
	if !cfg.APIKey.Valid || cfg.APIKey.String == "" {
		return nil, NewProviderError("gemini", CodeAuthenticationFailed, 0, "Gemini API key is missing in provider configuration")
	}
	endpoint := geminiDefaultEndpoint
	if cfg.APIEndpoint.Valid && cfg.APIEndpoint.String != "" {
		endpoint = cfg.APIEndpoint.String
	}
	model := geminiDefaultModel
	if cfg.Model.Valid && cfg.Model.String != "" {
		model = cfg.Model.String
	}

	var timer latencyTimer
	tracedCtx := timer.withClientTrace(ctx)

	answer, err := a.generateText(tracedCtx, endpoint, model, cfg.APIKey.String, req)
	if err != nil {
		return nil, err
	}

	audio, mimeType, err := a.synthesize(tracedCtx, endpoint, cfg.APIKey.String, answer)
	if err != nil {
		return nil, err
	}

	return &AgentResponse{
		Audio:      audio,
		MimeType:   mimeType,
		Transcript: answer,
		Latency:    timer.snapshot(),
		Metadata:   map[string]string{"model": model, "tts_model": geminiTTSModel},
	}, nil
}

func (a *GeminiVoiceAdapter) generateText(ctx context.Context, endpoint, model, apiKey string, req AgentRequest) (string, error) {
	contents := []map[string]any{}
	for _, turn := range req.History {
		role := turn.Role
		if role == "assistant" {
			role = "model"
		}
		contents = append(contents, map[string]any{
			"role":  role,
			"parts": []map[string]any{{"text": turn.Content}},
		})
	}
	contents = append(contents, map[string]any{
		"role":  "user",
		"parts": []map[string]any{{"text": req.PromptText}},
	})

	body := map[string]any{"contents": contents}
	if req.SystemPrompt != "" {
		body["systemInstruction"] = map[string]any{
			"parts": []map[string]any{{"text": req.SystemPrompt}},
		}
	}

	parsed, err := a.post(ctx, fmt.Sprintf("%s/models/%s:generateContent", endpoint, model), apiKey, body)
	if err != nil {
		return "", err
	}
	for _, cand := range parsed.Candidates {
		for _, part := range cand.Content.Parts {
			if part.Text != "" {
				return part.Text, nil
			}
		}
	}
	return "", NewProviderError("gemini", CodeInvalidResponse, 0, "generateContent returned no text parts")
}

func (a *GeminiVoiceAdapter) synthesize(ctx context.Context, endpoint, apiKey, text string) ([]byte, string, error) {
	body := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]any{{"text": text}}},
		},
		"generationConfig": map[string]any{
			"responseModalities": []string{"AUDIO"},
		},
	}
	parsed, err := a.post(ctx, fmt.Sprintf("%s/models/%s:generateContent", endpoint, geminiTTSModel), apiKey, body)
	if err != nil {
		return nil, "", err
	}
	for _, cand := range parsed.Candidates {
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil {
				audio, decErr := base64.StdEncoding.DecodeString(part.InlineData.Data)
				if decErr != nil {
					return nil, "", NewProviderError("gemini", CodeInvalidResponse, 0, "failed to decode audio payload: "+decErr.Error())
				}
				mimeType := part.InlineData.MimeType
				if mimeType == "" {
					mimeType = "audio/wav"
				}
				return audio, mimeType, nil
			}
		}
	}
	return nil, "", NewProviderError("gemini", CodeInvalidResponse, 0, "TTS response contained no audio data")
}

func (a *GeminiVoiceAdapter) post(ctx context.Context, url, apiKey string, body map[string]any) (*geminiGenerateResponse, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, NewProviderError("gemini", CodeInvalidRequest, 0, fmt.Sprintf("failed to marshal request: %v", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, NewProviderError("gemini", CodeInvalidRequest, 0, err.Error())
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", apiKey)

	httpResp, err := a.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, wrapTransportError("gemini", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, NewProviderError("gemini", CodeNetworkError, httpResp.StatusCode, "failed to read response body: "+err.Error())
	}
	if httpResp.StatusCode != http.StatusOK {
		log.Printf("GeminiVoiceAdapter: API error status %s: %s", httpResp.Status, respBody)
		return nil, NewProviderError("gemini", classifyHTTPStatus(httpResp.StatusCode), httpResp.StatusCode, string(respBody))
	}

	var parsed geminiGenerateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, NewProviderError("gemini", CodeInvalidResponse, httpResp.StatusCode, "failed to parse response JSON: "+err.Error())
	}
	return &parsed, nil
}
