package judgescorer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"time"
)

const (
	judgeDefaultEndpoint = "https://api.openai.com/v1"
	judgeDefaultModel    = "gpt-4o-mini"
)

// OpenAIJudgeClient calls OpenAI chat completions in JSON mode to grade
// responses.
type OpenAIJudgeClient struct {
	APIKey     string
	Endpoint   string
	Model      string
	HTTPClient *http.Client
}

// NewOpenAIJudgeClient builds a judge client with defaults for endpoint and
// model. A nil httpClient gets a 60 second timeout client.
func NewOpenAIJudgeClient(apiKey string, httpClient *http.Client) *OpenAIJudgeClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &OpenAIJudgeClient{
		APIKey:     apiKey,
		Endpoint:   judgeDefaultEndpoint,
		Model:      judgeDefaultModel,
		HTTPClient: httpClient,
	}
}

type judgeChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete implements LLMClient. Failures are always *JudgeError.
func (c *OpenAIJudgeClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if c.APIKey == "" {
		return "", NewJudgeError(CodeAPIError, "judge API key is not configured")
	}

	body := map[string]any{
		"model": c.Model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
		"temperature":     0.2,
		"response_format": map[string]string{"type": "json_object"},
	}
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return "", NewJudgeError(CodeAPIError, fmt.Sprintf("failed to marshal judge request: %v", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.Endpoint+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", NewJudgeError(CodeAPIError, err.Error())
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)

	httpResp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", NewJudgeError(CodeTimeout, err.Error())
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return "", NewJudgeError(CodeTimeout, err.Error())
		}
		return "", NewJudgeError(CodeAPIError, err.Error())
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", NewJudgeError(CodeAPIError, "failed to read judge response body: "+err.Error())
	}

	switch {
	case httpResp.StatusCode == http.StatusTooManyRequests:
		return "", NewJudgeError(CodeRateLimited, string(respBody))
	case httpResp.StatusCode != http.StatusOK:
		log.Printf("OpenAIJudgeClient: API error status %s: %s", httpResp.Status, respBody)
		return "", NewJudgeError(CodeAPIError, fmt.Sprintf("judge API returned status %d: %s", httpResp.StatusCode, respBody))
	}

	var parsed judgeChatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", NewJudgeError(CodeInvalidResponse, "failed to parse judge API response: "+err.Error())
	}
	if len(parsed.Choices) == 0 {
		return "", NewJudgeError(CodeInvalidResponse, "judge API response contained no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
