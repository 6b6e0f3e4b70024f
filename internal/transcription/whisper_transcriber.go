package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"mime/multipart"
	"net"
	"net/http"
	"time"
)

const (
	whisperDefaultEndpoint = "https://api.openai.com/v1"
	whisperDefaultModel    = "whisper-1"
)

// WhisperTranscriber calls OpenAI's audio transcription API with a multipart
// upload of the response audio.
type WhisperTranscriber struct {
	APIKey     string
	Endpoint   string
	Model      string
	HTTPClient *http.Client
}

// NewWhisperTranscriber builds a transcriber with the default endpoint and
// model. A nil httpClient gets a 60 second timeout client.
func NewWhisperTranscriber(apiKey string, httpClient *http.Client) *WhisperTranscriber {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &WhisperTranscriber{
		APIKey:     apiKey,
		Endpoint:   whisperDefaultEndpoint,
		Model:      whisperDefaultModel,
		HTTPClient: httpClient,
	}
}

type whisperResponse struct {
	Text string `json:"text"`
}

// Transcribe implements Transcriber. Failures are *TranscriptionError.
func (t *WhisperTranscriber) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if t.APIKey == "" {
		return "", NewTranscriptionError(CodeAuthenticationFailed, "transcription API key is not configured")
	}
	if len(audio) == 0 {
		return "", NewTranscriptionError(CodeInvalidAudio, "audio payload is empty")
	}

	filename := "response" + extensionForMime(mimeType)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", NewTranscriptionError(CodeInvalidAudio, "failed to build multipart form: "+err.Error())
	}
	if _, err := part.Write(audio); err != nil {
		return "", NewTranscriptionError(CodeInvalidAudio, "failed to write audio to form: "+err.Error())
	}
	if err := writer.WriteField("model", t.Model); err != nil {
		return "", NewTranscriptionError(CodeInvalidAudio, "failed to write model field: "+err.Error())
	}
	if err := writer.Close(); err != nil {
		return "", NewTranscriptionError(CodeInvalidAudio, "failed to finalize form: "+err.Error())
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", t.Endpoint+"/audio/transcriptions", &buf)
	if err != nil {
		return "", NewTranscriptionError(CodeNetworkError, err.Error())
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+t.APIKey)

	httpResp, err := t.HTTPClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", NewTranscriptionError(CodeTimeout, err.Error())
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return "", NewTranscriptionError(CodeTimeout, err.Error())
		}
		return "", NewTranscriptionError(CodeNetworkError, err.Error())
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", NewTranscriptionError(CodeNetworkError, "failed to read response body: "+err.Error())
	}

	switch {
	case httpResp.StatusCode == http.StatusUnauthorized || httpResp.StatusCode == http.StatusForbidden:
		return "", NewTranscriptionError(CodeAuthenticationFailed, string(respBody))
	case httpResp.StatusCode == http.StatusTooManyRequests:
		return "", NewTranscriptionError(CodeRateLimited, string(respBody))
	case httpResp.StatusCode == http.StatusBadRequest || httpResp.StatusCode == http.StatusUnsupportedMediaType:
		return "", NewTranscriptionError(CodeInvalidAudio, string(respBody))
	case httpResp.StatusCode != http.StatusOK:
		log.Printf("WhisperTranscriber: API error status %s: %s", httpResp.Status, respBody)
		return "", NewTranscriptionError(CodeNetworkError, fmt.Sprintf("transcription API returned status %d: %s", httpResp.StatusCode, respBody))
	}

	var parsed whisperResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", NewTranscriptionError(CodeInvalidAudio, "failed to parse transcription response: "+err.Error())
	}
	return parsed.Text, nil
}

// extensionForMime picks a file extension for the multipart filename; the
// API uses it to sniff the container format.
func extensionForMime(mimeType string) string {
	switch mimeType {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/ogg":
		return ".ogg"
	case "audio/webm":
		return ".webm"
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".wav"
}
