// Package transcription turns provider response audio into text for scoring
// when the provider did not return its own transcript.
package transcription

import (
	"context"
	"fmt"
)

// TranscriptionErrorCode classifies transcription failures.
type TranscriptionErrorCode string

const (
	CodeAuthenticationFailed TranscriptionErrorCode = "AUTHENTICATION_FAILED"
	CodeRateLimited          TranscriptionErrorCode = "RATE_LIMITED"
	CodeTimeout              TranscriptionErrorCode = "TIMEOUT"
	CodeNetworkError         TranscriptionErrorCode = "NETWORK_ERROR"
	CodeInvalidAudio         TranscriptionErrorCode = "INVALID_AUDIO"
)

// TranscriptionError is the typed failure for transcription calls.
type TranscriptionError struct {
	Code    TranscriptionErrorCode
	Message string
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcription %s: %s", e.Code, e.Message)
}

// NewTranscriptionError builds a typed transcription error.
func NewTranscriptionError(code TranscriptionErrorCode, message string) *TranscriptionError {
	return &TranscriptionError{Code: code, Message: message}
}

// Transcriber converts audio to text. Failures must be *TranscriptionError.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}
