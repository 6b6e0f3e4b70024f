package provideradapters

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ProviderErrorCode classifies provider call failures.
type ProviderErrorCode string

const (
	CodeAuthenticationFailed ProviderErrorCode = "AUTHENTICATION_FAILED"
	CodeRateLimited          ProviderErrorCode = "RATE_LIMITED"
	CodeTimeout              ProviderErrorCode = "TIMEOUT"
	CodeInvalidRequest       ProviderErrorCode = "INVALID_REQUEST"
	CodeInvalidResponse      ProviderErrorCode = "INVALID_RESPONSE"
	CodeNetworkError         ProviderErrorCode = "NETWORK_ERROR"
	CodeProviderError        ProviderErrorCode = "PROVIDER_ERROR"
	CodeModelNotFound        ProviderErrorCode = "MODEL_NOT_FOUND"
	CodeUnknown              ProviderErrorCode = "UNKNOWN"
)

// ProviderError is the typed failure every adapter raises. Retryable marks
// transient conditions the pair executor may retry once.
type ProviderError struct {
	Provider   string
	Code       ProviderErrorCode
	Message    string
	StatusCode int
	Retryable  bool
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s (status %d): %s", e.Provider, e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Code, e.Message)
}

// NewProviderError builds a typed error with the retryable flag derived from
// the code.
func NewProviderError(provider string, code ProviderErrorCode, statusCode int, message string) *ProviderError {
	retryable := false
	switch code {
	case CodeRateLimited, CodeTimeout, CodeNetworkError, CodeProviderError:
		retryable = true
	}
	return &ProviderError{
		Provider:   provider,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  retryable,
	}
}

// classifyHTTPStatus maps a vendor HTTP status to an error code.
func classifyHTTPStatus(status int) ProviderErrorCode {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return CodeAuthenticationFailed
	case status == http.StatusTooManyRequests:
		return CodeRateLimited
	case status == http.StatusNotFound:
		return CodeModelNotFound
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return CodeTimeout
	case status >= 400 && status < 500:
		return CodeInvalidRequest
	case status >= 500:
		return CodeProviderError
	default:
		return CodeUnknown
	}
}

// wrapTransportError converts a transport-level failure (dial error, context
// deadline) into a typed ProviderError.
func wrapTransportError(provider string, err error) *ProviderError {
	code := CodeNetworkError
	if errors.Is(err, context.DeadlineExceeded) {
		code = CodeTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		code = CodeTimeout
	}
	return NewProviderError(provider, code, 0, err.Error())
}
