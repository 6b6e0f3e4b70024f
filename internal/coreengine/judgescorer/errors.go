package judgescorer

import "fmt"

// JudgeErrorCode classifies judge scoring failures.
type JudgeErrorCode string

const (
	CodeAPIError        JudgeErrorCode = "API_ERROR"
	CodeInvalidResponse JudgeErrorCode = "INVALID_RESPONSE"
	CodeParseError      JudgeErrorCode = "PARSE_ERROR"
	CodeTimeout         JudgeErrorCode = "TIMEOUT"
	CodeRateLimited     JudgeErrorCode = "RATE_LIMITED"
	CodeInvalidInput    JudgeErrorCode = "INVALID_INPUT"
)

// JudgeError is the typed failure for judge scoring. Callers branch on Code
// for retry classification; invalid input is never retried.
type JudgeError struct {
	Code    JudgeErrorCode
	Message string
}

func (e *JudgeError) Error() string {
	return fmt.Sprintf("judge %s: %s", e.Code, e.Message)
}

// NewJudgeError builds a typed judge error.
func NewJudgeError(code JudgeErrorCode, message string) *JudgeError {
	return &JudgeError{Code: code, Message: message}
}
