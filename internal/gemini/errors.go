package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// ErrorCode partitions analysis failures into the retry taxonomy. Validation
// and the four fatal service codes abort immediately; network errors and
// timeouts are retried up to the attempt cap.
type ErrorCode string

const (
	CodeValidation        ErrorCode = "validation_error"
	CodeNetwork           ErrorCode = "network_error"
	CodeTimeout           ErrorCode = "timeout"
	CodeAuth              ErrorCode = "auth_error"
	CodeQuotaExceeded     ErrorCode = "quota_exceeded"
	CodeInvalidRequest    ErrorCode = "invalid_request"
	CodeFileTooLarge      ErrorCode = "file_too_large"
	CodeUnsupportedFormat ErrorCode = "unsupported_format"
	CodeCanceled          ErrorCode = "canceled"
)

// AnalysisError is a classified failure with caller-facing remediation
// suggestions.
type AnalysisError struct {
	Code        ErrorCode
	Message     string
	Retryable   bool
	Suggestions []string
	Err         error
}

func (e *AnalysisError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

var suggestions = map[ErrorCode][]string{
	CodeValidation:        {"Check that the file was uploaded completely", "Supply a non-empty document"},
	CodeAuth:              {"Verify the API key is set (DOCUFORM_API_KEY or config api_key)", "Confirm the key has access to the configured model"},
	CodeQuotaExceeded:     {"Wait for the quota window to reset", "Reduce request frequency or upgrade the plan"},
	CodeInvalidRequest:    {"Check the request parameters against the model's limits"},
	CodeFileTooLarge:      {"Compress the document or split it into smaller files", "Raise max_payload_bytes if the service allows larger uploads"},
	CodeUnsupportedFormat: {"Convert the document to PDF, PNG, JPEG, or WebP"},
	CodeTimeout:           {"Retry with a longer timeout_ms", "Try a smaller document"},
	CodeNetwork:           {"Check network connectivity and service status"},
}

func newError(code ErrorCode, retryable bool, msg string, err error) *AnalysisError {
	return &AnalysisError{
		Code:        code,
		Message:     msg,
		Retryable:   retryable,
		Suggestions: suggestions[code],
		Err:         err,
	}
}

// Classify maps a transport error onto the taxonomy. Unrecognized errors are
// treated as retryable network failures.
func Classify(err error) *AnalysisError {
	var aerr *AnalysisError
	if errors.As(err, &aerr) {
		return aerr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(CodeTimeout, true, "inference call exceeded the configured timeout", err)
	}
	if errors.Is(err, context.Canceled) {
		return newError(CodeCanceled, false, "request canceled by caller", err)
	}

	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 401, 403:
			return newError(CodeAuth, false, "service rejected the credentials", err)
		case 429:
			return newError(CodeQuotaExceeded, false, "service quota exhausted", err)
		case 400:
			return newError(CodeInvalidRequest, false, "service rejected the request", err)
		case 413:
			return newError(CodeFileTooLarge, false, "service rejected the payload size", err)
		case 415:
			return newError(CodeUnsupportedFormat, false, "service rejected the payload format", err)
		}
	}

	// String matching as a backstop for transports that do not surface a
	// typed APIError.
	s := strings.ToLower(err.Error())
	switch {
	case strings.Contains(s, "api key") || strings.Contains(s, "unauthorized") || strings.Contains(s, "permission"):
		return newError(CodeAuth, false, "service rejected the credentials", err)
	case strings.Contains(s, "quota") || strings.Contains(s, "resource_exhausted"):
		return newError(CodeQuotaExceeded, false, "service quota exhausted", err)
	case strings.Contains(s, "deadline") || strings.Contains(s, "timeout"):
		return newError(CodeTimeout, true, "inference call timed out", err)
	}
	return newError(CodeNetwork, true, "inference call failed", err)
}
