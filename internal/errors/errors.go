package errors

import (
	"fmt"
	"time"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

const (
	CodeValidation  = "E100"
	CodeDatabase    = "E200"
	CodeExternalAPI = "E300"
	CodeState       = "E400"
	CodeRateLimit   = "E500"
	CodeNotFound    = "E600"
)

type AppError struct {
	Code        string
	Message     string
	UserMessage string
	Severity    Severity
	Retryable   bool
	// RetryAfter is set on rate limit errors.
	RetryAfter time.Duration
	cause      error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

func (e *AppError) Cause() error {
	return e.Unwrap()
}

func NewValidationError(msg string) *AppError {
	return &AppError{
		Code:        CodeValidation,
		Message:     msg,
		UserMessage: fmt.Sprintf("Please check the form. %s", msg),
		Severity:    SeverityLow,
	}
}

func NewDatabaseError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        CodeDatabase,
		Message:     fmt.Sprintf("Database error: %s", underlyingMsg),
		UserMessage: "Temporary problem, please try again later",
		Severity:    SeverityHigh,
		Retryable:   true,
		cause:       cause,
	}
}

func NewExternalAPIError(apiName string, cause error) *AppError {
	return &AppError{
		Code:        CodeExternalAPI,
		Message:     fmt.Sprintf("External API error: %s", apiName),
		UserMessage: "Service is temporarily unavailable",
		Severity:    SeverityMedium,
		Retryable:   true,
		cause:       cause,
	}
}

// NewStateError reports an operation that the widget cannot perform in its
// current view or wizard step. The cause stays reachable through errors.Is.
func NewStateError(cause error) *AppError {
	msg := "operation not allowed in current state"
	if cause != nil {
		msg = cause.Error()
	}

	return &AppError{
		Code:        CodeState,
		Message:     msg,
		UserMessage: "This action is not available right now",
		Severity:    SeverityMedium,
		cause:       cause,
	}
}

func NewRateLimitError(retryAfter time.Duration) *AppError {
	seconds := int(retryAfter.Round(time.Second) / time.Second)
	if seconds < 1 {
		seconds = 1
	}

	return &AppError{
		Code:        CodeRateLimit,
		Message:     fmt.Sprintf("Rate limit exceeded: retry after %d seconds", seconds),
		UserMessage: fmt.Sprintf("Too many requests. Try again in %d seconds", seconds),
		Severity:    SeverityLow,
		RetryAfter:  time.Duration(seconds) * time.Second,
	}
}

func NewNotFoundError(resource string, cause error) *AppError {
	return &AppError{
		Code:        CodeNotFound,
		Message:     fmt.Sprintf("%s not found", resource),
		UserMessage: "This page has expired, please reload",
		Severity:    SeverityLow,
		cause:       cause,
	}
}
