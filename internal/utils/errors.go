// Package utils provides logging and error-handling primitives shared
// across the harvester.
package utils

import (
	"fmt"
	"strings"
	"time"
)

// ErrorSeverity represents the severity level of an error.
type ErrorSeverity int

const (
	SeverityInfo ErrorSeverity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
)

// String returns the string representation of the severity.
func (s ErrorSeverity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ErrorCode categorizes harvester failures for handling and reporting.
type ErrorCode string

const (
	// Browser and interception
	ErrCodeBrowserFailed        ErrorCode = "BROWSER_FAILED"
	ErrCodeNavigationFailed     ErrorCode = "NAVIGATION_FAILED"
	ErrCodeInterceptUnavailable ErrorCode = "INTERCEPT_UNAVAILABLE"

	// Replay
	ErrCodeRateLimited    ErrorCode = "RATE_LIMITED"
	ErrCodeAccountLimited ErrorCode = "ACCOUNT_LIMITED"
	ErrCodeReplayFailed   ErrorCode = "REPLAY_FAILED"

	// Parsing and extraction
	ErrCodeParsingError ErrorCode = "PARSING_ERROR"

	// Scan lifecycle
	ErrCodeScanTimedOut ErrorCode = "SCAN_TIMED_OUT"
	ErrCodeScanStopped  ErrorCode = "SCAN_STOPPED"
	ErrCodeScanBusy     ErrorCode = "SCAN_BUSY"
	ErrCodePostRemoved  ErrorCode = "POST_REMOVED"

	// Configuration
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
	ErrCodeMissingConfig ErrorCode = "MISSING_CONFIG"

	// Output
	ErrCodeOutputFailed  ErrorCode = "OUTPUT_FAILED"
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"

	// Generic
	ErrCodeInternal   ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
)

// StructuredError carries an error code, message, and context so failures
// can be classified without string matching.
type StructuredError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Severity  ErrorSeverity          `json:"severity"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Cause     error                  `json:"-"`
	Timestamp time.Time              `json:"timestamp"`
	Retryable bool                   `json:"retryable"`
}

// Error implements the error interface.
func (e *StructuredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error unwrapping.
func (e *StructuredError) Unwrap() error {
	return e.Cause
}

// Is matches on error code so errors.Is works across wrapped instances.
func (e *StructuredError) Is(target error) bool {
	if se, ok := target.(*StructuredError); ok {
		return e.Code == se.Code
	}
	return false
}

// WithContext attaches a key/value pair to the error.
func (e *StructuredError) WithContext(key string, value interface{}) *StructuredError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithSeverity sets the severity.
func (e *StructuredError) WithSeverity(sev ErrorSeverity) *StructuredError {
	e.Severity = sev
	return e
}

// WithRetryable marks whether the failed operation may be retried.
func (e *StructuredError) WithRetryable(retryable bool) *StructuredError {
	e.Retryable = retryable
	return e
}

// NewError creates a structured error with the given code and message.
func NewError(code ErrorCode, message string) *StructuredError {
	return &StructuredError{
		Code:      code,
		Message:   message,
		Severity:  SeverityError,
		Timestamp: time.Now(),
	}
}

// NewErrorf creates a structured error with a formatted message.
func NewErrorf(code ErrorCode, format string, args ...interface{}) *StructuredError {
	return NewError(code, fmt.Sprintf(format, args...))
}

// WrapError wraps an existing error in a structured error.
func WrapError(err error, code ErrorCode, message string) *StructuredError {
	se := NewError(code, message)
	se.Cause = err
	return se
}

// CodeOf returns the error code of a structured error, or ErrCodeInternal
// for anything else.
func CodeOf(err error) ErrorCode {
	if se, ok := err.(*StructuredError); ok {
		return se.Code
	}
	return ErrCodeInternal
}

// IsRetryableError reports whether an error should be retried.
func IsRetryableError(err error) bool {
	if se, ok := err.(*StructuredError); ok {
		return se.Retryable
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"timeout",
		"connection refused",
		"temporary failure",
		"503 service unavailable",
		"502 bad gateway",
		"504 gateway timeout",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// UserMessage returns a human-readable description for surfacing in
// progress and completion events.
func UserMessage(err error) string {
	se, ok := err.(*StructuredError)
	if !ok {
		return "An error occurred. Please try again."
	}
	switch se.Code {
	case ErrCodeRateLimited:
		return "The site is rate limiting requests. The scan slowed down to compensate."
	case ErrCodeAccountLimited:
		return "Scan stopped: the account appears rate limited. Partial results were kept."
	case ErrCodeScanTimedOut:
		return "The scan hit its time limit. Partial results were kept."
	case ErrCodePostRemoved:
		return "The post is unavailable. It may have been removed or made private."
	case ErrCodeInterceptUnavailable:
		return "Network capture is unavailable. Falling back to on-page scanning."
	case ErrCodeOutputFailed:
		return "Failed to save the results. Check file permissions and disk space."
	default:
		return se.Message
	}
}
