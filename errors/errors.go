package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation could be retried.
	Retryable bool `json:"retryable"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// Fatal reports whether the error ends the whole run.
func (e *AppError) Fatal() bool { return IsFatalCode(e.Code) }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// --- Pipeline error constructors ---

// SourceRead wraps a failure reading the record source.
func SourceRead(cause error) *AppError {
	return &AppError{
		Code: ErrCodeSourceRead, Message: "record source failed; extractor stopped",
		Cause: cause,
	}
}

// LookupFailed wraps a failed remote lookup for a single record.
func LookupFailed(term string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeLookupFailed, Message: "remote lookup failed",
		Retryable: true, Cause: cause,
		Details: map[string]any{"term": term},
	}
}

// Timeout wraps a remote lookup that exceeded its deadline.
func Timeout(term string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: "remote lookup timed out",
		Retryable: true, Cause: cause,
		Details: map[string]any{"term": term},
	}
}

// ParseFailed wraps an unparsable response payload.
func ParseFailed(cause error) *AppError {
	return &AppError{
		Code: ErrCodeParseFailed, Message: "response payload could not be parsed",
		Cause: cause,
	}
}

// SinkWrite wraps a failure persisting the finished document.
func SinkWrite(destination string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeSinkWrite, Message: fmt.Sprintf("failed to write result document to %s", destination),
		Cause:   cause,
		Details: map[string]any{"destination": destination},
	}
}

// InvalidConfig reports an unusable configuration value.
func InvalidConfig(field, reason string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidConfig, Message: fmt.Sprintf("invalid %s: %s", field, reason),
		Details: map[string]any{"field": field},
	}
}

// Internal wraps an unexpected failure.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "an unexpected error occurred",
		Cause: cause,
	}
}

// --- Inspection helpers ---

// AsAppError extracts the first AppError from err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code of the first AppError in err's chain, or "" if none.
func CodeOf(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ""
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}
