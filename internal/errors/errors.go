package errors

import (
	"fmt"
)

// SymdexError is the structured error type for symdex.
// It provides rich context for error handling, logging, and user presentation.
type SymdexError struct {
	// Code is the unique error code (e.g., "ERR_403_INVALID_PATTERN").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Network, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *SymdexError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *SymdexError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with SymdexError.
func (e *SymdexError) Is(target error) bool {
	if t, ok := target.(*SymdexError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *SymdexError) WithDetail(key, value string) *SymdexError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
// Returns the error for method chaining.
func (e *SymdexError) WithSuggestion(suggestion string) *SymdexError {
	e.Suggestion = suggestion
	return e
}

// New creates a new SymdexError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *SymdexError {
	return &SymdexError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a SymdexError from an existing error.
// The error's message becomes the SymdexError message.
func Wrap(code string, err error) *SymdexError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *SymdexError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// IOError creates an I/O-related error.
func IOError(message string, cause error) *SymdexError {
	return New(ErrCodeFileNotFound, message, cause)
}

// NetworkError creates a network-related error.
// Network errors are typically retryable.
func NetworkError(message string, cause error) *SymdexError {
	return New(ErrCodeNetworkUnavailable, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *SymdexError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InvalidPattern reports a search pattern the regex compiler rejected.
// The compiler message is kept verbatim as the error message.
func InvalidPattern(pattern string, cause error) *SymdexError {
	msg := "invalid regex"
	if cause != nil {
		msg = "invalid regex: " + cause.Error()
	}
	return New(ErrCodeInvalidPattern, msg, cause).WithDetail("pattern", pattern)
}

// UnrecognizedSnapshot reports a load document that could not be decoded
// into a corpus.
func UnrecognizedSnapshot(message string, cause error) *SymdexError {
	return New(ErrCodeUnrecognizedSnapshot, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *SymdexError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable checks if an error is retryable.
// Returns true if the error is a SymdexError with Retryable flag set.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if se, ok := err.(*SymdexError); ok {
		return se.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if se, ok := err.(*SymdexError); ok {
		return se.Severity == SeverityFatal
	}
	return false
}

// IsValidation reports whether err is a caller-level input problem
// (bad pattern, empty identifier) rather than a service fault.
func IsValidation(err error) bool {
	return GetCategory(err) == CategoryValidation
}

// GetCode extracts the error code from a SymdexError.
// Returns empty string if not a SymdexError.
func GetCode(err error) string {
	if se, ok := err.(*SymdexError); ok {
		return se.Code
	}
	return ""
}

// GetCategory extracts the category from a SymdexError.
// Returns empty string if not a SymdexError.
func GetCategory(err error) Category {
	if se, ok := err.(*SymdexError); ok {
		return se.Category
	}
	return ""
}
