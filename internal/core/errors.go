package core

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors for handling decisions.
type ErrorCategory string

const (
	ErrCatValidation ErrorCategory = "validation" // Invalid input
	ErrCatNotFound   ErrorCategory = "not_found"  // Unknown project, tab or job
	ErrCatBackend    ErrorCategory = "backend"    // Query service failure
	ErrCatCanceled   ErrorCategory = "canceled"   // Job was canceled before its result was read
	ErrCatParse      ErrorCategory = "parse"      // Corrupt persisted file
	ErrCatConflict   ErrorCategory = "conflict"   // Operation not valid in the current state
	ErrCatInternal   ErrorCategory = "internal"   // Unexpected internal error
)

// DomainError represents a structured error from the domain layer.
type DomainError struct {
	Category ErrorCategory
	Code     string
	Message  string
	Cause    error
	Details  map[string]interface{}
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds contextual information.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ErrValidation creates a validation error.
func ErrValidation(code, message string) *DomainError {
	return &DomainError{
		Category: ErrCatValidation,
		Code:     code,
		Message:  message,
	}
}

// ErrNotFound creates a not found error.
func ErrNotFound(resource, id string) *DomainError {
	return &DomainError{
		Category: ErrCatNotFound,
		Code:     "NOT_FOUND",
		Message:  fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// ErrBackend wraps a failure reported by the query service.
func ErrBackend(code string, cause error) *DomainError {
	msg := "query service request failed"
	if cause != nil {
		msg = cause.Error()
	}
	return &DomainError{
		Category: ErrCatBackend,
		Code:     code,
		Message:  msg,
		Cause:    cause,
	}
}

// ErrParse creates an error for an unreadable persisted file.
func ErrParse(path string, cause error) *DomainError {
	return &DomainError{
		Category: ErrCatParse,
		Code:     CodeCorruptFile,
		Message:  fmt.Sprintf("cannot parse %s", path),
		Cause:    cause,
	}
}

// ErrConflict creates an error for an operation that does not fit the current state.
func ErrConflict(code, message string) *DomainError {
	return &DomainError{
		Category: ErrCatConflict,
		Code:     code,
		Message:  message,
	}
}

// ErrAlreadyCanceled is returned by Backend.AwaitResult when the job was
// canceled before its result could be read. The query coordinator swallows it.
var ErrAlreadyCanceled = &DomainError{
	Category: ErrCatCanceled,
	Code:     CodeJobCanceled,
	Message:  "This job has already been canceled.",
}

// IsAlreadyCanceled reports whether err signals a canceled job.
func IsAlreadyCanceled(err error) bool {
	return errors.Is(err, ErrAlreadyCanceled)
}

// GetCategory extracts the error category.
func GetCategory(err error) ErrorCategory {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Category
	}
	return ErrCatInternal
}

// IsCategory checks if an error belongs to a category.
func IsCategory(err error, cat ErrorCategory) bool {
	return GetCategory(err) == cat
}

// CodeOf returns the code of a DomainError, or "INTERNAL".
func CodeOf(err error) string {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Code
	}
	return "INTERNAL"
}

// MessageOf returns the user-facing message of err: the Message of a
// DomainError, or the error text otherwise.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var domErr *DomainError
	if errors.As(err, &domErr) && domErr.Message != "" {
		return domErr.Message
	}
	return err.Error()
}

// Predefined error codes
const (
	CodeJobCanceled     = "JOB_CANCELED"
	CodeInvalidJob      = "INVALID_JOB"
	CodeSubmitFailed    = "SUBMIT_FAILED"
	CodeFetchFailed     = "FETCH_FAILED"
	CodeCancelFailed    = "CANCEL_FAILED"
	CodeDryRunFailed    = "DRY_RUN_FAILED"
	CodeCatalogFailed   = "CATALOG_FAILED"
	CodeConnectFailed   = "CONNECT_FAILED"
	CodeCorruptFile     = "CORRUPT_FILE"
	CodeNotRunning      = "NOT_RUNNING"
	CodeMissingField    = "MISSING_FIELD"
	CodeInvalidSetting  = "INVALID_SETTING"
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeUnknownChannel  = "UNKNOWN_CHANNEL"
)
