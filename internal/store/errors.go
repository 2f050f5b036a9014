package store

import (
	"fmt"
	"net/http"
)

// Error is a storage error with an HTTP status code.
type Error struct {
	Code    int    // HTTP status code
	Message string // User-facing message
	Err     error  // Underlying error (optional)
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPCode returns the HTTP status code associated with this error.
func (e *Error) HTTPCode() int { return e.Code }

// Is matches sentinel errors by code so wrapped copies still compare equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithMessage returns a new error with a custom message.
func (e *Error) WithMessage(msg string) *Error {
	return &Error{
		Code:    e.Code,
		Message: msg,
		Err:     e.Err,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
	}
}

// Sentinel errors. The five cases form the full failure taxonomy of the
// storage layer: invalid input, missing row, uniqueness conflict, index
// divergence, and transaction-level faults.
var (
	ErrNotFound = &Error{
		Code:    http.StatusNotFound,
		Message: "resource not found",
	}

	ErrAlreadyExists = &Error{
		Code:    http.StatusConflict,
		Message: "resource already exists",
	}

	ErrInvalidInput = &Error{
		Code:    http.StatusBadRequest,
		Message: "invalid input",
	}

	// ErrIndexInconsistent means the search index diverged from the resources
	// table. Structurally impossible while all writes go through the store,
	// so it is surfaced distinctly: the operator should trigger a reindex.
	ErrIndexInconsistent = &Error{
		Code:    http.StatusInternalServerError,
		Message: "search index inconsistent with resources",
	}

	// ErrTransaction is a storage-engine transaction fault (busy database,
	// serialization failure, I/O error). Read-only callers retry once;
	// mutating callers surface it to avoid silent double-application.
	ErrTransaction = &Error{
		Code:    http.StatusServiceUnavailable,
		Message: "storage transaction failed",
	}
)
