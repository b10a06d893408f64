package store

import (
	"fmt"
	"net/http"
)

// Error is a storage error with an HTTP status code hint.
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

// Is matches sentinels by identity of code and message so wrapped copies still match.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// HTTPCode returns the HTTP status code associated with this error.
func (e *Error) HTTPCode() int { return e.Code }

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Err: err}
}

// Sentinel errors.
var (
	ErrNotFound = &Error{
		Code:    http.StatusNotFound,
		Message: "resource not found",
	}

	ErrAlreadyExists = &Error{
		Code:    http.StatusConflict,
		Message: "resource already exists",
	}

	ErrDuplicateISBN = &Error{
		Code:    http.StatusBadRequest,
		Message: "isbn already exists",
	}

	ErrDuplicateEmail = &Error{
		Code:    http.StatusConflict,
		Message: "email already registered",
	}

	ErrActiveLoanExists = &Error{
		Code:    http.StatusConflict,
		Message: "borrower already has this book",
	}

	ErrAvailabilityRange = &Error{
		Code:    http.StatusConflict,
		Message: "availability out of range",
	}

	ErrPreconditionFailed = &Error{
		Code:    http.StatusConflict,
		Message: "record changed concurrently",
	}
)
