package errors

import (
	"errors"
	"net/http"
)

// Error is a domain error that knows how to present itself over HTTP.
// Code is a stable machine-readable discriminant; Message is what the
// client sees; Err keeps the underlying cause for logs.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return "<nil>"
	case e.Err != nil:
		return e.Message + ": " + e.Err.Error()
	default:
		return e.Message
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New builds a fresh Error.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap builds an Error keeping err as the cause.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Clone copies template, optionally swapping in a specific message.
// Services use it to attach case-specific messages to the shared taxonomy.
func Clone(template *Error, message string) *Error {
	if template == nil {
		return nil
	}
	out := *template
	if message != "" {
		out.Message = message
	}
	return &out
}

// FromError coerces any error into an *Error; unknown errors become
// internal ones so no raw cause leaks to the client.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Shared taxonomy. Conflicts answer HTTP 400 to preserve the documented
// API contract; clients distinguish them by code.
var (
	ErrNotFound   = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrValidation = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrConflict   = New("CONFLICT", http.StatusBadRequest, "conflict")
	ErrForbidden  = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrInternal   = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")

	// ErrCacheMiss marks an absent cache entry; it never reaches a client.
	ErrCacheMiss = errors.New("cache miss")
)
