// Package errors provides structured error types for feedload.
//
// Every failure that crosses a package boundary carries a machine-readable
// [Code] so callers can branch on the kind of failure without string
// matching:
//
//	feed, err := loader.LoadFeed(ctx, url)
//	switch {
//	case errors.Is(err, errors.ErrCodeInvalidFeed):
//	    // document parsed but had no channel
//	case errors.Is(err, errors.ErrCodeLoadFailed):
//	    // nothing fetched and nothing cached
//	}
//
// # Error Codes
//
// Codes follow a hierarchical naming convention:
//   - INVALID_*: input or document validation failures
//   - TRANSPORT_* / LOAD_*: fetch and cache failures
//   - INTERNAL_*: unexpected internal errors
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

const (
	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidURL    Code = "INVALID_URL"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeInvalidExpiry Code = "INVALID_EXPIRY"

	// Document errors
	ErrCodeInvalidFeed Code = "INVALID_FEED"

	// Fetch errors
	ErrCodeTransportUnavailable Code = "TRANSPORT_UNAVAILABLE"
	ErrCodeLoadFailed           Code = "LOAD_FAILED"
	ErrCodeNetwork              Code = "NETWORK_ERROR"
	ErrCodeNotFound             Code = "NOT_FOUND"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether any *Error in err's chain carries code.
// Unlike the outermost-only check, a LOAD_FAILED wrapping a NETWORK_ERROR
// matches both codes.
func Is(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// GetCode extracts the outermost error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// StatusError reports a non-200 HTTP response.
type StatusError struct {
	StatusCode int
	URL        string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// Code returns the error code for this error type.
func (e *StatusError) Code() Code {
	if e.StatusCode == 404 || e.StatusCode == 410 {
		return ErrCodeNotFound
	}
	return ErrCodeNetwork
}
