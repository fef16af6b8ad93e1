// Package errors provides structured error types for the wafermap
// application.
//
// Core packages (route, drivers, synapse) return plain sentinel errors.
// This package is used at the application boundary, in the pipeline, the
// CLI and the HTTP service, where an error needs:
//   - A machine-readable code for programmatic handling
//   - A user-facing message without internal detail
//   - The original cause preserved for errors.Is/As
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Problem validation failures
//   - *_FAILED: A pipeline stage could not complete
//   - NOT_FOUND: Resource not found
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidProblem, "unknown bus %d", id)
//	if errors.Is(err, errors.ErrCodeInvalidProblem) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeRoutingFailed, origErr, "route from %d", src)
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput   Code = "INVALID_INPUT"
	ErrCodeInvalidProblem Code = "INVALID_PROBLEM"
	ErrCodeInvalidFormat  Code = "INVALID_FORMAT"
	ErrCodeInvalidPath    Code = "INVALID_PATH"

	// Stage failures
	ErrCodeRoutingFailed    Code = "ROUTING_FAILED"
	ErrCodeAllocationFailed Code = "ALLOCATION_FAILED"
	ErrCodeSynapseFailed    Code = "SYNAPSE_FAILED"
	ErrCodeRenderFailed     Code = "RENDER_FAILED"

	// Resource not found errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Runtime errors
	ErrCodeCanceled Code = "CANCELED"
	ErrCodeTimeout  Code = "TIMEOUT"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
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

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
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

// HTTPStatus maps the code of err to an HTTP status.
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case ErrCodeInvalidInput, ErrCodeInvalidProblem, ErrCodeInvalidFormat, ErrCodeInvalidPath:
		return http.StatusBadRequest
	case ErrCodeRoutingFailed, ErrCodeAllocationFailed, ErrCodeSynapseFailed:
		return http.StatusUnprocessableEntity
	case ErrCodeNotFound, ErrCodeFileNotFound:
		return http.StatusNotFound
	case ErrCodeUnsupported:
		return http.StatusNotImplemented
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeCanceled:
		return 499
	}
	return http.StatusInternalServerError
}
