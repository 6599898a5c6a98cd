// Package errors provides error handling utilities.
package errors

import (
	"fmt"
)

// Type identifies the category of error
type Type string

const (
	// TypeInput indicates invalid caller-supplied data
	TypeInput Type = "INPUT_ERROR"

	// TypeConfig indicates an invalid experiment or cost-system
	// configuration; the affected unit of work is aborted, never retried
	TypeConfig Type = "CONFIG_ERROR"

	// TypeInvariant indicates a broken internal invariant, i.e. a defect
	TypeInvariant Type = "INVARIANT_VIOLATION"

	// TypeIO indicates a result-log read/write failure
	TypeIO Type = "IO_ERROR"

	// TypeInternal indicates an internal error
	TypeInternal Type = "INTERNAL_ERROR"
)

// Error represents a domain error with context
type Error struct {
	Type    Type                   `json:"type"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new error
func New(errType Type, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
	}
}

// Newf creates a new formatted error
func Newf(errType Type, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an error with context
func Wrap(errType Type, message string, cause error) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Cause:   cause,
	}
}

// IsType checks if an error is of a specific type
func IsType(err error, t Type) bool {
	if e, ok := err.(*Error); ok {
		return e.Type == t
	}
	return false
}

// Config creates a configuration error
func Config(format string, args ...interface{}) *Error {
	return Newf(TypeConfig, format, args...)
}

// Invariant creates an invariant-violation error
func Invariant(format string, args ...interface{}) *Error {
	return Newf(TypeInvariant, format, args...)
}

// Input creates an input error
func Input(message string) *Error {
	return New(TypeInput, message)
}

// IO creates an IO error
func IO(message string, cause error) *Error {
	return Wrap(TypeIO, message, cause)
}

// Internal creates an internal error
func Internal(message string, cause error) *Error {
	return Wrap(TypeInternal, message, cause)
}
