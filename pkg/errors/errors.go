// Package errors provides structured error types for the gasket module.
//
// Every failure raised by the exact-number tower, the tangency solver,
// seed placement and the boundary layers carries a machine-readable
// [Code]. Codes group into categories that callers switch on:
//
//   - arithmetic: DIVISION_BY_ZERO, UNSUPPORTED_RADICAL
//   - geometry: NO_REAL_SOLUTION, NO_TANGENT_PLACEMENT
//   - configuration: INVALID_CONFIGURATION, INVALID_INPUT
//   - serialization: SERIALIZATION
//   - infrastructure: NOT_FOUND, STORAGE, NETWORK, INTERNAL
//
// # Usage
//
//	err := errors.New(errors.ErrCodeDivisionByZero, "curvature of circle %d is zero", i)
//	if errors.Is(err, errors.ErrCodeDivisionByZero) {
//	    // drop this circle
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeStorage, origErr, "insert gasket %s", hash)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Arithmetic errors
	ErrCodeDivisionByZero     Code = "DIVISION_BY_ZERO"
	ErrCodeUnsupportedRadical Code = "UNSUPPORTED_RADICAL"

	// Geometry errors
	ErrCodeNoRealSolution     Code = "NO_REAL_SOLUTION"
	ErrCodeNoTangentPlacement Code = "NO_TANGENT_PLACEMENT"

	// Input errors
	ErrCodeInvalidConfiguration Code = "INVALID_CONFIGURATION"
	ErrCodeInvalidInput         Code = "INVALID_INPUT"
	ErrCodeSerialization        Code = "SERIALIZATION"

	// Infrastructure errors
	ErrCodeNotFound Code = "NOT_FOUND"
	ErrCodeStorage  Code = "STORAGE"
	ErrCodeNetwork  Code = "NETWORK_ERROR"
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Category groups codes by the kind of failure they describe.
type Category string

const (
	CategoryArithmetic     Category = "arithmetic"
	CategoryGeometry       Category = "geometry"
	CategoryConfiguration  Category = "configuration"
	CategorySerialization  Category = "serialization"
	CategoryInfrastructure Category = "infrastructure"
)

// CategoryOf returns the category a code belongs to. Unknown codes are
// treated as infrastructure failures.
func CategoryOf(code Code) Category {
	switch code {
	case ErrCodeDivisionByZero, ErrCodeUnsupportedRadical:
		return CategoryArithmetic
	case ErrCodeNoRealSolution, ErrCodeNoTangentPlacement:
		return CategoryGeometry
	case ErrCodeInvalidConfiguration, ErrCodeInvalidInput:
		return CategoryConfiguration
	case ErrCodeSerialization:
		return CategorySerialization
	default:
		return CategoryInfrastructure
	}
}

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

// IsCategory reports whether err carries a code from category c.
func IsCategory(err error, c Category) bool {
	code := GetCode(err)
	return code != "" && CategoryOf(code) == c
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
