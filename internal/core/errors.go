// internal/core/errors.go
package core

import (
	"errors"
	"fmt"
)

// ErrorKind groups error codes by how callers should react to them.
type ErrorKind string

const (
	// KindData marks problems with the supplied market data. Reported, not retried.
	KindData ErrorKind = "data"
	// KindConfig marks invalid strategy, engine or optimizer configuration.
	KindConfig ErrorKind = "config"
	// KindOptimizer marks failures raised while searching a parameter space.
	KindOptimizer ErrorKind = "optimizer"
)

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Kind    ErrorKind
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Kind:    base.Kind,
		Cause:   cause,
	}
}

// IsDataError reports whether err (or anything it wraps) is a data error.
func IsDataError(err error) bool {
	return kindOf(err) == KindData
}

// IsConfigError reports whether err (or anything it wraps) is a configuration error.
func IsConfigError(err error) bool {
	return kindOf(err) == KindConfig
}

func kindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Predefined errors
var (
	// Data errors
	ErrNoData           = &Error{Code: "NO_DATA", Message: "no data available", Kind: KindData}
	ErrInsufficientData = &Error{Code: "INSUFFICIENT_DATA", Message: "insufficient data for analysis", Kind: KindData}
	ErrInvalidData      = &Error{Code: "INVALID_DATA", Message: "malformed market data", Kind: KindData}
	ErrSeriesMismatch   = &Error{Code: "SERIES_MISMATCH", Message: "series do not line up", Kind: KindData}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid", Kind: KindConfig}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing", Kind: KindConfig}
	ErrEmptyGrid     = &Error{Code: "EMPTY_GRID", Message: "parameter grid is empty", Kind: KindConfig}
	ErrUnknownName   = &Error{Code: "UNKNOWN_STRATEGY", Message: "strategy not registered", Kind: KindConfig}

	// Optimizer errors
	ErrObjectiveFailed = &Error{Code: "OBJECTIVE_FAILED", Message: "objective evaluation failed", Kind: KindOptimizer}
)
