package interp

import (
	"errors"
	"fmt"
)

// RuntimeError represents a failure detected while executing a compiled
// program.
//
// Runtime errors include:
//   - Validation: a row-count expectation attached to the program failed
//   - Too many rows: a unique dependency observed more than one row
//   - Unbound name: a Get referenced a binding that was never introduced
//   - Database: the underlying driver rejected a statement
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// ErrorID identifies the violated expectation, for validation errors.
	ErrorID string

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeValidationFailed indicates a row-count rule was violated.
	ErrCodeValidationFailed RuntimeErrorCode = "VALIDATION_FAILED"

	// ErrCodeTooManyRows indicates a unique dependency saw several rows.
	ErrCodeTooManyRows RuntimeErrorCode = "TOO_MANY_ROWS"

	// ErrCodeMissingRecord indicates a required value was empty.
	ErrCodeMissingRecord RuntimeErrorCode = "MISSING_RECORD"

	// ErrCodeUnboundName indicates a reference to an unknown binding.
	ErrCodeUnboundName RuntimeErrorCode = "UNBOUND_NAME"

	// ErrCodeDatabase indicates the driver rejected a statement.
	ErrCodeDatabase RuntimeErrorCode = "DATABASE"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.ErrorID != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.ErrorID)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying error, if any.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsValidationFailed reports whether err is a VALIDATION_FAILED error.
func IsValidationFailed(err error) bool {
	return hasCode(err, ErrCodeValidationFailed)
}

// IsTooManyRows reports whether err is a TOO_MANY_ROWS error.
func IsTooManyRows(err error) bool {
	return hasCode(err, ErrCodeTooManyRows)
}

// IsUnboundName reports whether err is an UNBOUND_NAME error.
func IsUnboundName(err error) bool {
	return hasCode(err, ErrCodeUnboundName)
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}
