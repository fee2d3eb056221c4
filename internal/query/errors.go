package query

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes query errors.
type ErrorCode string

const (
	// ErrCodeInvalidArgument indicates a caller contract violation: an absent
	// input, an empty kind, or a value outside the supported kinds.
	// Always returned synchronously at build time.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// ErrCodeTransactionFailure indicates an existence check could not
	// complete inside its transaction. The transaction was rolled back.
	ErrCodeTransactionFailure ErrorCode = "TRANSACTION_FAILURE"

	// ErrCodeExecutionFailure indicates the store failed to run a plan.
	ErrCodeExecutionFailure ErrorCode = "EXECUTION_FAILURE"
)

// Error is a query error with structured fields for diagnostics.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Field is the offending constraint field, if any.
	Field string

	// Kind is the collection involved, if known.
	Kind string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Field != "" {
		msg += fmt.Sprintf(" (field=%s)", e.Field)
	}
	if e.Kind != "" {
		msg += fmt.Sprintf(" (kind=%s)", e.Kind)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewInvalidArgument creates an INVALID_ARGUMENT error for field.
func NewInvalidArgument(field, format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeInvalidArgument,
		Message: fmt.Sprintf(format, args...),
		Field:   field,
	}
}

// NewTransactionFailure wraps err as a TRANSACTION_FAILURE for kind.
func NewTransactionFailure(kind string, err error) *Error {
	return &Error{
		Code:    ErrCodeTransactionFailure,
		Message: "existence check rolled back",
		Kind:    kind,
		Err:     err,
	}
}

// NewExecutionFailure wraps err as an EXECUTION_FAILURE for kind.
func NewExecutionFailure(kind string, err error) *Error {
	return &Error{
		Code:    ErrCodeExecutionFailure,
		Message: "query could not be executed",
		Kind:    kind,
		Err:     err,
	}
}

// IsInvalidArgument reports whether err (or any error it wraps) is an
// INVALID_ARGUMENT error.
func IsInvalidArgument(err error) bool {
	return hasCode(err, ErrCodeInvalidArgument)
}

// IsTransactionFailure reports whether err is a TRANSACTION_FAILURE error.
func IsTransactionFailure(err error) bool {
	return hasCode(err, ErrCodeTransactionFailure)
}

// IsExecutionFailure reports whether err is an EXECUTION_FAILURE error.
func IsExecutionFailure(err error) bool {
	return hasCode(err, ErrCodeExecutionFailure)
}

// hasCode walks nested *Error causes, so a TRANSACTION_FAILURE caused by an
// INVALID_ARGUMENT satisfies both helpers.
func hasCode(err error, code ErrorCode) bool {
	for err != nil {
		var qe *Error
		if !errors.As(err, &qe) {
			return false
		}
		if qe.Code == code {
			return true
		}
		err = qe.Err
	}
	return false
}
