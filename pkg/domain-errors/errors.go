// Package domainerrors carries the error taxonomy shared by every service.
//
// Services return *Error values (optionally wrapping an infrastructure cause)
// so transports can translate them without knowing which store produced them.
// Infrastructure facts (not found, conflict) live in pkg/platform/sentinel and
// are translated into codes at the service boundary.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies a class of failure. Codes are stable and appear verbatim in
// HTTP error envelopes.
type Code string

const (
	// CodeUnauthorized: the caller lacks the capability for the call.
	CodeUnauthorized Code = "unauthorized"
	// CodeUnauthenticated: no caller identity could be established.
	CodeUnauthenticated Code = "unauthenticated"
	// CodeInvalidArgument: null identity, non-positive amount, empty field.
	CodeInvalidArgument Code = "invalid_argument"
	// CodeAlreadyInState: strict ledger entry point found the target already in the requested state.
	CodeAlreadyInState Code = "already_in_state"
	// CodeNotInState: strict ledger entry point found the target not in the required state.
	CodeNotInState Code = "not_in_state"
	// CodeUnknownOperation: no pending operation with the given id.
	CodeUnknownOperation Code = "unknown_operation"
	// CodeAlreadyExecuted: the operation reached its terminal state.
	CodeAlreadyExecuted Code = "already_executed"
	// CodeAlreadySigned: the caller already signed the operation.
	CodeAlreadySigned Code = "already_signed"
	// CodeComplianceRejected: a transfer party is not verified.
	CodeComplianceRejected Code = "compliance_rejected"

	CodeNotFound   Code = "not_found"
	CodeBadRequest Code = "bad_request"
	CodeConflict   Code = "conflict"
	CodeTimeout    Code = "timeout"
	CodeInternal   Code = "internal_error"
)

// Error is a coded domain error.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// New constructs an Error without a cause.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Newf constructs an Error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports code equality so errors.Is(err, New(code, "")) matches any
// error of the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// HasCode reports whether any error in err's chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// Is is shorthand for HasCode kept for handler readability.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the outermost code in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
