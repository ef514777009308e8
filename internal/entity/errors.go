package entity

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode classifies domain and infrastructure failures so callers can branch
// on the kind of failure instead of its text.
type ErrorCode string

const (
	CodeValidation             ErrorCode = "validation"
	CodeInvalidArgument        ErrorCode = "invalid_argument"
	CodeInvalidStateTransition ErrorCode = "invalid_state_transition"
	CodeInsufficientStock      ErrorCode = "insufficient_stock"
	CodeOverCommit             ErrorCode = "over_commit"
	CodeInvariantViolation     ErrorCode = "invariant_violation"
	CodeNotFound               ErrorCode = "not_found"
	CodeConflict               ErrorCode = "conflict"
	CodeSchemaMismatch         ErrorCode = "schema_mismatch"
	CodeInfrastructure         ErrorCode = "infrastructure"
	CodeInternal               ErrorCode = "internal"
)

// Error is the canonical domain error.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	op := strings.TrimSpace(e.Op)
	msg := strings.TrimSpace(e.Message)
	switch {
	case op != "" && msg != "":
		return fmt.Sprintf("%s: %s (%s)", op, msg, e.Code)
	case op != "":
		return fmt.Sprintf("%s (%s)", op, e.Code)
	case msg != "":
		return fmt.Sprintf("%s (%s)", msg, e.Code)
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds a domain error with explicit code and operation.
func NewError(code ErrorCode, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// Errorf is NewError with a formatted message and no cause.
func Errorf(code ErrorCode, op, format string, args ...any) error {
	return NewError(code, op, fmt.Sprintf(format, args...), nil)
}

// Wrap annotates err with a code. Errors that already carry a code keep it.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return err
	}
	return NewError(code, op, err.Error(), err)
}

// IsCode reports whether err (or a wrapped err) carries code.
func IsCode(err error, code ErrorCode) bool {
	var domainErr *Error
	if !errors.As(err, &domainErr) {
		return false
	}
	return domainErr.Code == code
}

// CodeOf extracts the error code, or CodeInternal for uncoded errors.
func CodeOf(err error) ErrorCode {
	var domainErr *Error
	if !errors.As(err, &domainErr) {
		return CodeInternal
	}
	return domainErr.Code
}
