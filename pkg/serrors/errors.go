package serrors

import (
	"errors"
	"fmt"
	"strings"
)

// Stable error codes for the access core failure taxonomy. Callers map these
// to protocol-level responses; the core never retries or swallows them.
const (
	CodeInvalidContext  = "CONTEXT_INVALID"
	CodeNoActiveContext = "CONTEXT_MISSING"
	CodeForbidden       = "ACCESS_FORBIDDEN"
	CodeNotFound        = "RECORD_NOT_FOUND"
	CodeValidation      = "VALIDATION_FAILED"
	CodeUniqueConflict  = "UNIQUE_CONFLICT"
	CodeStorage         = "STORAGE_UNAVAILABLE"
)

// BaseError is a coded error. Code is stable across releases, Message is
// human-readable and may change.
type BaseError struct {
	code    string
	message string
	fields  []string
	cause   error
}

func NewError(code, message string) *BaseError {
	return &BaseError{code: code, message: message}
}

func (e *BaseError) Error() string {
	if len(e.fields) > 0 {
		return fmt.Sprintf("%s: %s (fields: %s)", e.code, e.message, strings.Join(e.fields, ", "))
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *BaseError) Code() string {
	return e.code
}

func (e *BaseError) Fields() []string {
	return e.fields
}

func (e *BaseError) Unwrap() error {
	return e.cause
}

// WithFields returns a copy of the error annotated with the offending field
// names. Used by validation failures.
func (e *BaseError) WithFields(fields ...string) *BaseError {
	c := *e
	c.fields = append([]string(nil), fields...)
	return &c
}

// WithCause returns a copy of the error wrapping an underlying cause.
func (e *BaseError) WithCause(err error) *BaseError {
	c := *e
	c.cause = err
	return &c
}

// Is matches on code so sentinel instances compare equal to annotated copies.
func (e *BaseError) Is(target error) bool {
	var be *BaseError
	if !errors.As(target, &be) {
		return false
	}
	return e.code == be.code
}

func NewInvalidContext(message string) *BaseError {
	return NewError(CodeInvalidContext, message)
}

func NewForbidden(message string) *BaseError {
	return NewError(CodeForbidden, message)
}

func NewNotFound(message string) *BaseError {
	return NewError(CodeNotFound, message)
}

func NewValidationFailed(message string, fields ...string) *BaseError {
	return NewError(CodeValidation, message).WithFields(fields...)
}

func NewUniqueConflict(message string) *BaseError {
	return NewError(CodeUniqueConflict, message)
}

func NewStorageUnavailable(err error) *BaseError {
	return NewError(CodeStorage, "storage unavailable").WithCause(err)
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code string) bool {
	var be *BaseError
	if !errors.As(err, &be) {
		return false
	}
	return be.code == code
}
