package errors

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindForbidden  Kind = "forbidden"
	KindConflict   Kind = "conflict"
	KindExhaustion Kind = "exhaustion" // operator remediation required
	KindInternal   Kind = "internal"
)

// AppError is the typed error returned by services.
// Two AppErrors match under errors.Is when their codes are equal, so a sentinel
// declared once can be compared against a copy carrying Details or a wrapped cause.
type AppError struct {
	Kind    Kind
	Code    string
	Message string
	Details []string
	Err     error
}

func (e *AppError) Error() string {
	msg := e.Message
	if len(e.Details) > 0 {
		msg = fmt.Sprintf("%s: %v", msg, e.Details)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetails returns a copy carrying the given details.
func (e *AppError) WithDetails(details ...string) *AppError {
	cp := *e
	cp.Details = append([]string(nil), details...)
	return &cp
}

// Wrap returns a copy carrying cause.
func (e *AppError) Wrap(cause error) *AppError {
	cp := *e
	cp.Err = cause
	return &cp
}

func newError(kind Kind, code, message string) *AppError {
	return &AppError{Kind: kind, Code: code, Message: message}
}

func Validation(code, message string) *AppError { return newError(KindValidation, code, message) }
func NotFound(code, message string) *AppError   { return newError(KindNotFound, code, message) }
func Forbidden(code, message string) *AppError  { return newError(KindForbidden, code, message) }
func Conflict(code, message string) *AppError   { return newError(KindConflict, code, message) }
func Exhaustion(code, message string) *AppError { return newError(KindExhaustion, code, message) }
func Internal(code, message string) *AppError   { return newError(KindInternal, code, message) }

// As extracts the AppError from err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindInternal for anything that is not an AppError.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}
