// Package apperr defines the error taxonomy shared by every module: a small
// set of kinds that map onto HTTP statuses, plus stable machine-readable codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers and transports.
type Kind string

const (
	KindNotFound       Kind = "NOT_FOUND"
	KindConflict       Kind = "CONFLICT"
	KindInvalidState   Kind = "INVALID_STATE"
	KindValidation     Kind = "VALIDATION"
	KindLocked         Kind = "LOCKED"
	KindForbidden      Kind = "FORBIDDEN"
	KindUnauthorized   Kind = "UNAUTHORIZED"
	KindInfrastructure Kind = "INFRASTRUCTURE"
	KindInternal       Kind = "INTERNAL"
)

// Error is a classified application error.
type Error struct {
	Kind    Kind           `json:"-"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorKind lets *Error satisfy Kinded.
func (e *Error) ErrorKind() Kind { return e.Kind }

// With returns a copy of e carrying an extra detail entry.
func (e *Error) With(key string, value any) *Error {
	cp := *e
	cp.Details = make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	cp.Details[key] = value
	return &cp
}

// Kinded is implemented by domain errors that classify themselves without
// being an *Error (for example shift.InvalidTransitionError).
type Kinded interface {
	ErrorKind() Kind
}

func newError(kind Kind, code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

func NotFound(code, format string, args ...any) *Error {
	return newError(KindNotFound, code, format, args...)
}

func Conflict(code, format string, args ...any) *Error {
	return newError(KindConflict, code, format, args...)
}

func InvalidState(code, format string, args ...any) *Error {
	return newError(KindInvalidState, code, format, args...)
}

func Validation(code, format string, args ...any) *Error {
	return newError(KindValidation, code, format, args...)
}

func Locked(code, format string, args ...any) *Error {
	return newError(KindLocked, code, format, args...)
}

func Forbidden(code, format string, args ...any) *Error {
	return newError(KindForbidden, code, format, args...)
}

func Unauthorized(code, format string, args ...any) *Error {
	return newError(KindUnauthorized, code, format, args...)
}

// Infrastructure wraps a lock, pool or driver failure so it is never
// confused with a business rejection.
func Infrastructure(code string, err error, format string, args ...any) *Error {
	e := newError(KindInfrastructure, code, format, args...)
	e.Err = err
	return e
}

// KindOf reports the kind of err, or KindInternal when err is unclassified.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var k Kinded
	if errors.As(err, &k) {
		return k.ErrorKind()
	}
	return KindInternal
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// CodeOf returns the stable code of err, if it has one.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var c interface{ ErrorCode() string }
	if errors.As(err, &c) {
		return c.ErrorCode()
	}
	return ""
}

// HTTPStatus maps a kind onto a response status.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindInvalidState:
		return http.StatusUnprocessableEntity
	case KindValidation:
		return http.StatusBadRequest
	case KindLocked:
		return http.StatusLocked
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindInfrastructure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
