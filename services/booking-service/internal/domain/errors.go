package domain

import (
	"errors"
	"fmt"
)

// Kind classifies every failure the booking core can surface.
type Kind string

const (
	KindUnauthenticated Kind = "unauthenticated"
	KindUnauthorized    Kind = "unauthorized"
	KindNotFound        Kind = "not_found"
	KindConflict        Kind = "conflict"
	KindValidation      Kind = "validation"
	KindStorageFailure  Kind = "storage_failure"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind with an empty message, so the
// sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

var (
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated}
	ErrUnauthorized    = &Error{Kind: KindUnauthorized}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrConflict        = &Error{Kind: KindConflict}
	ErrValidation      = &Error{Kind: KindValidation}
	ErrStorageFailure  = &Error{Kind: KindStorageFailure}
)

func newError(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Message: fmt.Sprintf(format, args...)}
}

func Unauthenticated(format string, args ...any) *Error {
	return newError(KindUnauthenticated, format, args...)
}

func Unauthorized(format string, args ...any) *Error {
	return newError(KindUnauthorized, format, args...)
}

func NotFound(format string, args ...any) *Error { return newError(KindNotFound, format, args...) }

func Conflict(format string, args ...any) *Error { return newError(KindConflict, format, args...) }

func Validation(format string, args ...any) *Error {
	return newError(KindValidation, format, args...)
}

// StorageFailure wraps an unexpected persistence error. The wrapped error is
// kept for logs and diagnostics only.
func StorageFailure(op string, err error) *Error {
	return &Error{Kind: KindStorageFailure, Message: op, Err: err}
}

// KindOf reports the kind of err, or "" when err carries none.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// AsDomain returns err unchanged when it already carries a kind and wraps it
// as a storage failure otherwise.
func AsDomain(op string, err error) error {
	if err == nil || KindOf(err) != "" {
		return err
	}
	return StorageFailure(op, err)
}
