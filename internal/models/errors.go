package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure the catalog can report
type ErrorKind string

const (
	KindValidation    ErrorKind = "VALIDATION_ERROR"
	KindNotFound      ErrorKind = "NOT_FOUND"
	KindDuplicateKey  ErrorKind = "DUPLICATE_KEY"
	KindOutOfStock    ErrorKind = "OUT_OF_STOCK"
	KindLimitExceeded ErrorKind = "LIMIT_EXCEEDED"
	KindConflict      ErrorKind = "CONFLICT"
	KindCorruptState  ErrorKind = "CORRUPT_STATE"
	KindPersistence   ErrorKind = "PERSISTENCE_ERROR"
	KindCancelled     ErrorKind = "CANCELLED"
	KindInternal      ErrorKind = "INTERNAL_ERROR"
)

// Error is the single typed error returned by repositories and services.
// Field and Rule are only set for validation failures.
type Error struct {
	Kind    ErrorKind
	Field   string
	Rule    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind, so the
// sentinels below match any error of their kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrDuplicateKey  = &Error{Kind: KindDuplicateKey}
	ErrOutOfStock    = &Error{Kind: KindOutOfStock}
	ErrLimitExceeded = &Error{Kind: KindLimitExceeded}
	ErrConflict      = &Error{Kind: KindConflict}
	ErrCorruptState  = &Error{Kind: KindCorruptState}
	ErrPersistence   = &Error{Kind: KindPersistence}
	ErrCancelled     = &Error{Kind: KindCancelled}
)

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal for anything untyped.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func NewValidationError(field, rule, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Rule: rule, Message: message}
}

func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func DuplicateKeyf(format string, args ...any) *Error {
	return &Error{Kind: KindDuplicateKey, Message: fmt.Sprintf(format, args...)}
}

func OutOfStockf(format string, args ...any) *Error {
	return &Error{Kind: KindOutOfStock, Message: fmt.Sprintf(format, args...)}
}

func LimitExceededf(format string, args ...any) *Error {
	return &Error{Kind: KindLimitExceeded, Message: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// NewCorruptStateError wraps a decode failure for the snapshot at path.
func NewCorruptStateError(path string, err error) *Error {
	return &Error{Kind: KindCorruptState, Message: fmt.Sprintf("snapshot %s is unreadable", path), Err: err}
}

// NewPersistenceError wraps a write failure for the snapshot at path.
func NewPersistenceError(path string, err error) *Error {
	return &Error{Kind: KindPersistence, Message: fmt.Sprintf("failed to persist %s", path), Err: err}
}

// NewCancelledError wraps a context error; the operation made no change.
func NewCancelledError(err error) *Error {
	return &Error{Kind: KindCancelled, Message: "operation cancelled", Err: err}
}
