package service

import (
	"errors"
	"fmt"

	"cargomatch/internal/store"
)

// Kind classifies an engine error. InvalidState and Forbidden are
// final; Conflict is safe to retry once after re-reading state;
// Transient is retryable by the caller with backoff. The engines
// themselves never retry.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindInvalidState Kind = "invalid_state"
	KindForbidden    Kind = "forbidden"
	KindConflict     Kind = "conflict"
	KindValidation   Kind = "validation"
	KindTransient    Kind = "transient"
)

// Error is the typed error returned by every engine operation.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is an engine error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// KindOf returns the kind of an engine error, or Transient for
// anything unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransient
}

func notFound(op, msg string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Msg: msg}
}

func invalidState(op, format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidState, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func forbidden(op, msg string) *Error {
	return &Error{Kind: KindForbidden, Op: op, Msg: msg}
}

func conflict(op, msg string) *Error {
	return &Error{Kind: KindConflict, Op: op, Msg: msg}
}

func validation(op, msg string) *Error {
	return &Error{Kind: KindValidation, Op: op, Msg: msg}
}

func transient(op string, err error) *Error {
	return &Error{Kind: KindTransient, Op: op, Msg: "storage failure", Err: err}
}

// storeErr maps store sentinels onto engine error kinds. The store
// reports ErrConflict when a conditional write lost a race; the caller
// supplies the message seen by the end user.
func storeErr(op string, err error, conflictMsg string) *Error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return notFound(op, "no such entity")
	case errors.Is(err, store.ErrConflict):
		return conflict(op, conflictMsg)
	case errors.Is(err, store.ErrDuplicate):
		return conflict(op, "duplicate record")
	default:
		return transient(op, err)
	}
}
