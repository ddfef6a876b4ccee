package attendance

import (
	"github.com/pkg/errors"
)

// Kind classifies failures so callers can map them to a response.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindNotFound
	KindInvalidInput
	KindConflict
	KindStoreUnavailable
	KindForbidden
	KindUnauthenticated
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindInvalidInput:
		return "invalid input"
	case KindConflict:
		return "conflict"
	case KindStoreUnavailable:
		return "store unavailable"
	case KindForbidden:
		return "forbidden"
	case KindUnauthenticated:
		return "unauthenticated"
	default:
		return "internal error"
	}
}

// Error is the typed error returned by the service and repositories.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// E wraps err with a kind and the operation that produced it.
// A KindUnknown wrapper keeps whatever kind err already carries.
func E(kind Kind, op string, err error) error {
	if err == nil {
		err = errors.New(kind.String())
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a typed error from a format string.
func Errorf(kind Kind, op, format string, args ...interface{}) error {
	return &Error{Kind: kind, Op: op, Err: errors.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Cause lets errors.Cause reach the underlying error.
func (e *Error) Cause() error { return e.Err }

// KindOf returns the first known kind found along err's chain.
func KindOf(err error) Kind {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return KindUnknown
		}
		if e.Kind != KindUnknown {
			return e.Kind
		}
		err = e.Err
	}
	return KindUnknown
}

// Message returns the innermost typed error text, without operation prefixes.
func Message(err error) string {
	msg := err.Error()
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			break
		}
		msg = e.Err.Error()
		err = e.Err
	}
	return msg
}

func IsNotFound(err error) bool     { return KindOf(err) == KindNotFound }
func IsInvalidInput(err error) bool { return KindOf(err) == KindInvalidInput }
func IsConflict(err error) bool     { return KindOf(err) == KindConflict }

// IsRetryable reports whether the caller may retry the same call.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindStoreUnavailable, KindConflict:
		return true
	}
	return false
}
