// Package apperr defines the error kinds the message engine surfaces to its
// callers. Every validation failure carries a specific kind; the HTTP layer
// maps kinds to status codes and nothing is silently swallowed in between.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// KindInternal is an unexpected store or infrastructure failure.
	KindInternal Kind = iota

	// KindNotFound means a referenced message or thread does not exist
	// within the caller's workspace scope.
	KindNotFound

	// KindScopeViolation means the target channel or message lives outside
	// the caller's workspace. Surfaced as Forbidden — the caller learns
	// nothing about whether the resource exists elsewhere.
	KindScopeViolation

	// KindForbidden means the caller is in scope but not allowed, e.g. an
	// edit attempted by a non-author.
	KindForbidden

	// KindInvalidThreadTarget means a thread-reply linkage is malformed:
	// the parent is missing, in a different channel, or itself a reply.
	KindInvalidThreadTarget

	// KindRateLimited means request volume exceeded policy. Propagated
	// verbatim to the caller.
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindScopeViolation:
		return "scope_violation"
	case KindForbidden:
		return "forbidden"
	case KindInvalidThreadTarget:
		return "invalid_thread_target"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "internal"
	}
}

// Error is a kinded error. It wraps an optional cause so callers can still
// reach the underlying pgx/redis error with errors.Is/As.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a kinded error with no underlying cause.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap attaches a kind and context to an underlying error.
func Wrap(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the kind from an error chain. Anything that isn't a kinded
// error is treated as internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
