// Package apperr defines the error taxonomy shared by services and handlers.
// Every service operation returns either nil or an *Error with a Kind, so
// handlers branch on kind instead of matching message strings.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for transport mapping.
type Kind int

const (
	// Validation covers malformed or missing input.
	Validation Kind = iota + 1
	// Unauthorized covers missing/invalid/expired credentials. The message
	// is uniform on purpose; it never reveals which check failed.
	Unauthorized
	// Forbidden covers a valid principal with an insufficient role.
	Forbidden
	// Conflict covers duplicate-resource conditions such as an already
	// registered email.
	Conflict
	// NotFound covers lookups for rows that don't exist.
	NotFound
	// RateLimited covers exceeded request budgets.
	RateLimited
	// Upstream covers failures of the remote store or other collaborators.
	Upstream
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	case Conflict:
		return "conflict"
	case NotFound:
		return "not_found"
	case RateLimited:
		return "rate_limited"
	case Upstream:
		return "upstream"
	default:
		return "unknown"
	}
}

// HTTPStatus maps a kind to its response status. Conflict maps to 400 rather
// than 409 to keep the wire contract the frontend already depends on.
func (k Kind) HTTPStatus() int {
	switch k {
	case Validation, Conflict:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case RateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified error with an optional wrapped cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a classified error without a cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf creates a classified error with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap creates a classified error around a cause. The cause is preserved for
// diagnostics but handlers only expose Msg to clients.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the kind from an error chain, defaulting to Upstream for
// unclassified errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return Upstream
}

// MessageOf extracts the client-safe message from an error chain. For
// unclassified errors it returns a generic message so internal details never
// leak to the client.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Msg
	}
	return "internal server error"
}

// IsKind reports whether the error chain carries the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}
