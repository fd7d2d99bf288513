// Package contextkeys centralizes context keys shared between middleware and
// handlers so those packages don't need to import each other.
package contextkeys

import "context"

// Key is the private type used for all context keys in this module.
type Key string

const (
	// PrincipalKey carries the authenticated principal for the request.
	PrincipalKey Key = "principal"
	// RequestIDKey carries the generated request ID.
	RequestIDKey Key = "request_id"
)

// WithPrincipal stores the authenticated principal in the context.
func WithPrincipal(ctx context.Context, principal interface{}) context.Context {
	return context.WithValue(ctx, PrincipalKey, principal)
}

// Principal retrieves whatever was stored with WithPrincipal, or nil.
func Principal(ctx context.Context) interface{} {
	return ctx.Value(PrincipalKey)
}

// WithRequestID stores the request ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// RequestID retrieves the request ID from the context, or "".
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
