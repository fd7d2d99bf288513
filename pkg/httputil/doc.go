// Package httputil provides shared HTTP plumbing: JSON response helpers,
// request parsing/validation helpers, and the middleware chain used by the
// API server (request IDs, logging, panic recovery, CORS).
package httputil
