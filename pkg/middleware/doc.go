// Package middleware holds route-level HTTP middleware: bearer token
// authentication, role checks, and per-IP rate limiting.
package middleware
