// Package observability provides structured logging, Prometheus metrics,
// health probes, and graceful shutdown coordination for the API server.
package observability
