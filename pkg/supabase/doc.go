// Package supabase is a thin PostgREST client for the remote tabular
// store. Services build queries with From(table) and the fluent builder;
// failures come back classified so handlers can map them to HTTP statuses
// without inspecting upstream details.
package supabase
