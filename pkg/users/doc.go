// Package users orchestrates account operations against the remote
// tabular store: login, registration, Google sign-in, admin CRUD,
// profile access, and the password reset flow.
package users
