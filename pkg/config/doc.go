// Package config loads application configuration from SUENO_* environment
// variables and validates it at startup. Missing remote-store credentials or
// a missing token signing secret are fatal.
package config
