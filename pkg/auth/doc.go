// Package auth covers credential hashing, access token issuance and
// validation, and pending password-reset codes.
package auth
