// Package shared holds the cross-module kernel of the back office: sentinel
// errors, roles and scopes, sessions, CSRF tokens and the audit trail.
package shared

import "errors"

// Domain sentinels. Services wrap them with %w; httpx maps them to statuses.
var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation failed")
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrDuplicate          = errors.New("duplicate entry")
)

// Sign-in and form protection failures.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrCSRFTokenMissing   = errors.New("csrf token missing")
	ErrCSRFTokenMismatch  = errors.New("csrf token mismatch")
)
