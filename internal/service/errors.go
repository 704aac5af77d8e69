// Package service holds the transport-independent core of the storefront:
// token issuance and verification, the refresh-token session store, the
// authentication use cases and the catalog read-through cache.
package service

import "errors"

// Error taxonomy surfaced to handlers.  Services wrap these with context;
// handlers classify with errors.Is.
var (
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrUnavailable  = errors.New("service unavailable")
	ErrValidation   = errors.New("validation failed")
)

// Token verification failures.  Expired is kept apart from every other
// failure because clients react differently: refresh versus re-login.
var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)
