package auth

import "errors"

// Sentinel errors for authentication and authorization.
var (
	ErrMissingCredentials = errors.New("auth: missing credentials")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrMalformedHeader    = errors.New("auth: malformed authorization header")
	ErrTokenExpired       = errors.New("auth: token expired")
	ErrTokenMalformed     = errors.New("auth: token malformed")
	ErrInvalidEntry       = errors.New("auth: invalid credential entry")
	ErrMissingSigningKey  = errors.New("auth: signing key is required")

	ErrForbidden = errors.New("auth: access denied")
)
