package auth

import (
	"context"
	"net/http"
)

// Authenticator validates credentials carried by a request.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Supports reports whether the request carries this kind of credential;
//     it must not validate it.
//   - Authenticate returns (nil, err) for credential failures wrapping one
//     of the package sentinels, and for internal errors, which do not.
type Authenticator interface {
	Name() string
	Supports(r *http.Request) bool
	Authenticate(ctx context.Context, r *http.Request) (*Identity, error)
}

// AuthenticatorFunc adapts functions to the Authenticator interface.
type AuthenticatorFunc struct {
	name     string
	supports func(r *http.Request) bool
	auth     func(ctx context.Context, r *http.Request) (*Identity, error)
}

// NewAuthenticatorFunc creates an AuthenticatorFunc.
func NewAuthenticatorFunc(
	name string,
	supports func(r *http.Request) bool,
	auth func(ctx context.Context, r *http.Request) (*Identity, error),
) *AuthenticatorFunc {
	return &AuthenticatorFunc{name: name, supports: supports, auth: auth}
}

// Name returns the authenticator name.
func (f *AuthenticatorFunc) Name() string { return f.name }

// Supports calls the supports function.
func (f *AuthenticatorFunc) Supports(r *http.Request) bool { return f.supports(r) }

// Authenticate calls the auth function.
func (f *AuthenticatorFunc) Authenticate(ctx context.Context, r *http.Request) (*Identity, error) {
	return f.auth(ctx, r)
}

var _ Authenticator = (*AuthenticatorFunc)(nil)
