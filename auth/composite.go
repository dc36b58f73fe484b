package auth

import (
	"context"
	"errors"
	"net/http"
)

// CompositeAuthenticator tries authenticators in order.
//
// Only authenticators that support the request are consulted. The first
// success wins. A credential failure lets the next authenticator try; the
// first failure is reported if none succeeds. Internal errors stop the
// chain at once.
type CompositeAuthenticator struct {
	authenticators []Authenticator
}

// NewCompositeAuthenticator creates a composite authenticator. Nil entries
// are dropped.
func NewCompositeAuthenticator(auths ...Authenticator) *CompositeAuthenticator {
	c := &CompositeAuthenticator{}
	for _, a := range auths {
		if a != nil {
			c.authenticators = append(c.authenticators, a)
		}
	}
	return c
}

// Name returns "composite".
func (c *CompositeAuthenticator) Name() string { return "composite" }

// Supports returns true if any authenticator supports the request.
func (c *CompositeAuthenticator) Supports(r *http.Request) bool {
	for _, a := range c.authenticators {
		if a.Supports(r) {
			return true
		}
	}
	return false
}

// Authenticate runs the chain.
func (c *CompositeAuthenticator) Authenticate(ctx context.Context, r *http.Request) (*Identity, error) {
	var first error
	for _, a := range c.authenticators {
		if !a.Supports(r) {
			continue
		}

		id, err := a.Authenticate(ctx, r)
		if err == nil {
			return id, nil
		}
		if !IsCredentialError(err) {
			return nil, err
		}
		if first == nil {
			first = err
		}
	}

	if first != nil {
		return nil, first
	}
	return nil, ErrMissingCredentials
}

// IsCredentialError reports whether err means the caller's credentials
// were absent or rejected, rather than an internal failure.
func IsCredentialError(err error) bool {
	for _, target := range []error{
		ErrMissingCredentials,
		ErrInvalidCredentials,
		ErrMalformedHeader,
		ErrTokenExpired,
		ErrTokenMalformed,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

var _ Authenticator = (*CompositeAuthenticator)(nil)
