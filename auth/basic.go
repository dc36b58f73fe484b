package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// BasicAuthenticator validates HTTP Basic credentials against a UserStore.
type BasicAuthenticator struct {
	users UserStore
}

// NewBasicAuthenticator creates a Basic authenticator over users.
func NewBasicAuthenticator(users UserStore) *BasicAuthenticator {
	return &BasicAuthenticator{users: users}
}

// Name returns "basic".
func (a *BasicAuthenticator) Name() string { return "basic" }

// Supports reports whether the request carries a Basic Authorization header.
func (a *BasicAuthenticator) Supports(r *http.Request) bool {
	scheme, _, _ := strings.Cut(r.Header.Get("Authorization"), " ")
	return strings.EqualFold(scheme, "Basic")
}

// Authenticate checks the username and password.
func (a *BasicAuthenticator) Authenticate(ctx context.Context, r *http.Request) (*Identity, error) {
	if r.Header.Get("Authorization") == "" {
		return nil, ErrMissingCredentials
	}
	username, password, ok := r.BasicAuth()
	if !ok {
		return nil, ErrMalformedHeader
	}

	user, err := a.users.Lookup(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("auth: lookup user: %w", err)
	}
	if user == nil {
		// Spend the same bcrypt work for unknown users.
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
		return nil, ErrInvalidCredentials
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	switch {
	case err == nil:
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return nil, ErrInvalidCredentials
	default:
		return nil, fmt.Errorf("%w: stored hash for %s: %v", ErrInvalidCredentials, username, err)
	}

	return &Identity{
		Principal:   user.Username,
		Permissions: user.Permissions,
		Method:      MethodBasic,
	}, nil
}

// HashPassword returns a bcrypt hash suitable for User.PasswordHash.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(b), nil
}

var dummyHash = sync.OnceValue(func() []byte {
	b, _ := bcrypt.GenerateFromPassword([]byte("searchcache-unknown-user"), bcrypt.DefaultCost)
	return b
})

var _ Authenticator = (*BasicAuthenticator)(nil)
