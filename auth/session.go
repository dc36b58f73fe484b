package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookie is the cookie carrying a session token.
const SessionCookie = "session"

// SessionConfig configures session tokens.
type SessionConfig struct {
	// Key signs tokens with HMAC-SHA256. Required.
	Key []byte

	// TTL is the token lifetime.
	// Default: 24 hours
	TTL time.Duration

	// Issuer is written to and required in the iss claim.
	// Default: "searchcache"
	Issuer string

	// Users, when set, is consulted on every request so that removed users
	// lose access and permission changes apply before the token expires.
	// Tokens issued to API keys keep the permissions they were issued with.
	Users UserStore

	// Now is the time source. Default: time.Now
	Now func() time.Time
}

// SessionClaims are the claims of a session token.
type SessionClaims struct {
	Permissions []string `json:"perms,omitempty"`

	// Via is how the caller authenticated when the token was issued.
	Via Method `json:"via,omitempty"`

	jwt.RegisteredClaims
}

// SessionAuthenticator issues and validates signed session tokens.
type SessionAuthenticator struct {
	config SessionConfig
	parser *jwt.Parser
}

// NewSessionAuthenticator creates a session authenticator.
func NewSessionAuthenticator(config SessionConfig) (*SessionAuthenticator, error) {
	if len(config.Key) == 0 {
		return nil, ErrMissingSigningKey
	}
	if config.TTL <= 0 {
		config.TTL = 24 * time.Hour
	}
	if config.Issuer == "" {
		config.Issuer = "searchcache"
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &SessionAuthenticator{
		config: config,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(config.Issuer),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(config.Now),
		),
	}, nil
}

// Name returns "session".
func (a *SessionAuthenticator) Name() string { return "session" }

// TTL returns the token lifetime.
func (a *SessionAuthenticator) TTL() time.Duration { return a.config.TTL }

// Issue signs a token for id that expires after TTL.
func (a *SessionAuthenticator) Issue(id *Identity) (string, time.Time, error) {
	now := a.config.Now()
	exp := now.Add(a.config.TTL)

	claims := SessionClaims{
		Permissions: id.Permissions,
		Via:         id.Method,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.config.Issuer,
			Subject:   id.Principal,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.config.Key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign session: %w", err)
	}
	return signed, exp, nil
}

// Supports reports whether the request carries a Bearer token or a session
// cookie.
func (a *SessionAuthenticator) Supports(r *http.Request) bool {
	return a.token(r) != ""
}

// Authenticate validates the token's signature, issuer and expiry.
func (a *SessionAuthenticator) Authenticate(ctx context.Context, r *http.Request) (*Identity, error) {
	raw := a.token(r)
	if raw == "" {
		return nil, ErrMissingCredentials
	}

	var claims SessionClaims
	_, err := a.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return a.config.Key, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		return nil, ErrTokenMalformed
	default:
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	if claims.Subject == "" {
		return nil, ErrTokenMalformed
	}

	id := &Identity{
		Principal:   claims.Subject,
		Permissions: claims.Permissions,
		Method:      MethodSession,
	}
	if claims.IssuedAt != nil {
		id.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}

	if a.config.Users != nil && claims.Via != MethodAPIKey {
		user, err := a.config.Users.Lookup(ctx, claims.Subject)
		if err != nil {
			return nil, fmt.Errorf("auth: lookup user: %w", err)
		}
		if user == nil {
			return nil, ErrInvalidCredentials
		}
		id.Permissions = user.Permissions
	}
	return id, nil
}

func (a *SessionAuthenticator) token(r *http.Request) string {
	if scheme, tok, ok := strings.Cut(r.Header.Get("Authorization"), " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(tok)
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

var _ Authenticator = (*SessionAuthenticator)(nil)
