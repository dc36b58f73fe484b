package auth

import (
	"slices"
	"time"
)

// Method indicates how a caller was authenticated.
type Method string

const (
	MethodBasic   Method = "basic"
	MethodAPIKey  Method = "api_key"
	MethodSession Method = "session"
)

// Permissions understood by the service.
const (
	PermAPIUser = "api_user"
	PermWebUser = "og_user"
	PermAdmin   = "og_admin"
)

// Identity is an authenticated caller.
type Identity struct {
	Principal   string
	Permissions []string
	Method      Method

	// KeyID names the API key used, for MethodAPIKey.
	KeyID string

	IssuedAt  time.Time
	ExpiresAt time.Time
}

// HasPermission reports whether perm was granted explicitly.
func (id *Identity) HasPermission(perm string) bool {
	return id != nil && slices.Contains(id.Permissions, perm)
}

// IsExpired reports whether the identity expired before now.
func (id *Identity) IsExpired(now time.Time) bool {
	return !id.ExpiresAt.IsZero() && now.After(id.ExpiresAt)
}
