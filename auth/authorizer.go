package auth

import (
	"context"
	"fmt"
	"strings"
)

// Authorizer decides whether an identity may use a resource.
type Authorizer interface {
	Name() string
	Authorize(ctx context.Context, id *Identity, resource string) error
}

// AuthzError describes a denied request. It matches ErrForbidden.
type AuthzError struct {
	Principal string
	Resource  string
	Required  []string
}

// Error returns the error message.
func (e *AuthzError) Error() string {
	return fmt.Sprintf("auth: %q may not access %q: requires one of %s",
		e.Principal, e.Resource, strings.Join(e.Required, ", "))
}

// Is reports whether target is ErrForbidden.
func (e *AuthzError) Is(target error) bool {
	return target == ErrForbidden
}

// DefaultImplications lets og_admin act as every other permission.
var DefaultImplications = map[string][]string{
	PermAdmin: {PermAPIUser, PermWebUser},
}

// PermissionAuthorizer allows identities holding any of a set of
// permissions, directly or through an implication.
type PermissionAuthorizer struct {
	anyOf   []string
	implies map[string][]string
}

// RequireAny creates an authorizer that accepts any of perms, expanding
// DefaultImplications.
func RequireAny(perms ...string) *PermissionAuthorizer {
	return &PermissionAuthorizer{anyOf: perms, implies: DefaultImplications}
}

// Name returns "permission".
func (a *PermissionAuthorizer) Name() string { return "permission" }

// Authorize returns nil if id holds a required permission.
func (a *PermissionAuthorizer) Authorize(_ context.Context, id *Identity, resource string) error {
	if id != nil {
		for _, want := range a.anyOf {
			if a.grants(id, want) {
				return nil
			}
		}
	}

	principal := ""
	if id != nil {
		principal = id.Principal
	}
	return &AuthzError{Principal: principal, Resource: resource, Required: a.anyOf}
}

func (a *PermissionAuthorizer) grants(id *Identity, want string) bool {
	for _, held := range id.Permissions {
		if held == want {
			return true
		}
		for _, implied := range a.implies[held] {
			if implied == want {
				return true
			}
		}
	}
	return false
}

// AuthorizerFunc adapts a function to the Authorizer interface.
type AuthorizerFunc func(ctx context.Context, id *Identity, resource string) error

// Name returns "func".
func (f AuthorizerFunc) Name() string { return "func" }

// Authorize calls f.
func (f AuthorizerFunc) Authorize(ctx context.Context, id *Identity, resource string) error {
	return f(ctx, id, resource)
}

var (
	_ Authorizer = (*PermissionAuthorizer)(nil)
	_ Authorizer = AuthorizerFunc(nil)
)
