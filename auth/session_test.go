package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestSessions(t *testing.T, now *time.Time, users UserStore) *SessionAuthenticator {
	t.Helper()
	a, err := NewSessionAuthenticator(SessionConfig{
		Key:   []byte("test-signing-key"),
		Users: users,
		Now:   func() time.Time { return *now },
	})
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestNewSessionAuthenticator(t *testing.T) {
	if _, err := NewSessionAuthenticator(SessionConfig{}); !errors.Is(err, ErrMissingSigningKey) {
		t.Errorf("error = %v, want ErrMissingSigningKey", err)
	}

	a, err := NewSessionAuthenticator(SessionConfig{Key: []byte("k")})
	if err != nil {
		t.Fatal(err)
	}
	if a.TTL() != 24*time.Hour || a.config.Issuer != "searchcache" {
		t.Errorf("defaults = %v, %q", a.TTL(), a.config.Issuer)
	}
}

func TestSession_IssueAndAuthenticate(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	a := newTestSessions(t, &now, nil)

	token, exp, err := a.Issue(&Identity{Principal: "alice", Permissions: []string{PermAPIUser}})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if !exp.Equal(now.Add(24 * time.Hour)) {
		t.Errorf("exp = %v", exp)
	}

	for name, r := range map[string]*http.Request{
		"bearer": newRequest(map[string]string{"Authorization": "Bearer " + token}),
		"cookie": newRequest(map[string]string{"Cookie": SessionCookie + "=" + token}),
	} {
		t.Run(name, func(t *testing.T) {
			if !a.Supports(r) {
				t.Fatal("Supports() = false")
			}
			id, err := a.Authenticate(context.Background(), r)
			if err != nil {
				t.Fatalf("Authenticate() error = %v", err)
			}
			if id.Principal != "alice" || id.Method != MethodSession || !id.HasPermission(PermAPIUser) {
				t.Errorf("identity = %+v", id)
			}
			if !id.IssuedAt.Equal(now) {
				t.Errorf("IssuedAt = %v", id.IssuedAt)
			}
		})
	}
}

func TestSession_Expired(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	a := newTestSessions(t, &now, nil)
	token, _, _ := a.Issue(&Identity{Principal: "alice"})

	now = now.Add(25 * time.Hour)
	_, err := a.Authenticate(context.Background(), newRequest(map[string]string{"Authorization": "Bearer " + token}))
	if !errors.Is(err, ErrTokenExpired) {
		t.Errorf("error = %v, want ErrTokenExpired", err)
	}
}

func TestSession_Rejections(t *testing.T) {
	now := time.Now()
	a := newTestSessions(t, &now, nil)

	other, _ := NewSessionAuthenticator(SessionConfig{Key: []byte("another-key")})
	forged, _, _ := other.Issue(&Identity{Principal: "alice"})

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "alice", "iss": "searchcache", "exp": now.Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	noExp, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "alice", "iss": "searchcache",
	}).SignedString([]byte("test-signing-key"))

	wrongIssuer, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "alice", "iss": "elsewhere", "exp": now.Add(time.Hour).Unix(),
	}).SignedString([]byte("test-signing-key"))

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"garbage", "not.a.jwt", ErrTokenMalformed},
		{"wrong key", forged, ErrInvalidCredentials},
		{"alg none", none, ErrInvalidCredentials},
		{"no expiry", noExp, ErrInvalidCredentials},
		{"wrong issuer", wrongIssuer, ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Authenticate(context.Background(), newRequest(map[string]string{"Authorization": "Bearer " + tt.token}))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSession_UserStoreRefresh(t *testing.T) {
	now := time.Now()
	store := NewMemoryUserStore(&User{Username: "alice", Permissions: []string{PermAdmin}})
	a := newTestSessions(t, &now, store)

	token, _, _ := a.Issue(&Identity{Principal: "alice", Permissions: []string{PermWebUser}})
	r := newRequest(map[string]string{"Authorization": "Bearer " + token})

	id, err := a.Authenticate(context.Background(), r)
	if err != nil {
		t.Fatal(err)
	}
	if !id.HasPermission(PermAdmin) || id.HasPermission(PermWebUser) {
		t.Errorf("permissions = %v, want those of the store", id.Permissions)
	}

	gone, _, _ := a.Issue(&Identity{Principal: "carol"})
	_, err = a.Authenticate(context.Background(), newRequest(map[string]string{"Authorization": "Bearer " + gone}))
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("removed user error = %v, want ErrInvalidCredentials", err)
	}
}

func TestSession_APIKeyTokensSkipUserStore(t *testing.T) {
	now := time.Now()
	a := newTestSessions(t, &now, NewMemoryUserStore())

	token, _, err := a.Issue(&Identity{Principal: "svc", Permissions: []string{PermAPIUser}, Method: MethodAPIKey})
	if err != nil {
		t.Fatal(err)
	}
	id, err := a.Authenticate(context.Background(), newRequest(map[string]string{"Authorization": "Bearer " + token}))
	if err != nil {
		t.Fatalf("Authenticate error = %v", err)
	}
	if id.Principal != "svc" || !id.HasPermission(PermAPIUser) {
		t.Errorf("identity = %+v", id)
	}
}
