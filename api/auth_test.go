package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/jonwraymond/searchcache/auth"
)

const (
	userKey   = "user-key"
	viewerKey = "viewer-key"
)

// newAuthFixture guards the server with API keys and session tokens, and
// requires the api_user permission.
func newAuthFixture(t *testing.T) *fixture {
	t.Helper()
	keys := auth.NewMemoryAPIKeyStore(
		&auth.APIKeyInfo{ID: "svc", KeyHash: auth.HashAPIKey(userKey), Permissions: []string{auth.PermAPIUser}},
		&auth.APIKeyInfo{ID: "viewer", KeyHash: auth.HashAPIKey(viewerKey), Permissions: []string{auth.PermWebUser}},
	)
	sessions, err := auth.NewSessionAuthenticator(auth.SessionConfig{
		Key: []byte("test-signing-key"),
		TTL: time.Hour,
		Now: func() time.Time { return epoch },
	})
	if err != nil {
		t.Fatalf("NewSessionAuthenticator error = %v", err)
	}

	guard := auth.Middleware(auth.MiddlewareConfig{
		Authenticator: auth.NewCompositeAuthenticator(auth.NewAPIKeyAuthenticator(keys), sessions),
		Authorizer:    auth.RequireAny(auth.PermAPIUser),
	})
	return newFixture(t, func(c *Config) {
		c.Auth = guard
		c.Sessions = sessions
	})
}

func TestAuth_Guard(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		status  int
		detail  string
	}{
		{"no credentials", nil, http.StatusUnauthorized, "Authentication required"},
		{"unknown key", map[string]string{auth.APIKeyHeader: "nope"}, http.StatusUnauthorized, "Incorrect username or password"},
		{"missing permission", map[string]string{auth.APIKeyHeader: viewerKey}, http.StatusForbidden, "API access required"},
		{"api user", map[string]string{auth.APIKeyHeader: userKey}, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			rec := f.do(t, http.MethodPost, "/v1/instagram/search", `{"queries":["a"]}`, tt.headers)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body)
			}
			if rec.Header().Get("WWW-Authenticate") != "" {
				t.Error("WWW-Authenticate must not be set")
			}
			if tt.detail != "" {
				if got := decodeBody[ErrorResponse](t, rec).Detail; got != tt.detail {
					t.Errorf("detail = %q, want %q", got, tt.detail)
				}
				if n := f.engine.calls.Load(); n != 0 {
					t.Errorf("rejected request reached the engine %d times", n)
				}
			}
		})
	}
}

func TestAuth_HealthIsOpen(t *testing.T) {
	f := newAuthFixture(t)
	if rec := f.do(t, http.MethodGet, "/v1/health", "", nil); rec.Code != http.StatusOK {
		t.Errorf("/v1/health = %d, want 200 without credentials", rec.Code)
	}
}

func TestAuth_SessionRoundTrip(t *testing.T) {
	f := newAuthFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/session", "", map[string]string{auth.APIKeyHeader: userKey})
	if rec.Code != http.StatusOK {
		t.Fatalf("/v1/session = %d %s", rec.Code, rec.Body)
	}
	issued := decodeBody[map[string]string](t, rec)
	token := issued["token"]
	if token == "" {
		t.Fatalf("no token in %v", issued)
	}

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookie {
			cookie = c
		}
	}
	if cookie == nil || !cookie.HttpOnly || cookie.Value != token {
		t.Fatalf("session cookie = %+v", cookie)
	}

	rec = f.do(t, http.MethodPost, "/v1/tiktok/profile", `{"identifier":"x"}`,
		map[string]string{"Authorization": "Bearer " + token})
	if rec.Code != http.StatusOK {
		t.Errorf("bearer session = %d %s", rec.Code, rec.Body)
	}

	rec = f.do(t, http.MethodPost, "/v1/session", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("/v1/session without credentials = %d, want 401", rec.Code)
	}
}
