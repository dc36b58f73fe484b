package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/jonwraymond/searchcache/observe"
)

// MiddlewareConfig configures Middleware. Authorizer is optional; without
// it any authenticated caller passes.
type MiddlewareConfig struct {
	Authenticator Authenticator
	Authorizer    Authorizer
	Logger        observe.Logger
}

// Middleware authenticates each request and stores the identity in the
// request context. Rejections are JSON {"detail": ...} bodies.
func Middleware(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = observe.NopLogger()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			id, err := cfg.Authenticator.Authenticate(ctx, r)
			if err != nil {
				if !IsCredentialError(err) {
					logger.Error(ctx, "authentication error", observe.Field{Key: "error", Value: err})
					writeDetail(w, http.StatusInternalServerError, "Internal Server Error")
					return
				}
				logger.Warn(ctx, "authentication failed",
					observe.Field{Key: "path", Value: r.URL.Path},
					observe.Field{Key: "error", Value: err},
				)
				writeDetail(w, http.StatusUnauthorized, unauthorizedDetail(err))
				return
			}

			if cfg.Authorizer != nil {
				if err := cfg.Authorizer.Authorize(ctx, id, r.URL.Path); err != nil {
					logger.Warn(ctx, "access denied",
						observe.Field{Key: "principal", Value: id.Principal},
						observe.Field{Key: "path", Value: r.URL.Path},
					)
					if errors.Is(err, ErrForbidden) {
						writeDetail(w, http.StatusForbidden, "API access required")
					} else {
						writeDetail(w, http.StatusInternalServerError, "Internal Server Error")
					}
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, id)))
		})
	}
}

func unauthorizedDetail(err error) string {
	switch {
	case errors.Is(err, ErrMissingCredentials):
		return "Authentication required"
	case errors.Is(err, ErrMalformedHeader):
		return "Invalid authentication header"
	case errors.Is(err, ErrTokenExpired):
		return "Session expired"
	default:
		return "Incorrect username or password"
	}
}

// SessionHandler issues a session token to the already authenticated caller
// and sets it as an HttpOnly cookie. Mount it behind Middleware.
func SessionHandler(sessions *SessionAuthenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := IdentityFromContext(r.Context())
		if id == nil {
			writeDetail(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		token, exp, err := sessions.Issue(id)
		if err != nil {
			writeDetail(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    token,
			Path:     "/",
			Expires:  exp,
			MaxAge:   int(sessions.TTL() / time.Second),
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
		})
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"token":      token,
			"expires_at": exp.UTC().Format(time.RFC3339),
		})
	}
}

func writeDetail(w http.ResponseWriter, code int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
