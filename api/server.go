package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/jonwraymond/searchcache/auth"
	"github.com/jonwraymond/searchcache/cache"
	"github.com/jonwraymond/searchcache/health"
	"github.com/jonwraymond/searchcache/observe"
	"github.com/jonwraymond/searchcache/source"
)

// maxBodyBytes bounds a lookup request body.
const maxBodyBytes = 1 << 20

// ErrMissingDependency is returned by New when a required collaborator is nil.
var ErrMissingDependency = errors.New("api: missing dependency")

// Config wires the server's collaborators. Engine and Cache are required.
type Config struct {
	Engine  source.Engine
	Cache   *cache.Middleware[[]source.Record]
	Observe *observe.Middleware

	// Auth guards every /v1 route except /v1/health. Nil leaves them open.
	Auth func(http.Handler) http.Handler

	// Sessions, when set, mounts POST /v1/session behind Auth.
	Sessions *auth.SessionAuthenticator

	// Health, when set, mounts /healthz, /readyz and /health.
	Health *health.Aggregator

	// Metrics, when set, is mounted at GET /metrics.
	Metrics http.Handler
}

// Server routes HTTP requests to cached lookups.
type Server struct {
	engine  source.Engine
	cache   *cache.Middleware[[]source.Record]
	observe *observe.Middleware
	mux     *http.ServeMux
}

// New builds the server and its routes.
func New(cfg Config) (*Server, error) {
	if cfg.Engine == nil {
		return nil, errors.Join(ErrMissingDependency, errors.New("engine is required"))
	}
	if cfg.Cache == nil {
		return nil, errors.Join(ErrMissingDependency, errors.New("cache is required"))
	}
	if cfg.Observe == nil {
		cfg.Observe = observe.NewMiddleware(nil, nil, nil)
	}
	guard := cfg.Auth
	if guard == nil {
		guard = func(h http.Handler) http.Handler { return h }
	}

	s := &Server{
		engine:  cfg.Engine,
		cache:   cfg.Cache,
		observe: cfg.Observe,
		mux:     http.NewServeMux(),
	}

	s.mux.Handle("POST /v1/{datasource}/{operation}", guard(http.HandlerFunc(s.lookup)))
	s.mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Sessions != nil {
		s.mux.Handle("POST /v1/session", guard(auth.SessionHandler(cfg.Sessions)))
	}
	if cfg.Health != nil {
		health.RegisterHandlers(s.mux, cfg.Health)
		s.mux.Handle("GET /{$}", http.RedirectHandler("/health", http.StatusTemporaryRedirect))
	}
	if cfg.Metrics != nil {
		s.mux.Handle("GET /metrics", cfg.Metrics)
	}
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// lookup serves one cached lookup.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	op, err := source.ParseOperation(r.PathValue("operation"))
	if err != nil {
		writeDetail(w, http.StatusNotFound, "Not Found")
		return
	}
	ds, err := source.ParseDataSource(r.PathValue("datasource"))
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	params, err := source.DecodeParams(op, http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.decodeFailed(ctx, w, err)
		return
	}

	meta := observe.ResourceMeta{Source: string(ds), Operation: string(op)}
	records, outcome, err := observe.Serve(ctx, s.observe, s.cache, meta, params,
		func(ctx context.Context) ([]source.Record, error) {
			return s.engine.Fetch(ctx, source.Query{Source: ds, Operation: op, Params: params})
		})
	if err != nil {
		if errors.Is(err, source.ErrInvalidRequest) {
			writeDetail(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	outcome.WriteHeaders(w.Header())
	writeJSON(w, http.StatusOK, newSearchResponse(op, records))
}

func (s *Server) decodeFailed(ctx context.Context, w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeDetail(w, http.StatusRequestEntityTooLarge, "request body too large")
	case errors.Is(err, source.ErrInvalidRequest):
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.observe.Logger().Warn(ctx, "read request body", observe.Field{Key: "error", Value: err.Error()})
		writeDetail(w, http.StatusBadRequest, "could not read request body")
	}
}
