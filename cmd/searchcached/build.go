package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonwraymond/searchcache/api"
	"github.com/jonwraymond/searchcache/auth"
	"github.com/jonwraymond/searchcache/cache"
	"github.com/jonwraymond/searchcache/config"
	"github.com/jonwraymond/searchcache/health"
	"github.com/jonwraymond/searchcache/observe"
	"github.com/jonwraymond/searchcache/resilience"
	"github.com/jonwraymond/searchcache/source"
)

// app is the wired service.
type app struct {
	handler http.Handler
	logger  observe.Logger
	closers []func() error
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn(context.Background(), "close failed", observe.Field{Key: "error", Value: err.Error()})
		}
	}
}

// build wires every component from cfg.
func build(ctx context.Context, cfg config.Config) (*app, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	obsCfg := cfg.ObserveConfig(version)
	obsCfg.Metrics.Registerer = reg
	obs, err := observe.NewObserver(ctx, obsCfg)
	if err != nil {
		return nil, fmt.Errorf("observe: %w", err)
	}
	a := &app{logger: obs.Logger()}
	a.closers = append(a.closers, func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return obs.Shutdown(shutdownCtx)
	})

	store, err := cache.New[[]source.Record](cfg.CacheConfig())
	if err != nil {
		return nil, err
	}
	keyer := cache.NewDefaultKeyer(cache.WithHashThreshold(cfg.Cache.HashThreshold))
	cached := cache.NewMiddleware[[]source.Record](store, keyer)

	gauges, err := observe.RegisterCacheGauges(obs.Meter(), store)
	if err != nil {
		return nil, fmt.Errorf("cache gauges: %w", err)
	}
	a.closers = append(a.closers, gauges.Unregister)

	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		return nil, fmt.Errorf("observe middleware: %w", err)
	}

	engine, registry, err := buildEngine(cfg, observe.With(a.logger, observe.Field{Key: "component", Value: "upstream"}))
	if err != nil {
		return nil, err
	}

	guard, sessions, err := buildAuth(ctx, cfg, observe.With(a.logger, observe.Field{Key: "component", Value: "auth"}))
	if err != nil {
		return nil, err
	}

	agg := health.NewAggregator()
	agg.Register(health.NewMemoryChecker(health.MemoryCheckerConfig{}))
	agg.Register(health.NewCacheChecker(store))
	agg.Register(health.NewUpstreamChecker(registry.Reporters()))

	var metricsHandler http.Handler
	if obsCfg.Metrics.Enabled && obsCfg.Metrics.Exporter == "prometheus" {
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
	}

	srv, err := api.New(api.Config{
		Engine:   engine,
		Cache:    cached,
		Observe:  mw,
		Auth:     guard,
		Sessions: sessions,
		Health:   agg,
		Metrics:  metricsHandler,
	})
	if err != nil {
		return nil, err
	}
	a.handler = srv
	return a, nil
}

// buildEngine stacks the gateway client, the per-source guards and the
// search paginator.
func buildEngine(cfg config.Config, logger observe.Logger) (source.Engine, *source.Registry, error) {
	gateway, err := source.NewHTTPEngine(source.HTTPConfig{
		BaseURL:   cfg.Upstream.BaseURL,
		APIKey:    cfg.Upstream.APIKey,
		UserAgent: config.ServiceName + "/" + version,
	})
	if err != nil {
		return nil, nil, err
	}

	guards := cfg.GuardConfig()
	guards.OnRetry = func(ds source.DataSource, attempt int, err error, delay time.Duration) {
		logger.Warn(context.Background(), "upstream retry",
			observe.Field{Key: "source", Value: string(ds)},
			observe.Field{Key: "attempt", Value: attempt},
			observe.Field{Key: "delay_ms", Value: delay.Milliseconds()},
			observe.Field{Key: "error", Value: err.Error()},
		)
	}
	guards.OnStateChange = func(ds source.DataSource, from, to resilience.State) {
		logger.Warn(context.Background(), "circuit state changed",
			observe.Field{Key: "source", Value: string(ds)},
			observe.Field{Key: "from", Value: from.String()},
			observe.Field{Key: "to", Value: to.String()},
		)
	}
	registry := source.NewRegistry(guards)

	engine := source.NewPaginator(source.NewResilientEngine(gateway, registry), cfg.Upstream.Concurrency, nil)
	return engine, registry, nil
}

// buildAuth builds the /v1 guard. Callers may use HTTP Basic, an API key or
// a session token, and need the api_user permission.
func buildAuth(ctx context.Context, cfg config.Config, logger observe.Logger) (func(http.Handler) http.Handler, *auth.SessionAuthenticator, error) {
	users, err := auth.ParseUsers(cfg.Auth.Users)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", config.EnvAPIUsers, err)
	}
	keys, err := auth.ParseAPIKeys(cfg.Auth.APIKeys)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", config.EnvAPIKeys, err)
	}
	userStore := auth.NewMemoryUserStore(users...)
	keyStore := auth.NewMemoryAPIKeyStore(keys...)
	if userStore.Len() == 0 && keyStore.Len() == 0 {
		logger.Warn(ctx, "no users or api keys configured; every lookup will be rejected")
	}

	signingKey := []byte(cfg.Auth.SecretKey)
	if len(signingKey) == 0 {
		signingKey = make([]byte, 32)
		if _, err := rand.Read(signingKey); err != nil {
			return nil, nil, fmt.Errorf("generate session key: %w", err)
		}
		logger.Warn(ctx, "SECRET_KEY not set; sessions will not survive a restart")
	}

	sessions, err := auth.NewSessionAuthenticator(auth.SessionConfig{
		Key:    signingKey,
		TTL:    cfg.Auth.SessionTTL,
		Issuer: config.ServiceName,
		Users:  userStore,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("session authenticator: %w", err)
	}

	guard := auth.Middleware(auth.MiddlewareConfig{
		Authenticator: auth.NewCompositeAuthenticator(
			auth.NewBasicAuthenticator(userStore),
			auth.NewAPIKeyAuthenticator(keyStore),
			sessions,
		),
		Authorizer: auth.RequireAny(auth.PermAPIUser),
		Logger:     logger,
	})
	return guard, sessions, nil
}
