package config

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jonwraymond/searchcache/secret"
)

// LookupFunc reads one environment variable, like os.LookupEnv.
type LookupFunc = secret.LookupFunc

// Environment variables read by Load.
const (
	EnvPort            = "PORT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvCacheMaxSize       = "CACHE_MAX_SIZE"
	EnvCacheTTLSeconds    = "CACHE_TTL_SECONDS"
	EnvCacheMaxTTL        = "CACHE_MAX_TTL"
	EnvCacheHashThreshold = "CACHE_KEY_HASH_THRESHOLD"

	EnvUpstreamBaseURL      = "UPSTREAM_BASE_URL"
	EnvUpstreamAPIKey       = "UPSTREAM_API_KEY"
	EnvUpstreamTimeout      = "UPSTREAM_TIMEOUT"
	EnvUpstreamRate         = "UPSTREAM_RATE"
	EnvUpstreamBurst        = "UPSTREAM_BURST"
	EnvUpstreamRetries      = "UPSTREAM_RETRIES"
	EnvUpstreamConcurrency  = "UPSTREAM_CONCURRENCY"
	EnvConcurrency          = "CONCURRENCY"
	EnvUpstreamMaxFailures  = "UPSTREAM_MAX_FAILURES"
	EnvUpstreamResetTimeout = "UPSTREAM_RESET_TIMEOUT"

	EnvLogLevel        = "LOG_LEVEL"
	EnvDebug           = "DEBUG"
	EnvTracingExporter = "TRACING_EXPORTER"
	EnvSampleRatio     = "TRACING_SAMPLE_RATIO"
	EnvMetricsExporter = "METRICS_EXPORTER"

	EnvSecretKey  = "SECRET_KEY"
	EnvSessionTTL = "SESSION_TTL"
	EnvAPIUsers   = "API_USERS"
	EnvAPIKeys    = "API_KEYS"

	EnvSecretProviders = "SECRET_PROVIDERS"
	EnvSecretFileRoot  = "SECRET_FILE_ROOT"
)

// NewResolver builds the secret resolver named by SECRET_PROVIDERS, a comma
// separated list that defaults to "env,file". Both ${VAR} expansion and the
// env provider read through lookup. The file provider is confined to
// SECRET_FILE_ROOT when it is set.
func NewResolver(lookup LookupFunc) (*secret.Resolver, error) {
	names := []string{"env", "file"}
	if v, ok := lookup(EnvSecretProviders); ok && strings.TrimSpace(v) != "" {
		names = splitList(v)
	}
	root, _ := lookup(EnvSecretFileRoot)

	r, err := secret.DefaultRegistry.NewResolver(true, names, map[string]any{
		secret.CfgLookup:   lookup,
		secret.CfgFileRoot: root,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, EnvSecretProviders, err)
	}
	return r, nil
}

// Load reads the configuration, resolving every value through resolver,
// and validates it. A nil resolver only expands ${VAR} references against
// lookup.
func Load(ctx context.Context, lookup LookupFunc, resolver *secret.Resolver) (Config, error) {
	cfg := Default()
	l := &loader{ctx: ctx, lookup: lookup, resolver: resolver}

	l.int(EnvPort, &cfg.Port)
	l.duration(EnvShutdownTimeout, &cfg.ShutdownTimeout)

	l.int(EnvCacheMaxSize, &cfg.Cache.MaxSize)
	l.float(EnvCacheTTLSeconds, &cfg.Cache.TTLSeconds)
	l.duration(EnvCacheMaxTTL, &cfg.Cache.MaxTTL)
	l.int(EnvCacheHashThreshold, &cfg.Cache.HashThreshold)

	l.string(EnvUpstreamBaseURL, &cfg.Upstream.BaseURL)
	l.string(EnvUpstreamAPIKey, &cfg.Upstream.APIKey)
	l.duration(EnvUpstreamTimeout, &cfg.Upstream.Timeout)
	l.float(EnvUpstreamRate, &cfg.Upstream.Rate)
	l.int(EnvUpstreamBurst, &cfg.Upstream.Burst)
	l.int(EnvUpstreamRetries, &cfg.Upstream.Retries)
	l.int(EnvConcurrency, &cfg.Upstream.Concurrency)
	l.int(EnvUpstreamConcurrency, &cfg.Upstream.Concurrency)
	l.int(EnvUpstreamMaxFailures, &cfg.Upstream.MaxFailures)
	l.duration(EnvUpstreamResetTimeout, &cfg.Upstream.ResetTimeout)

	var debug bool
	l.bool(EnvDebug, &debug)
	if debug {
		cfg.Telemetry.LogLevel = "debug"
	}
	l.string(EnvLogLevel, &cfg.Telemetry.LogLevel)
	cfg.Telemetry.LogLevel = strings.ToLower(cfg.Telemetry.LogLevel)
	l.string(EnvTracingExporter, &cfg.Telemetry.TracingExporter)
	l.float(EnvSampleRatio, &cfg.Telemetry.SampleRatio)
	l.string(EnvMetricsExporter, &cfg.Telemetry.MetricsExporter)

	l.string(EnvSecretKey, &cfg.Auth.SecretKey)
	l.duration(EnvSessionTTL, &cfg.Auth.SessionTTL)
	l.string(EnvAPIUsers, &cfg.Auth.Users)
	l.string(EnvAPIKeys, &cfg.Auth.APIKeys)

	if l.err != nil {
		return Config{}, l.err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loader keeps the first failure; later reads become no-ops.
type loader struct {
	ctx      context.Context
	lookup   LookupFunc
	resolver *secret.Resolver
	err      error
}

// value returns the resolved, trimmed value of key and whether it is set
// to something non-empty.
func (l *loader) value(key string) (string, bool) {
	if l.err != nil {
		return "", false
	}
	raw, ok := l.lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return "", false
	}
	var v string
	var err error
	if l.resolver != nil {
		v, err = l.resolver.ResolveValue(l.ctx, raw)
	} else {
		v, err = secret.ExpandEnv(raw, l.lookup)
	}
	if err != nil {
		l.err = fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (l *loader) fail(key, raw string, err error) {
	l.err = fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, key, raw, err)
}

func (l *loader) string(key string, dst *string) {
	if v, ok := l.value(key); ok {
		*dst = v
	}
}

func (l *loader) int(key string, dst *int) {
	v, ok := l.value(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		l.fail(key, v, err)
		return
	}
	*dst = n
}

func (l *loader) float(key string, dst *float64) {
	v, ok := l.value(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		l.fail(key, v, err)
		return
	}
	*dst = f
}

func (l *loader) bool(key string, dst *bool) {
	v, ok := l.value(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		l.fail(key, v, err)
		return
	}
	*dst = b
}

func (l *loader) duration(key string, dst *time.Duration) {
	v, ok := l.value(key)
	if !ok {
		return
	}
	d, err := parseDuration(v)
	if err != nil {
		l.fail(key, v, err)
		return
	}
	*dst = d
}

// parseDuration accepts a Go duration or a bare number of seconds.
func parseDuration(s string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
