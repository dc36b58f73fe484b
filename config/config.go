package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jonwraymond/searchcache/cache"
	"github.com/jonwraymond/searchcache/observe"
	"github.com/jonwraymond/searchcache/source"
)

// ErrInvalidConfig wraps every configuration failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// ServiceName identifies the service in telemetry and session tokens.
const ServiceName = "searchcache"

// Config is the complete service configuration.
type Config struct {
	Port            int
	ShutdownTimeout time.Duration

	Cache     CacheConfig
	Upstream  UpstreamConfig
	Telemetry TelemetryConfig
	Auth      AuthConfig
}

// CacheConfig sizes the response cache.
type CacheConfig struct {
	MaxSize       int
	TTLSeconds    float64
	MaxTTL        time.Duration
	HashThreshold int
}

// UpstreamConfig configures the gateway client and its guards.
type UpstreamConfig struct {
	BaseURL      string
	APIKey       string
	Timeout      time.Duration
	Rate         float64
	Burst        int
	Retries      int
	Concurrency  int
	MaxFailures  int
	ResetTimeout time.Duration
}

// TelemetryConfig selects exporters and the log level.
type TelemetryConfig struct {
	LogLevel        string
	TracingExporter string
	SampleRatio     float64
	MetricsExporter string
}

// AuthConfig holds credentials. Users and APIKeys keep the raw entry
// lists; the auth package parses them.
type AuthConfig struct {
	SecretKey  string
	SessionTTL time.Duration
	Users      string
	APIKeys    string
}

// Default returns the configuration used when the environment sets nothing.
func Default() Config {
	return Config{
		Port:            3000,
		ShutdownTimeout: 10 * time.Second,
		Cache: CacheConfig{
			MaxSize:    1000,
			TTLSeconds: 60,
		},
		Upstream: UpstreamConfig{
			Timeout:      60 * time.Second,
			Rate:         2,
			Burst:        2,
			Retries:      3,
			Concurrency:  2,
			MaxFailures:  5,
			ResetTimeout: 30 * time.Second,
		},
		Telemetry: TelemetryConfig{
			LogLevel:        "info",
			TracingExporter: "none",
			SampleRatio:     1,
			MetricsExporter: "prometheus",
		},
		Auth: AuthConfig{
			SessionTTL: 24 * time.Hour,
		},
	}
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	fail := func(field, format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s: %s", ErrInvalidConfig, field, fmt.Sprintf(format, args...)))
	}

	if c.Port <= 0 || c.Port > 65535 {
		fail("PORT", "must be between 1 and 65535, got %d", c.Port)
	}
	if c.ShutdownTimeout <= 0 {
		fail("SHUTDOWN_TIMEOUT", "must be positive")
	}
	if err := c.CacheConfig().Validate(); err != nil {
		fail("CACHE", "%v", err)
	}
	if c.Cache.HashThreshold < 0 {
		fail("CACHE_KEY_HASH_THRESHOLD", "must not be negative")
	}

	if c.Upstream.BaseURL == "" {
		fail("UPSTREAM_BASE_URL", "is required")
	} else if u, err := url.Parse(c.Upstream.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		fail("UPSTREAM_BASE_URL", "must be an absolute http(s) url, got %q", c.Upstream.BaseURL)
	}
	if c.Upstream.Timeout <= 0 {
		fail("UPSTREAM_TIMEOUT", "must be positive")
	}
	if c.Upstream.Rate <= 0 || c.Upstream.Burst <= 0 {
		fail("UPSTREAM_RATE", "rate and burst must be positive")
	}
	if c.Upstream.Retries <= 0 {
		fail("UPSTREAM_RETRIES", "must be at least 1")
	}
	if c.Upstream.Concurrency <= 0 {
		fail("UPSTREAM_CONCURRENCY", "must be at least 1")
	}

	obs := c.ObserveConfig("")
	if err := obs.Validate(); err != nil {
		fail("TELEMETRY", "%v", err)
	}

	if c.Auth.SessionTTL <= 0 {
		fail("SESSION_TTL", "must be positive")
	}
	return errors.Join(errs...)
}

// Addr is the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort("", strconv.Itoa(c.Port))
}

// CacheConfig returns the store configuration.
func (c Config) CacheConfig() cache.Config {
	return cache.Config{
		MaxSize:    c.Cache.MaxSize,
		DefaultTTL: time.Duration(c.Cache.TTLSeconds * float64(time.Second)),
		MaxTTL:     c.Cache.MaxTTL,
	}
}

// ObserveConfig returns the telemetry configuration for version.
func (c Config) ObserveConfig(version string) observe.Config {
	tracing := strings.ToLower(c.Telemetry.TracingExporter)
	metrics := strings.ToLower(c.Telemetry.MetricsExporter)
	return observe.Config{
		ServiceName: ServiceName,
		Version:     version,
		Tracing: observe.TracingConfig{
			Enabled:   tracing != "" && tracing != "none",
			Exporter:  tracing,
			SamplePct: c.Telemetry.SampleRatio,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  metrics != "" && metrics != "none",
			Exporter: metrics,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   c.Telemetry.LogLevel,
		},
	}
}

// GuardConfig returns the per-source resilience configuration.
func (c Config) GuardConfig() source.GuardConfig {
	return source.GuardConfig{
		Rate:          c.Upstream.Rate,
		Burst:         c.Upstream.Burst,
		MaxWait:       c.Upstream.Timeout,
		MaxConcurrent: c.Upstream.Concurrency,
		Attempts:      c.Upstream.Retries,
		Timeout:       c.Upstream.Timeout,
		MaxFailures:   c.Upstream.MaxFailures,
		ResetTimeout:  c.Upstream.ResetTimeout,
	}
}
