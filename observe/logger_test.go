package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func decodeLine(t *testing.T, line string) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("failed to parse log output as JSON: %v\nOutput: %s", err, line)
	}
	return entry
}

// TestLogger_IncludesResourceFields verifies resource fields are present in log output.
func TestLogger_IncludesResourceFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	meta := ResourceMeta{Source: "instagram", Operation: "search"}
	logger.WithResource(meta).Info(context.Background(), "test message")

	entry := decodeLine(t, buf.String())

	if v, ok := entry["search.resource"].(string); !ok || v != "instagram.search" {
		t.Errorf("expected search.resource='instagram.search', got %v", entry["search.resource"])
	}
	if v, ok := entry["search.source"].(string); !ok || v != "instagram" {
		t.Errorf("expected search.source='instagram', got %v", entry["search.source"])
	}
	if v, ok := entry["search.operation"].(string); !ok || v != "search" {
		t.Errorf("expected search.operation='search', got %v", entry["search.operation"])
	}
	if v, ok := entry["msg"].(string); !ok || v != "test message" {
		t.Errorf("expected msg='test message', got %v", entry["msg"])
	}
	if _, ok := entry["timestamp"].(string); !ok {
		t.Error("expected timestamp field")
	}
}

// TestLogger_IncludesDuration verifies duration_ms field is present.
func TestLogger_IncludesDuration(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Info(context.Background(), "test message",
		Field{Key: "duration_ms", Value: 50.5},
	)

	entry := decodeLine(t, buf.String())
	if v, ok := entry["duration_ms"].(float64); !ok || v != 50.5 {
		t.Errorf("expected duration_ms=50.5, got %v", entry["duration_ms"])
	}
}

// TestLogger_Levels verifies each method writes its level name.
func TestLogger_Levels(t *testing.T) {
	tests := []struct {
		name string
		log  func(Logger)
		want string
	}{
		{"debug", func(l Logger) { l.Debug(context.Background(), "m") }, "debug"},
		{"info", func(l Logger) { l.Info(context.Background(), "m") }, "info"},
		{"warn", func(l Logger) { l.Warn(context.Background(), "m") }, "warn"},
		{"error", func(l Logger) { l.Error(context.Background(), "m") }, "error"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			tc.log(NewLoggerWithWriter("debug", &buf))

			entry := decodeLine(t, buf.String())
			if v, ok := entry["level"].(string); !ok || v != tc.want {
				t.Errorf("expected level=%q, got %v", tc.want, entry["level"])
			}
		})
	}
}

// TestLogger_ErrorField verifies error values are rendered as strings.
func TestLogger_ErrorField(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Error(context.Background(), "lookup failed",
		Field{Key: "error", Value: errors.New("connection timeout")},
	)

	entry := decodeLine(t, buf.String())
	if v, ok := entry["error"].(string); !ok || v != "connection timeout" {
		t.Errorf("expected error='connection timeout', got %v", entry["error"])
	}
}

// TestLogger_SensitiveFieldsRedacted verifies credentials and params are not logged.
func TestLogger_SensitiveFieldsRedacted(t *testing.T) {
	for _, key := range []string{"password", "token", "api_key", "Authorization", "params", "secret"} {
		t.Run(key, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLoggerWithWriter("info", &buf)

			logger.Info(context.Background(), "request", Field{Key: key, Value: "hunter2"})

			output := buf.String()
			if strings.Contains(output, "hunter2") {
				t.Errorf("%s should be redacted, but found in output", key)
			}
			if v := decodeLine(t, output)[key]; v != "[REDACTED]" {
				t.Errorf("expected [REDACTED] for %s, got %v", key, v)
			}
		})
	}
}

// TestLogger_LevelFiltering verifies log level filtering.
func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("warn", &buf)

	logger.Info(context.Background(), "info message")
	if strings.Contains(buf.String(), "info message") {
		t.Error("info message should be filtered when level is warn")
	}

	logger.Warn(context.Background(), "warn message")
	if !strings.Contains(buf.String(), "warn message") {
		t.Error("warn message should pass through when level is warn")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   LevelDebug,
		"info":    LevelInfo,
		"warn":    LevelWarn,
		"error":   LevelError,
		"":        LevelInfo,
		"verbose": LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

// TestLogger_With verifies fields attached with With appear on every entry.
func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	base := NewLoggerWithWriter("info", &buf).(ExtendedLogger)

	logger := base.With(Field{Key: "request_id", Value: "req-1"}, Field{Key: "token", Value: "t"})
	logger.Info(context.Background(), "first")
	logger.Info(context.Background(), "second")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	for _, line := range lines {
		entry := decodeLine(t, line)
		if entry["request_id"] != "req-1" {
			t.Errorf("expected request_id on every entry, got %v", entry["request_id"])
		}
		if entry["token"] != "[REDACTED]" {
			t.Errorf("expected token redacted, got %v", entry["token"])
		}
	}
}

// TestLogger_ConcurrentWritesAreLineAtomic verifies derived loggers share one lock.
func TestLogger_ConcurrentWritesAreLineAtomic(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.WithResource(ResourceMeta{Source: "tiktok"}).Info(context.Background(), "concurrent")
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 20 {
		t.Fatalf("expected 20 lines, got %d", len(lines))
	}
	for _, line := range lines {
		decodeLine(t, line)
	}
}

func TestLogger_TraceCorrelation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{0x01, 0x02},
		SpanID:  trace.SpanID{0x03},
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	logger.Info(ctx, "cache.miss")

	entry := decodeLine(t, buf.String())
	if entry["trace_id"] != sc.TraceID().String() || entry["span_id"] != sc.SpanID().String() {
		t.Errorf("trace fields = %v/%v, want %s/%s", entry["trace_id"], entry["span_id"], sc.TraceID(), sc.SpanID())
	}

	buf.Reset()
	logger.Info(context.Background(), "no span")
	if _, ok := decodeLine(t, buf.String())["trace_id"]; ok {
		t.Error("trace_id set without an active span")
	}
}

func TestWith_FallsBackForPlainLoggers(t *testing.T) {
	if got := With(NopLogger(), Field{Key: "component", Value: "upstream"}); got != NopLogger() {
		t.Errorf("With(NopLogger) = %T, want the same logger", got)
	}

	var buf bytes.Buffer
	With(NewLoggerWithWriter("info", &buf), Field{Key: "component", Value: "upstream"}).Info(context.Background(), "x")
	if decodeLine(t, buf.String())["component"] != "upstream" {
		t.Errorf("component field missing: %s", buf.String())
	}
}
