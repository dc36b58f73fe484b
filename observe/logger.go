package observe

import (
	"context"
	"encoding/json"
	"io"
	"maps"
	"os"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// LogLevel represents a logging level.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
}

// ParseLogLevel parses a level name. Unknown names mean info.
func ParseLogLevel(s string) LogLevel {
	for l, name := range levelNames {
		if name == s {
			return LogLevel(l)
		}
	}
	return LevelInfo
}

func (l LogLevel) String() string {
	if l < LevelDebug || l > LevelError {
		return "info"
	}
	return levelNames[l]
}

// jsonLogger writes one JSON object per line. Entries logged under an
// active span carry its trace_id and span_id.
type jsonLogger struct {
	level LogLevel
	out   *lockedWriter
	base  map[string]any
	now   func() time.Time
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (lw *lockedWriter) writeLine(b []byte) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	_, _ = lw.w.Write(append(b, '\n'))
}

// NewLogger creates a JSON logger on stderr.
func NewLogger(level string) Logger {
	return NewLoggerWithWriter(level, os.Stderr)
}

// NewLoggerWithWriter creates a JSON logger on w.
func NewLoggerWithWriter(level string, w io.Writer) Logger {
	return &jsonLogger{
		level: ParseLogLevel(level),
		out:   &lockedWriter{w: w},
		now:   time.Now,
	}
}

func (l *jsonLogger) derive(extra map[string]any) *jsonLogger {
	base := make(map[string]any, len(l.base)+len(extra))
	maps.Copy(base, l.base)
	maps.Copy(base, extra)
	return &jsonLogger{level: l.level, out: l.out, base: base, now: l.now}
}

// WithResource returns a logger tagged with the looked-up resource.
func (l *jsonLogger) WithResource(meta ResourceMeta) Logger {
	attrs := map[string]any{
		"search.resource": meta.ID(),
		"search.source":   meta.Source,
	}
	if meta.Operation != "" {
		attrs["search.operation"] = meta.Operation
	}
	return l.derive(attrs)
}

// With returns a logger that adds fields to every entry.
func (l *jsonLogger) With(fields ...Field) Logger {
	attrs := make(map[string]any, len(fields))
	for _, f := range fields {
		attrs[f.Key] = redact(f)
	}
	return l.derive(attrs)
}

func (l *jsonLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, LevelInfo, msg, fields)
}

func (l *jsonLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, LevelWarn, msg, fields)
}

func (l *jsonLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, LevelError, msg, fields)
}

func (l *jsonLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, LevelDebug, msg, fields)
}

func (l *jsonLogger) log(ctx context.Context, level LogLevel, msg string, fields []Field) {
	if level < l.level {
		return
	}

	entry := make(map[string]any, len(l.base)+len(fields)+5)
	maps.Copy(entry, l.base)
	for _, f := range fields {
		entry[f.Key] = redact(f)
	}
	if ctx != nil {
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			entry["trace_id"] = sc.TraceID().String()
			entry["span_id"] = sc.SpanID().String()
		}
	}
	entry["timestamp"] = l.now().UTC().Format(time.RFC3339Nano)
	entry["level"] = level.String()
	entry["msg"] = msg

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	l.out.writeLine(data)
}

// RedactedFields lists field keys whose values never reach the log. Request
// parameters and bodies are included since search queries may carry user
// data. Matching ignores case.
var RedactedFields = []string{
	"params",
	"body",
	"password",
	"secret",
	"token",
	"api_key",
	"authorization",
	"credential",
}

var redactedKeys = func() map[string]bool {
	m := make(map[string]bool, len(RedactedFields))
	for _, k := range RedactedFields {
		m[strings.ToLower(k)] = true
	}
	return m
}()

func redact(f Field) any {
	if redactedKeys[strings.ToLower(f.Key)] {
		return "[REDACTED]"
	}
	if err, ok := f.Value.(error); ok && err != nil {
		return err.Error()
	}
	return f.Value
}

// ExtendedLogger is a Logger that can carry fields into every entry.
// Loggers derived with With share the parent's writer.
type ExtendedLogger interface {
	Logger
	With(fields ...Field) Logger
}

var _ ExtendedLogger = (*jsonLogger)(nil)

// With attaches fields to logger when it supports them and returns it
// unchanged otherwise.
func With(logger Logger, fields ...Field) Logger {
	if el, ok := logger.(ExtendedLogger); ok {
		return el.With(fields...)
	}
	return logger
}
