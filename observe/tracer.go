package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// ResourceMeta identifies the cached lookup being observed.
type ResourceMeta struct {
	Source    string // Data source, e.g. "instagram" (required)
	Operation string // Lookup kind, e.g. "search"
}

// SpanName returns the deterministic span name for this resource.
// Format: searchcache.<source>.<operation> or searchcache.<source>
func (m ResourceMeta) SpanName() string {
	if m.Operation != "" {
		return "searchcache." + m.Source + "." + m.Operation
	}
	return "searchcache." + m.Source
}

// ID returns "<source>.<operation>", or the source alone.
func (m ResourceMeta) ID() string {
	if m.Operation != "" {
		return m.Source + "." + m.Operation
	}
	return m.Source
}

// Validate reports whether the metadata carries a source.
func (m ResourceMeta) Validate() error {
	if m.Source == "" {
		return ErrMissingSource
	}
	return nil
}

func (m ResourceMeta) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("search.source", m.Source),
	}
	if m.Operation != "" {
		attrs = append(attrs, attribute.String("search.operation", m.Operation))
	}
	return attrs
}

// Tracer wraps OpenTelemetry tracing with per-resource span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: StartSpan returns a context carrying the new span.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for a cached lookup.
	StartSpan(ctx context.Context, meta ResourceMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

// tracerImpl is the concrete implementation of Tracer.
type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer wrapping the given OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span with resource metadata as attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, meta ResourceMeta) (context.Context, trace.Span) {
	attrs := append(meta.attributes(),
		attribute.Bool("search.error", false), // Will be updated in EndSpan if error
	)

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpan ends the span and records the error status if present.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("search.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// noopTracer is a tracer that does nothing.
type noopTracer struct {
	noop trace.Tracer
}

// NopTracer returns a Tracer that records nothing.
func NopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta ResourceMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, err error) {
	span.End()
}
