// Package telemetry provides OpenTelemetry tracing for task and revoke
// executions.
package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Tracer wraps OpenTelemetry tracing with recorder-specific helpers.
type Tracer struct {
	tracer trace.Tracer
	debug  bool // When true, include error text in span attributes
}

var (
	globalTracer *Tracer
	tracerMu     sync.RWMutex
)

// SetGlobalTracer sets the global tracer instance.
func SetGlobalTracer(t *Tracer) {
	tracerMu.Lock()
	defer tracerMu.Unlock()
	globalTracer = t
}

// GetTracer returns the global tracer, or a no-op tracer if not set.
func GetTracer() *Tracer {
	tracerMu.RLock()
	defer tracerMu.RUnlock()
	if globalTracer == nil {
		return NewNoopTracer()
	}
	return globalTracer
}

// NewNoopTracer returns a tracer whose spans are never recorded.
func NewNoopTracer() *Tracer {
	return &Tracer{tracer: noop.NewTracerProvider().Tracer("")}
}

// NewTracer creates a tracer from the global OpenTelemetry provider.
func NewTracer(name string, debug bool) *Tracer {
	return &Tracer{
		tracer: otel.Tracer(name),
		debug:  debug,
	}
}

// NewTracerFromProvider creates a tracer from an explicit provider.
func NewTracerFromProvider(tp trace.TracerProvider, name string, debug bool) *Tracer {
	return &Tracer{
		tracer: tp.Tracer(name),
		debug:  debug,
	}
}

// SetDebug enables or disables debug mode.
func (t *Tracer) SetDebug(debug bool) {
	t.debug = debug
}

// Debug returns whether debug mode is enabled.
func (t *Tracer) Debug() bool {
	return t.debug
}

// StartSpan starts a new span with the given name.
func (t *Tracer) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// --- Task Spans ---

// TaskSpanOptions describes how a task or revoke body settled.
type TaskSpanOptions struct {
	// Outcome is the state recorded for the key ("success", "failed",
	// "not_found"), or "stale" when the outcome was discarded.
	Outcome string
	// Detached is true for fire-and-return executions.
	Detached bool
}

// StartTaskSpan starts a span covering one task or revoke body.
// op is "launch" or "revoke".
func (t *Tracer) StartTaskSpan(ctx context.Context, op, key string, revision uint64) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, "task."+op, trace.WithSpanKind(trace.SpanKindInternal))
	span.SetAttributes(
		attribute.String("task.op", op),
		attribute.String("task.key", truncate(key, 256)),
		attribute.Int64("task.revision", int64(revision)),
	)
	return ctx, span
}

// EndTaskSpan ends a task span with its outcome.
func (t *Tracer) EndTaskSpan(span trace.Span, opts TaskSpanOptions, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("task.outcome", opts.Outcome),
		attribute.Bool("task.detached", opts.Detached),
	}
	if t.debug && err != nil {
		attrs = append(attrs, attribute.String("task.error", truncate(err.Error(), 2000)))
	}
	span.SetAttributes(attrs...)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End()
}

// RecordRejection adds an admission rejection event to the span in ctx, if any.
func (t *Tracer) RecordRejection(ctx context.Context, op, key, observed string) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent("task.rejected", trace.WithAttributes(
		attribute.String("task.op", op),
		attribute.String("task.key", truncate(key, 256)),
		attribute.String("task.state", observed),
	))
}

// --- Helpers ---

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
