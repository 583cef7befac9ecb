package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NoopMetrics is a MetricsRecorder that does nothing.
type NoopMetrics struct{}

var _ MetricsRecorder = NoopMetrics{}

// RecordRule does nothing.
func (NoopMetrics) RecordRule(_ context.Context, _ string, _ time.Duration, _ bool, _ error) {}

// RecordFormValidate does nothing.
func (NoopMetrics) RecordFormValidate(_ context.Context, _ string, _ time.Duration, _ bool) {}

// RecordSubmit does nothing.
func (NoopMetrics) RecordSubmit(_ context.Context, _ string, _ bool) {}

// NoopSpanManager is a SpanManager that does nothing.
type NoopSpanManager struct{}

var _ SpanManager = NoopSpanManager{}

var noopSpan = noop.Span{}

// StartValidateSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartValidateSpan(ctx context.Context, _ string, _ int) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// StartSubmitSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartSubmitSpan(ctx context.Context, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// StartRuleSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartRuleSpan(ctx context.Context, _, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// EndSpanWithError does nothing.
func (NoopSpanManager) EndSpanWithError(_ trace.Span, _ error) {}

// AddSpanEvent does nothing.
func (NoopSpanManager) AddSpanEvent(_ context.Context, _ string, _ ...attribute.KeyValue) {}
