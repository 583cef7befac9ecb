package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracer uses the global OTel tracer provider.
var tracer = otel.Tracer("formstate")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartValidateSpan starts a span for a form-level validation pass.
	StartValidateSpan(ctx context.Context, formID string, fieldCount int) (context.Context, trace.Span)

	// StartSubmitSpan starts a span for a form submission.
	StartSubmitSpan(ctx context.Context, formID string) (context.Context, trace.Span)

	// StartRuleSpan starts a span for a single validator invocation.
	StartRuleSpan(ctx context.Context, fieldName, validator string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the
// provider before calling this function:
//
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

func (m *otelSpanManager) StartValidateSpan(ctx context.Context, formID string, fieldCount int) (context.Context, trace.Span) {
	return StartValidateSpan(ctx, formID, fieldCount)
}

func (m *otelSpanManager) StartSubmitSpan(ctx context.Context, formID string) (context.Context, trace.Span) {
	return StartSubmitSpan(ctx, formID)
}

func (m *otelSpanManager) StartRuleSpan(ctx context.Context, fieldName, validator string) (context.Context, trace.Span) {
	return StartRuleSpan(ctx, fieldName, validator)
}

func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	EndSpanWithError(span, err)
}

func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	AddSpanEvent(ctx, name, attrs...)
}

// StartValidateSpan starts a "formstate.validate" span on the global tracer.
func StartValidateSpan(ctx context.Context, formID string, fieldCount int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "formstate.validate",
		trace.WithAttributes(
			attribute.String("form.id", formID),
			attribute.Int("form.fields", fieldCount),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartSubmitSpan starts a "formstate.submit" span on the global tracer.
func StartSubmitSpan(ctx context.Context, formID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "formstate.submit",
		trace.WithAttributes(
			attribute.String("form.id", formID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartRuleSpan starts a "formstate.rule.<validator>" span on the global tracer.
func StartRuleSpan(ctx context.Context, fieldName, validator string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "formstate.rule."+validator,
		trace.WithAttributes(
			attribute.String("field.name", fieldName),
			attribute.String("validator", validator),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the current span in context.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
