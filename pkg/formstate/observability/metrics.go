package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records formstate metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordRule records one validator invocation.
	RecordRule(ctx context.Context, validator string, duration time.Duration, valid bool, err error)

	// RecordFormValidate records a form-level validation pass.
	RecordFormValidate(ctx context.Context, formID string, duration time.Duration, valid bool)

	// RecordSubmit records a form submission.
	RecordSubmit(ctx context.Context, formID string, valid bool)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	ruleRuns        metric.Int64Counter
	ruleLatency     metric.Float64Histogram
	ruleFailures    metric.Int64Counter
	formSubmits     metric.Int64Counter
	validateLatency metric.Float64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("formstate")

	ruleRuns, err := meter.Int64Counter("formstate.validation.runs",
		metric.WithDescription("Number of validator invocations"),
	)
	if err != nil {
		return nil, err
	}

	ruleLatency, err := meter.Float64Histogram("formstate.validation.latency_ms",
		metric.WithDescription("Validator latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	ruleFailures, err := meter.Int64Counter("formstate.validation.failures",
		metric.WithDescription("Number of failed or erroring validator invocations"),
	)
	if err != nil {
		return nil, err
	}

	formSubmits, err := meter.Int64Counter("formstate.form.submits",
		metric.WithDescription("Number of form submissions"),
	)
	if err != nil {
		return nil, err
	}

	validateLatency, err := meter.Float64Histogram("formstate.form.validate.latency_ms",
		metric.WithDescription("Form validation latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		ruleRuns:        ruleRuns,
		ruleLatency:     ruleLatency,
		ruleFailures:    ruleFailures,
		formSubmits:     formSubmits,
		validateLatency: validateLatency,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordRule records a validator invocation.
func (m *otelMetrics) RecordRule(ctx context.Context, validator string, duration time.Duration, valid bool, err error) {
	attrs := metric.WithAttributes(attribute.String("validator", validator))

	m.ruleRuns.Add(ctx, 1, attrs)
	m.ruleLatency.Record(ctx, float64(duration.Microseconds())/1000, attrs)

	if err != nil || !valid {
		m.ruleFailures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("validator", validator),
			attribute.Bool("error", err != nil),
		))
	}
}

// RecordFormValidate records a form validation pass.
func (m *otelMetrics) RecordFormValidate(ctx context.Context, formID string, duration time.Duration, valid bool) {
	m.validateLatency.Record(ctx, float64(duration.Microseconds())/1000, metric.WithAttributes(
		attribute.String("form_id", formID),
		attribute.Bool("valid", valid),
	))
}

// RecordSubmit records a submission.
func (m *otelMetrics) RecordSubmit(ctx context.Context, formID string, valid bool) {
	m.formSubmits.Add(ctx, 1, metric.WithAttributes(
		attribute.String("form_id", formID),
		attribute.Bool("valid", valid),
	))
}
