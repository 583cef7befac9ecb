package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func setupMetricsTest(t *testing.T) *sdkmetric.ManualReader {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	original := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)

	t.Cleanup(func() {
		otel.SetMeterProvider(original)
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Logf("shutdown meter provider: %v", err)
		}
	})
	return reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) *metricdata.ResourceMetrics {
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return &rm
}

func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumFor(t *testing.T, m *metricdata.Metrics, key, value string) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "expected Sum type")

	var total int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attributeKey(key)); ok && v.AsString() == value {
			total += dp.Value
		}
	}
	return total
}

func TestNewMetricsRecorder(t *testing.T) {
	setupMetricsTest(t)

	recorder := NewMetricsRecorder()
	require.NotNil(t, recorder)
	_, isNoop := recorder.(NoopMetrics)
	assert.False(t, isNoop)
}

func TestRecordRule(t *testing.T) {
	reader := setupMetricsTest(t)
	m, err := newOtelMetrics()
	require.NoError(t, err)
	ctx := context.Background()

	m.RecordRule(ctx, "required", 2*time.Millisecond, true, nil)
	m.RecordRule(ctx, "required", 3*time.Millisecond, false, nil)
	m.RecordRule(ctx, "remote", time.Millisecond, false, errors.New("timeout"))

	rm := collectMetrics(t, reader)

	runs := findMetric(rm, "formstate.validation.runs")
	require.NotNil(t, runs)
	assert.Equal(t, int64(2), sumFor(t, runs, "validator", "required"))
	assert.Equal(t, int64(1), sumFor(t, runs, "validator", "remote"))

	failures := findMetric(rm, "formstate.validation.failures")
	require.NotNil(t, failures)
	assert.Equal(t, int64(1), sumFor(t, failures, "validator", "required"))
	assert.Equal(t, int64(1), sumFor(t, failures, "validator", "remote"))

	latency := findMetric(rm, "formstate.validation.latency_ms")
	require.NotNil(t, latency)
	hist, ok := latency.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	assert.NotEmpty(t, hist.DataPoints)
}

func TestRecordFormValidateAndSubmit(t *testing.T) {
	reader := setupMetricsTest(t)
	m, err := newOtelMetrics()
	require.NoError(t, err)
	ctx := context.Background()

	m.RecordFormValidate(ctx, "signup", 10*time.Millisecond, true)
	m.RecordSubmit(ctx, "signup", true)
	m.RecordSubmit(ctx, "signup", false)

	rm := collectMetrics(t, reader)

	submits := findMetric(rm, "formstate.form.submits")
	require.NotNil(t, submits)
	assert.Equal(t, int64(2), sumFor(t, submits, "form_id", "signup"))

	latency := findMetric(rm, "formstate.form.validate.latency_ms")
	require.NotNil(t, latency)
	hist, ok := latency.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
}
