package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// setupMetricsTest creates a test meter provider and returns a reader to
// collect from.
func setupMetricsTest(t *testing.T) (*sdkmetric.ManualReader, func()) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	originalProvider := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)

	cleanup := func() {
		otel.SetMeterProvider(originalProvider)
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down meter provider: %v", err)
		}
	}

	return reader, cleanup
}

// collectMetrics collects all metrics from the reader.
func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) *metricdata.ResourceMetrics {
	var rm metricdata.ResourceMetrics
	err := reader.Collect(context.Background(), &rm)
	require.NoError(t, err)
	return &rm
}

// findMetric finds a metric by name in the collected data.
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

func TestNewMetricsRecorder(t *testing.T) {
	_, cleanup := setupMetricsTest(t)
	defer cleanup()

	recorder := NewMetricsRecorder()
	require.NotNil(t, recorder)

	_, isNoop := recorder.(NoopMetrics)
	assert.False(t, isNoop, "Expected real metrics recorder, got noop")
}

func TestRecordDispatch(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordDispatch(ctx, "context.started.op", 3, 2*time.Millisecond)

	rm := collectMetrics(t, reader)

	counter := findMetric(rm, "coreapi.hub.dispatches")
	require.NotNil(t, counter)
	sum, ok := counter.Data.(metricdata.Sum[int64])
	require.True(t, ok, "Expected Sum type")
	require.NotEmpty(t, sum.DataPoints)

	found := false
	for _, dp := range sum.DataPoints {
		for _, attr := range dp.Attributes.ToSlice() {
			if attr.Key == "channel" && attr.Value.AsString() == "context.started.op" {
				found = true
				assert.GreaterOrEqual(t, dp.Value, int64(1))
			}
		}
	}
	assert.True(t, found, "expected a datapoint for the dispatched channel")

	latency := findMetric(rm, "coreapi.hub.dispatch_latency_ms")
	require.NotNil(t, latency)
	hist, ok := latency.Data.(metricdata.Histogram[float64])
	require.True(t, ok, "Expected Histogram type")
	require.NotEmpty(t, hist.DataPoints)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
}

func TestRecordListenerFailure(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordListenerFailure(ctx, "context.ended.op", "flaky-feature")
	m.RecordListenerFailure(ctx, "context.ended.op", "flaky-feature")

	rm := collectMetrics(t, reader)
	counter := findMetric(rm, "coreapi.hub.listener_failures")
	require.NotNil(t, counter)

	sum, ok := counter.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.NotEmpty(t, sum.DataPoints)
	assert.Equal(t, int64(2), sum.DataPoints[0].Value)
}

func TestRecordScope(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordScope(ctx, "http.request", 15*time.Millisecond, true)
	m.RecordScope(ctx, "http.request", 40*time.Millisecond, false)

	rm := collectMetrics(t, reader)

	counter := findMetric(rm, "coreapi.context.scopes")
	require.NotNil(t, counter)
	sum, ok := counter.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	// One datapoint per handled value.
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	assert.Equal(t, int64(2), total)

	duration := findMetric(rm, "coreapi.context.scope_duration_ms")
	require.NotNil(t, duration)
}

func TestHubHooks(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)

	onError, onDispatch := HubHooks(m)
	onDispatch("ch", 2, time.Millisecond)
	onError("ch", "listener-1", assert.AnError)

	rm := collectMetrics(t, reader)
	require.NotNil(t, findMetric(rm, "coreapi.hub.dispatches"))
	require.NotNil(t, findMetric(rm, "coreapi.hub.listener_failures"))
}
