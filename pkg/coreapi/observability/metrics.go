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

// MetricsRecorder records correlation-core metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordDispatch records a hub dispatch with its fan-out and duration.
	RecordDispatch(ctx context.Context, channel string, listeners int, duration time.Duration)

	// RecordListenerFailure records a contained listener failure.
	RecordListenerFailure(ctx context.Context, channel, listener string)

	// RecordScope records a scope's full enter-to-exit lifetime.
	RecordScope(ctx context.Context, identifier string, duration time.Duration, handled bool)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	dispatches       metric.Int64Counter
	dispatchLatency  metric.Float64Histogram
	listenerFailures metric.Int64Counter
	scopes           metric.Int64Counter
	scopeDuration    metric.Float64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("coreapi")

	dispatches, err := meter.Int64Counter("coreapi.hub.dispatches",
		metric.WithDescription("Number of hub dispatches"),
	)
	if err != nil {
		return nil, err
	}

	dispatchLatency, err := meter.Float64Histogram("coreapi.hub.dispatch_latency_ms",
		metric.WithDescription("Hub dispatch latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	listenerFailures, err := meter.Int64Counter("coreapi.hub.listener_failures",
		metric.WithDescription("Number of contained listener failures"),
	)
	if err != nil {
		return nil, err
	}

	scopes, err := meter.Int64Counter("coreapi.context.scopes",
		metric.WithDescription("Number of completed execution scopes"),
	)
	if err != nil {
		return nil, err
	}

	scopeDuration, err := meter.Float64Histogram("coreapi.context.scope_duration_ms",
		metric.WithDescription("Scope lifetime in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		dispatches:       dispatches,
		dispatchLatency:  dispatchLatency,
		listenerFailures: listenerFailures,
		scopes:           scopes,
		scopeDuration:    scopeDuration,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
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

// RecordDispatch records a hub dispatch.
func (m *otelMetrics) RecordDispatch(ctx context.Context, channel string, listeners int, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("channel", channel),
	}
	m.dispatches.Add(ctx, 1, metric.WithAttributes(append(attrs,
		attribute.Int("listeners", listeners))...))
	m.dispatchLatency.Record(ctx, float64(duration.Microseconds())/1000, metric.WithAttributes(attrs...))
}

// RecordListenerFailure records a contained listener failure.
func (m *otelMetrics) RecordListenerFailure(ctx context.Context, channel, listener string) {
	m.listenerFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("channel", channel),
		attribute.String("listener", listener),
	))
}

// RecordScope records a completed scope.
func (m *otelMetrics) RecordScope(ctx context.Context, identifier string, duration time.Duration, handled bool) {
	attrs := []attribute.KeyValue{
		attribute.String("scope", identifier),
		attribute.Bool("handled", handled),
	}
	m.scopes.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.scopeDuration.Record(ctx, float64(duration.Microseconds())/1000, metric.WithAttributes(attrs...))
}

// HubHooks adapts a MetricsRecorder to the hub's OnError and OnDispatch
// callbacks, so a hub can be built with metrics without the hub package
// depending on OTel.
func HubHooks(rec MetricsRecorder) (onError func(channel, listener string, err error), onDispatch func(channel string, listeners int, duration time.Duration)) {
	onError = func(channel, listener string, _ error) {
		rec.RecordListenerFailure(context.Background(), channel, listener)
	}
	onDispatch = func(channel string, listeners int, duration time.Duration) {
		rec.RecordDispatch(context.Background(), channel, listeners, duration)
	}
	return onError, onDispatch
}
