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

// MetricsRecorder records eventkit dispatch metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordFiring records one firing of an event and how many live handlers it reached.
	RecordFiring(ctx context.Context, event string, handlers int)

	// RecordHandler records one handler invocation with its duration and error status.
	RecordHandler(ctx context.Context, event, handler, kind string, duration time.Duration, err error)

	// RecordEviction records a weak handler removed after its referent was collected.
	RecordEviction(ctx context.Context, event string)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	firings     metric.Int64Counter
	fanout      metric.Int64Histogram
	invocations metric.Int64Counter
	latency     metric.Float64Histogram
	errors      metric.Int64Counter
	evictions   metric.Int64Counter
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
	meter := otel.Meter("eventkit")

	firings, err := meter.Int64Counter("eventkit.firings",
		metric.WithDescription("Number of event firings"),
	)
	if err != nil {
		return nil, err
	}

	fanout, err := meter.Int64Histogram("eventkit.firing.handlers",
		metric.WithDescription("Live handlers reached by one firing"),
	)
	if err != nil {
		return nil, err
	}

	invocations, err := meter.Int64Counter("eventkit.handler.invocations",
		metric.WithDescription("Number of handler invocations"),
	)
	if err != nil {
		return nil, err
	}

	latency, err := meter.Float64Histogram("eventkit.handler.latency_ms",
		metric.WithDescription("Handler invocation latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	errs, err := meter.Int64Counter("eventkit.handler.errors",
		metric.WithDescription("Number of contained handler failures"),
	)
	if err != nil {
		return nil, err
	}

	evictions, err := meter.Int64Counter("eventkit.handler.evictions",
		metric.WithDescription("Number of weak handlers evicted after collection"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		firings:     firings,
		fanout:      fanout,
		invocations: invocations,
		latency:     latency,
		errors:      errs,
		evictions:   evictions,
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

// RecordFiring records one firing.
func (m *otelMetrics) RecordFiring(ctx context.Context, event string, handlers int) {
	attrs := metric.WithAttributes(attribute.String("event", event))
	m.firings.Add(ctx, 1, attrs)
	m.fanout.Record(ctx, int64(handlers), attrs)
}

// RecordHandler records one handler invocation.
func (m *otelMetrics) RecordHandler(ctx context.Context, event, handler, kind string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("event", event),
		attribute.String("kind", kind),
	}

	m.invocations.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.latency.Record(ctx, float64(duration.Microseconds())/1000, metric.WithAttributes(attrs...))

	if err != nil {
		m.errors.Add(ctx, 1, metric.WithAttributes(append(attrs, attribute.String("handler", handler))...))
	}
}

// RecordEviction records a weak handler eviction.
func (m *otelMetrics) RecordEviction(ctx context.Context, event string) {
	m.evictions.Add(ctx, 1, metric.WithAttributes(attribute.String("event", event)))
}
