// Package observe provides observability primitives for speechwire:
// OpenTelemetry metrics with a Prometheus exporter bridge.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all speechwire metrics.
const meterName = "github.com/MrWong99/speechwire"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// SessionDuration tracks wall-clock time of one recognition session,
	// from dial to terminal event.
	SessionDuration metric.Float64Histogram

	// FramesSent counts binary audio frames transmitted.
	FramesSent metric.Int64Counter

	// BytesSent counts PCM payload bytes transmitted.
	BytesSent metric.Int64Counter

	// ResultsReceived counts recognition/translation results. Use with
	// attributes: attribute.String("kind", ...), attribute.Bool("final", ...)
	ResultsReceived metric.Int64Counter

	// SessionErrors counts failed sessions. Use with attribute:
	//   attribute.String("reason", ...)
	SessionErrors metric.Int64Counter

	// ActiveSessions tracks the number of sessions currently in flight.
	ActiveSessions metric.Int64UpDownCounter
}

// sessionBuckets defines histogram bucket boundaries (in seconds) sized for
// sessions bounded by the 60s audio ceiling.
var sessionBuckets = []float64{
	0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 45, 60, 90,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.SessionDuration, err = m.Float64Histogram("speechwire.session.duration",
		metric.WithDescription("Wall-clock duration of one recognition session."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(sessionBuckets...),
	); err != nil {
		return nil, err
	}
	if met.FramesSent, err = m.Int64Counter("speechwire.frames.sent",
		metric.WithDescription("Total binary audio frames transmitted."),
	); err != nil {
		return nil, err
	}
	if met.BytesSent, err = m.Int64Counter("speechwire.bytes.sent",
		metric.WithDescription("Total PCM payload bytes transmitted."),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}
	if met.ResultsReceived, err = m.Int64Counter("speechwire.results.received",
		metric.WithDescription("Total recognition and translation results received, by kind and finality."),
	); err != nil {
		return nil, err
	}
	if met.SessionErrors, err = m.Int64Counter("speechwire.session.errors",
		metric.WithDescription("Total failed sessions by failure reason."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("speechwire.sessions.active",
		metric.WithDescription("Number of recognition sessions currently in flight."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level Metrics instance backed by the
// global meter provider. Instruments are created lazily on first call.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		m, err := NewMetrics(otel.GetMeterProvider())
		if err != nil {
			// The OTel no-op provider never fails instrument creation; a
			// configured SDK failing here is a programming error.
			panic(err)
		}
		defaultMetrics = m
	})
	return defaultMetrics
}

// RecordResult increments ResultsReceived with kind/final attributes.
func (m *Metrics) RecordResult(ctx context.Context, kind string, final bool) {
	m.ResultsReceived.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.Bool("final", final),
	))
}

// RecordSessionError increments SessionErrors with the given reason.
func (m *Metrics) RecordSessionError(ctx context.Context, reason string) {
	m.SessionErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", reason),
	))
}
