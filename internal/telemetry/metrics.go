package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/wolfeidau/calendash"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Calendar fetch metrics
	MeetingsFetchTotal    metric.Int64Counter
	MeetingsFallbackTotal metric.Int64Counter
	MeetingsFetchDuration metric.Float64Histogram
	MeetingsDroppedTotal  metric.Int64Counter

	// Auth metrics
	LoginTotal        metric.Int64Counter
	TokenRefreshTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// Tracer returns the tracer used for calendash spans.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(instrumentationName)

	m := &Metrics{}

	m.MeetingsFetchTotal, _ = meter.Int64Counter(
		"calendash.meetings.fetch.total",
		metric.WithDescription("Total number of meeting fetches by provenance"),
		metric.WithUnit("{fetch}"),
	)

	m.MeetingsFallbackTotal, _ = meter.Int64Counter(
		"calendash.meetings.fallback.total",
		metric.WithDescription("Total number of live fetches replaced with synthetic data"),
		metric.WithUnit("{fetch}"),
	)

	m.MeetingsFetchDuration, _ = meter.Float64Histogram(
		"calendash.meetings.fetch.duration",
		metric.WithDescription("Duration of meeting fetches including fallback"),
		metric.WithUnit("ms"),
	)

	m.MeetingsDroppedTotal, _ = meter.Int64Counter(
		"calendash.meetings.dropped.total",
		metric.WithDescription("Total number of live meetings dropped because they end before they start"),
		metric.WithUnit("{meeting}"),
	)

	m.LoginTotal, _ = meter.Int64Counter(
		"calendash.auth.login.total",
		metric.WithDescription("Total number of completed login attempts by outcome"),
		metric.WithUnit("{login}"),
	)

	m.TokenRefreshTotal, _ = meter.Int64Counter(
		"calendash.auth.refresh.total",
		metric.WithDescription("Total number of token refresh attempts by outcome"),
		metric.WithUnit("{refresh}"),
	)

	return m
}
