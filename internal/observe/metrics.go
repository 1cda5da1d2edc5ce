// Package observe provides application-wide observability primitives for
// Droidvox: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
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

// meterName is the instrumentation scope name used for all Droidvox metrics.
const meterName = "github.com/droidvox/droidvox"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// ConnectDuration tracks live session establishment latency.
	ConnectDuration metric.Float64Histogram

	// GenerateDuration tracks one-shot generation latency. Use with attribute:
	//   attribute.String("kind", ...)
	GenerateDuration metric.Float64Histogram

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram

	// --- Counters ---

	// AudioChunks counts audio chunks crossing the wire. Use with attribute:
	//   attribute.String("direction", "up"|"down")
	AudioChunks metric.Int64Counter

	// Turns counts finalized transcript turns. Use with attribute:
	//   attribute.String("role", ...)
	Turns metric.Int64Counter

	// Directives counts directives extracted from assistant replies. Use with
	// attribute: attribute.String("directive", ...)
	Directives metric.Int64Counter

	// ProviderRequests counts provider API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// --- Error counters ---

	// DecodeErrors counts audio chunks dropped because they could not be
	// decoded.
	DecodeErrors metric.Int64Counter

	// UploadDrops counts captured frames dropped because the upload queue was
	// full, i.e. the transport fell behind realtime capture.
	UploadDrops metric.Int64Counter

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live voice sessions.
	ActiveSessions metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for voice-pipeline latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.ConnectDuration, err = m.Float64Histogram("droidvox.session.connect.duration",
		metric.WithDescription("Latency of live session establishment."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.GenerateDuration, err = m.Float64Histogram("droidvox.generate.duration",
		metric.WithDescription("Latency of one-shot generation by kind."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("droidvox.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.AudioChunks, err = m.Int64Counter("droidvox.audio.chunks",
		metric.WithDescription("Total audio chunks by direction."),
	); err != nil {
		return nil, err
	}
	if met.Turns, err = m.Int64Counter("droidvox.transcript.turns",
		metric.WithDescription("Total finalized transcript turns by role."),
	); err != nil {
		return nil, err
	}
	if met.Directives, err = m.Int64Counter("droidvox.directives",
		metric.WithDescription("Total directives extracted from assistant replies by name."),
	); err != nil {
		return nil, err
	}
	if met.ProviderRequests, err = m.Int64Counter("droidvox.provider.requests",
		metric.WithDescription("Total provider API requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.DecodeErrors, err = m.Int64Counter("droidvox.audio.decode_errors",
		metric.WithDescription("Total audio chunks dropped as undecodable."),
	); err != nil {
		return nil, err
	}
	if met.UploadDrops, err = m.Int64Counter("droidvox.audio.upload_drops",
		metric.WithDescription("Total captured frames dropped because the upload queue was full."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("droidvox.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("droidvox.active_sessions",
		metric.WithDescription("Number of live voice sessions."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordAudioChunk records one audio chunk crossing the wire in the given
// direction ("up" for capture, "down" for playback).
func (m *Metrics) RecordAudioChunk(ctx context.Context, direction string) {
	m.AudioChunks.Add(ctx, 1,
		metric.WithAttributes(attribute.String("direction", direction)),
	)
}

// RecordDecodeError records one dropped undecodable audio chunk.
func (m *Metrics) RecordDecodeError(ctx context.Context) {
	m.DecodeErrors.Add(ctx, 1)
}

// RecordUploadDrop records one captured frame dropped from a full upload
// queue.
func (m *Metrics) RecordUploadDrop(ctx context.Context) {
	m.UploadDrops.Add(ctx, 1)
}

// RecordTurn records one finalized transcript turn for the given role.
func (m *Metrics) RecordTurn(ctx context.Context, role string) {
	m.Turns.Add(ctx, 1,
		metric.WithAttributes(attribute.String("role", role)),
	)
}

// RecordDirective records one extracted directive by name.
func (m *Metrics) RecordDirective(ctx context.Context, name string) {
	m.Directives.Add(ctx, 1,
		metric.WithAttributes(attribute.String("directive", name)),
	)
}

// RecordProviderRequest is a convenience method that records a provider
// request counter increment with the standard attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError is a convenience method that records a provider error
// counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}
