// Package observe provides application-wide observability primitives for
// Warden: OpenTelemetry metrics, distributed tracing, structured logging,
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

// meterName is the instrumentation scope name used for all Warden metrics.
const meterName = "github.com/wardenhq/warden"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// SensingCycleDuration tracks the latency of one classify-and-ingest
	// sensing cycle.
	SensingCycleDuration metric.Float64Histogram

	// GenerationDuration tracks LLM reply generation latency.
	GenerationDuration metric.Float64Histogram

	// TranscriptionDuration tracks speech-to-text transcription latency.
	TranscriptionDuration metric.Float64Histogram

	// --- Counters ---

	// Classifications counts classifier results. Use with attribute:
	//   attribute.String("label", ...)
	Classifications metric.Int64Counter

	// VerdictFlips counts verification verdict changes. Use with attribute:
	//   attribute.String("to", "verified"|"unverified")
	VerdictFlips metric.Int64Counter

	// GuardReplies counts replies spoken by the guard. Use with attribute:
	//   attribute.String("policy", "verified"|"escalation")
	GuardReplies metric.Int64Counter

	// OperatorCommands counts recognised operator voice commands. Use with
	// attribute: attribute.String("command", ...)
	OperatorCommands metric.Int64Counter

	// --- Error counters ---

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// EscalationLevel tracks the current escalation level.
	EscalationLevel metric.Int64UpDownCounter

	// WindowSize tracks the number of observations in the sliding window.
	WindowSize metric.Int64UpDownCounter

	// EventSubscribers tracks the number of connected event stream clients.
	EventSubscribers metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for sensing and generation latencies.
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
	if met.SensingCycleDuration, err = m.Float64Histogram("warden.sensing.cycle.duration",
		metric.WithDescription("Latency of one classify-and-ingest sensing cycle."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.GenerationDuration, err = m.Float64Histogram("warden.generation.duration",
		metric.WithDescription("Latency of LLM reply generation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TranscriptionDuration, err = m.Float64Histogram("warden.transcription.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Classifications, err = m.Int64Counter("warden.classifications",
		metric.WithDescription("Total classifier results by label."),
	); err != nil {
		return nil, err
	}
	if met.VerdictFlips, err = m.Int64Counter("warden.verdict.flips",
		metric.WithDescription("Total verification verdict changes by direction."),
	); err != nil {
		return nil, err
	}
	if met.GuardReplies, err = m.Int64Counter("warden.guard.replies",
		metric.WithDescription("Total guard replies by policy kind."),
	); err != nil {
		return nil, err
	}
	if met.OperatorCommands, err = m.Int64Counter("warden.operator.commands",
		metric.WithDescription("Total recognised operator voice commands by command."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.ProviderErrors, err = m.Int64Counter("warden.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.EscalationLevel, err = m.Int64UpDownCounter("warden.escalation.level",
		metric.WithDescription("Current escalation level of the dialogue."),
	); err != nil {
		return nil, err
	}
	if met.WindowSize, err = m.Int64UpDownCounter("warden.window.size",
		metric.WithDescription("Number of observations in the sliding window."),
	); err != nil {
		return nil, err
	}
	if met.EventSubscribers, err = m.Int64UpDownCounter("warden.event.subscribers",
		metric.WithDescription("Number of connected event stream clients."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("warden.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
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

// RecordClassification is a convenience method that records a classifier
// result counter increment.
func (m *Metrics) RecordClassification(ctx context.Context, label string) {
	m.Classifications.Add(ctx, 1,
		metric.WithAttributes(attribute.String("label", label)),
	)
}

// RecordVerdictFlip is a convenience method that records a verdict change.
func (m *Metrics) RecordVerdictFlip(ctx context.Context, verified bool) {
	to := "unverified"
	if verified {
		to = "verified"
	}
	m.VerdictFlips.Add(ctx, 1,
		metric.WithAttributes(attribute.String("to", to)),
	)
}

// RecordGuardReply is a convenience method that records a spoken reply.
func (m *Metrics) RecordGuardReply(ctx context.Context, policy string) {
	m.GuardReplies.Add(ctx, 1,
		metric.WithAttributes(attribute.String("policy", policy)),
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
