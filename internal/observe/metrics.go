// Package observe provides observability primitives for visionv: OpenTelemetry
// metrics with a Prometheus exporter bridge so the narration pipeline can be
// scraped via the standard /metrics endpoint.
//
// Tests should use [NewMetrics] with a private [metric.MeterProvider] to
// avoid cross-test pollution.
package observe

import (
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all visionv metrics.
const meterName = "github.com/VamshiS123/visionv"

// Metrics holds all OpenTelemetry metric instruments for the narration
// pipeline. All fields are safe for concurrent use; the underlying OTel
// types handle their own synchronisation.
type Metrics struct {
	// SynthesisDuration tracks text-to-speech synthesis latency.
	SynthesisDuration metric.Float64Histogram

	// BatchSize tracks the number of observations drained per batch flush.
	BatchSize metric.Int64Histogram

	// Utterances counts spoken utterances. Use with attribute:
	//   attribute.String("kind", "immediate"|"batch"|"interrupt")
	Utterances metric.Int64Counter

	// DuplicatesDropped counts observations suppressed by the dedupe window.
	DuplicatesDropped metric.Int64Counter

	// Interrupts counts utterances cut off by higher-priority observations.
	Interrupts metric.Int64Counter

	// BackendErrors counts synthesis and playback failures. Use with
	// attribute: attribute.String("stage", "synthesis"|"fetch"|"playback")
	BackendErrors metric.Int64Counter

	// Transitions counts refined descriptions by transition type. Use with
	// attribute: attribute.String("type", "NEW"|"UPDATE"|"CONTINUE")
	Transitions metric.Int64Counter

	// PendingObservations tracks the current depth of the batch queue.
	PendingObservations metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// synthesis round-trips.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// batchBuckets defines bucket boundaries for batch sizes.
var batchBuckets = []float64{1, 2, 3, 5, 8, 13}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.SynthesisDuration, err = m.Float64Histogram("visionv.tts.duration",
		metric.WithDescription("Latency of text-to-speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.BatchSize, err = m.Int64Histogram("visionv.batch.size",
		metric.WithDescription("Observations drained per batch flush."),
		metric.WithExplicitBucketBoundaries(batchBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Utterances, err = m.Int64Counter("visionv.utterances",
		metric.WithDescription("Total spoken utterances by kind."),
	); err != nil {
		return nil, err
	}
	if met.DuplicatesDropped, err = m.Int64Counter("visionv.duplicates.dropped",
		metric.WithDescription("Observations suppressed by the dedupe window."),
	); err != nil {
		return nil, err
	}
	if met.Interrupts, err = m.Int64Counter("visionv.interrupts",
		metric.WithDescription("Utterances interrupted by higher-priority observations."),
	); err != nil {
		return nil, err
	}
	if met.BackendErrors, err = m.Int64Counter("visionv.backend.errors",
		metric.WithDescription("Synthesis, fetch, and playback failures by stage."),
	); err != nil {
		return nil, err
	}
	if met.Transitions, err = m.Int64Counter("visionv.transitions",
		metric.WithDescription("Refined descriptions by transition type."),
	); err != nil {
		return nil, err
	}
	if met.PendingObservations, err = m.Int64UpDownCounter("visionv.pending.observations",
		metric.WithDescription("Current depth of the batch queue."),
	); err != nil {
		return nil, err
	}
	return met, nil
}
