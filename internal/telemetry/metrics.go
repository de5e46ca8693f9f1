package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/nupi-ai/plugin-intent-local-rhino"

// Metrics holds the OpenTelemetry instruments mirrored by the Recorder.
type Metrics struct {
	// Frames counts frames passed to the engine.
	Frames metric.Int64Counter
	// Inferences counts finalized utterances. Attributes: understood, intent.
	Inferences metric.Int64Counter
	// Errors counts failed engine calls. Attribute: status.
	Errors metric.Int64Counter
	// ProcessDuration is the latency of a single Process call.
	ProcessDuration metric.Float64Histogram
	// ActiveStreams is the number of open intent streams.
	ActiveStreams metric.Int64UpDownCounter
}

// processBuckets are in seconds; one frame is 32 ms of audio at 16 kHz.
var processBuckets = []float64{
	0.0005, 0.001, 0.002, 0.005, 0.01, 0.02, 0.032, 0.05, 0.1,
}

// NewMetrics creates the instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Frames, err = m.Int64Counter("rhino.frames",
		metric.WithDescription("Audio frames processed by the engine."),
	); err != nil {
		return nil, err
	}
	if met.Inferences, err = m.Int64Counter("rhino.inferences",
		metric.WithDescription("Finalized inferences by understood flag and intent."),
	); err != nil {
		return nil, err
	}
	if met.Errors, err = m.Int64Counter("rhino.errors",
		metric.WithDescription("Failed engine calls by status."),
	); err != nil {
		return nil, err
	}
	if met.ProcessDuration, err = m.Float64Histogram("rhino.process.duration",
		metric.WithDescription("Latency of processing one audio frame."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(processBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ActiveStreams, err = m.Int64UpDownCounter("rhino.streams.active",
		metric.WithDescription("Number of open intent streams."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

func (m *Metrics) recordInference(ctx context.Context, understood bool, intent string) {
	if m == nil {
		return
	}
	m.Inferences.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("understood", understood),
		attribute.String("intent", intent),
	))
}

func (m *Metrics) recordError(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.Errors.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}
