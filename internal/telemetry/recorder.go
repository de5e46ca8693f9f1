package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nupi-ai/plugin-intent-local-rhino/internal/rhino"
)

// Recorder tracks adapter-level telemetry and mirrors it into OpenTelemetry
// instruments when Metrics are attached.
type Recorder struct {
	log     *slog.Logger
	metrics *Metrics

	totalStreams    atomic.Uint64
	activeStreams   atomic.Int64
	totalFrames     atomic.Uint64
	totalSamples    atomic.Uint64
	totalInferences atomic.Uint64
	totalUnderstood atomic.Uint64
	totalResets     atomic.Uint64
	totalErrors     atomic.Uint64
}

// Snapshot captures cumulative metrics recorded so far.
type Snapshot struct {
	TotalStreams    uint64
	ActiveStreams   int64
	TotalFrames     uint64
	TotalSamples    uint64
	TotalInferences uint64
	TotalUnderstood uint64
	TotalResets     uint64
	TotalErrors     uint64
}

// NewRecorder constructs a Recorder. metrics may be nil.
func NewRecorder(logger *slog.Logger, metrics *Metrics) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		log:     logger.With("component", "telemetry.Recorder"),
		metrics: metrics,
	}
}

// Snapshot returns an immutable view of the recorder totals.
func (r *Recorder) Snapshot() Snapshot {
	if r == nil {
		return Snapshot{}
	}
	return Snapshot{
		TotalStreams:    r.totalStreams.Load(),
		ActiveStreams:   r.activeStreams.Load(),
		TotalFrames:     r.totalFrames.Load(),
		TotalSamples:    r.totalSamples.Load(),
		TotalInferences: r.totalInferences.Load(),
		TotalUnderstood: r.totalUnderstood.Load(),
		TotalResets:     r.totalResets.Load(),
		TotalErrors:     r.totalErrors.Load(),
	}
}

// StreamMetrics accumulates statistics for a single intent stream. It is
// used from the stream goroutine only.
type StreamMetrics struct {
	recorder *Recorder
	log      *slog.Logger

	started    time.Time
	frames     int
	samples    int
	inferences int
	understood int
	resets     int
	errors     int
	closed     atomic.Bool
}

// StartStream initialises a StreamMetrics instance bound to the recorder.
func (r *Recorder) StartStream(sessionID, streamID string, metadata map[string]string) *StreamMetrics {
	if r == nil {
		return nil
	}

	streamLogger := r.log.With(
		"session_id", sessionID,
		"stream_id", streamID,
	)
	if md := cloneMetadata(metadata); len(md) > 0 {
		streamLogger = streamLogger.With("metadata", md)
	}

	r.totalStreams.Add(1)
	r.activeStreams.Add(1)
	if r.metrics != nil {
		r.metrics.ActiveStreams.Add(context.Background(), 1)
	}

	return &StreamMetrics{
		recorder: r,
		log:      streamLogger,
		started:  time.Now(),
	}
}

// RecordFrame counts one processed frame and its engine latency.
func (s *StreamMetrics) RecordFrame(samples int, elapsed time.Duration) {
	if s == nil {
		return
	}
	s.frames++
	s.samples += samples
	s.recorder.totalFrames.Add(1)
	s.recorder.totalSamples.Add(uint64(samples))

	if m := s.recorder.metrics; m != nil {
		ctx := context.Background()
		m.Frames.Add(ctx, 1)
		m.ProcessDuration.Record(ctx, elapsed.Seconds())
	}
}

// RecordInference stores statistics for an emitted inference.
func (s *StreamMetrics) RecordInference(sequence uint64, inference rhino.Inference) {
	if s == nil {
		return
	}
	s.inferences++
	s.recorder.totalInferences.Add(1)
	if inference.IsUnderstood {
		s.understood++
		s.recorder.totalUnderstood.Add(1)
	}
	s.recorder.metrics.recordInference(context.Background(), inference.IsUnderstood, inference.Intent)

	s.log.Debug("inference emitted",
		"sequence", sequence,
		"understood", inference.IsUnderstood,
		"intent", inference.Intent,
		"slots", len(inference.Slots),
	)
}

// RecordReset counts a client or error-driven reset.
func (s *StreamMetrics) RecordReset() {
	if s == nil {
		return
	}
	s.resets++
	s.recorder.totalResets.Add(1)
}

// RecordError counts a failed engine call.
func (s *StreamMetrics) RecordError(err error) {
	if s == nil || err == nil {
		return
	}
	s.errors++
	s.recorder.totalErrors.Add(1)

	status := "UNKNOWN"
	var rerr *rhino.Error
	if errors.As(err, &rerr) {
		status = rerr.Status.String()
	}
	s.recorder.metrics.recordError(context.Background(), status)
	s.log.Warn("engine call failed", "status", status, "error", err)
}

// Finish logs a summary and updates active stream counters.
func (s *StreamMetrics) Finish(err error) {
	if s == nil {
		return
	}
	if !s.closed.CompareAndSwap(false, true) {
		return
	}

	defer func() {
		s.recorder.activeStreams.Add(-1)
		if m := s.recorder.metrics; m != nil {
			m.ActiveStreams.Add(context.Background(), -1)
		}
	}()

	args := []any{
		"duration_ms", time.Since(s.started).Milliseconds(),
		"frames", s.frames,
		"samples", s.samples,
		"inferences", s.inferences,
		"understood", s.understood,
		"resets", s.resets,
		"errors", s.errors,
	}

	if err != nil {
		s.log.Error("stream completed with error", append(args, "error", err)...)
		return
	}

	s.log.Info("stream completed", args...)
}

func cloneMetadata(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
