package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/nupi-ai/plugin-intent-local-rhino/internal/adapterinfo"
	"github.com/nupi-ai/plugin-intent-local-rhino/internal/audio"
	"github.com/nupi-ai/plugin-intent-local-rhino/internal/engine"
	"github.com/nupi-ai/plugin-intent-local-rhino/internal/intentapi"
	"github.com/nupi-ai/plugin-intent-local-rhino/internal/rhino"
	"github.com/nupi-ai/plugin-intent-local-rhino/internal/telemetry"
)

// SessionFactory opens one engine session per stream.
type SessionFactory interface {
	NewSession(ctx context.Context) (engine.Session, error)
	ContextName() string
}

// Server implements the IntentService. Each stream owns its own session.
type Server struct {
	intentapi.UnimplementedIntentServiceServer

	log     *slog.Logger
	factory SessionFactory
	metrics *telemetry.Recorder
}

// New returns a new Server instance.
func New(logger *slog.Logger, factory SessionFactory, metrics *telemetry.Recorder) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if factory == nil {
		panic("server: session factory must not be nil")
	}
	if metrics == nil {
		metrics = telemetry.NewRecorder(logger, nil)
	}
	return &Server{
		log: logger.With(
			"component", "server",
			"context", factory.ContextName(),
		),
		factory: factory,
		metrics: metrics,
	}
}

// stream is the per-call state. It is touched only by the goroutine running
// StreamIntents.
type stream struct {
	srv       intentapi.IntentService_StreamIntentsServer
	log       *slog.Logger
	sessionID string
	streamID  string
	session   engine.Session
	frames    *audio.FrameAssembler
	metrics   *telemetry.StreamMetrics
	metadata  map[string]string
	sequence  uint64
}

// StreamIntents opens a session on the first request, then feeds audio to it
// and emits an inference for every finalized utterance. Engine failures while
// processing are reported to the client and the session is reset; failures
// opening the session end the stream.
func (s *Server) StreamIntents(srv intentapi.IntentService_StreamIntentsServer) (err error) {
	ctx := srv.Context()

	var st *stream
	defer func() {
		if st == nil {
			return
		}
		st.metrics.Finish(err)
		if closeErr := st.session.Close(); closeErr != nil {
			st.log.Warn("session close failed", "error", closeErr)
		}
	}()

	for {
		req, err := srv.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			s.log.Error("failed to receive request", "error", err)
			return err
		}
		if req == nil {
			continue
		}

		if st == nil {
			st, err = s.open(ctx, srv, req)
			if err != nil {
				return err
			}
		}

		if req.GetReset() {
			if err := st.reset(); err != nil {
				return err
			}
		}

		if len(req.GetAudio()) > 0 {
			if err := st.feed(req.GetAudio()); err != nil {
				return err
			}
		}

		if req.GetClose() {
			st.log.Info("stream closed by client")
			return nil
		}
	}
}

func (s *Server) open(ctx context.Context, srv intentapi.IntentService_StreamIntentsServer, req *intentapi.StreamIntentsRequest) (*stream, error) {
	sessionID := req.GetSessionId()
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	streamID := req.GetStreamId()
	if streamID == "" {
		streamID = "default"
	}
	log := s.log.With("session_id", sessionID, "stream_id", streamID)

	session, err := s.factory.NewSession(ctx)
	if err != nil {
		log.Error("failed to open session", "error", err)
		return nil, openStatus(err)
	}

	st := &stream{
		srv:       srv,
		log:       log,
		sessionID: sessionID,
		streamID:  streamID,
		session:   session,
		frames:    audio.NewFrameAssembler(session.FrameLength()),
		metadata:  adapterinfo.InferenceMetadata(session.Version(), s.factory.ContextName()),
	}
	st.metrics = s.metrics.StartStream(sessionID, streamID, req.GetMetadata())

	info := &intentapi.SessionInfo{
		FrameLength: int32(session.FrameLength()),
		SampleRate:  int32(session.SampleRate()),
		Version:     session.Version(),
		Context:     s.factory.ContextName(),
	}
	if summary, err := rhino.ParseContextInfo(session.ContextInfo()); err != nil {
		log.Warn("context info not parseable", "error", err)
	} else {
		info.Intents = summary.Intents
		info.Slots = summary.Slots
	}

	log.Info("stream opened",
		"metadata", req.GetMetadata(),
		"frame_length", info.FrameLength,
		"sample_rate", info.SampleRate,
		"version", info.Version,
	)
	if err := st.send(&intentapi.StreamIntentsResponse{Ready: info}); err != nil {
		session.Close()
		st.metrics.Finish(err)
		return nil, err
	}
	return st, nil
}

func (st *stream) feed(data []byte) error {
	for _, frame := range st.frames.Push(data) {
		start := time.Now()
		finalized, err := st.session.Process(frame)
		st.metrics.RecordFrame(len(frame), time.Since(start))
		if err != nil {
			return st.reportAndReset(err)
		}
		if !finalized {
			continue
		}

		inference, err := st.session.GetInference()
		if err != nil {
			return st.reportAndReset(err)
		}
		st.sequence++
		st.metrics.RecordInference(st.sequence, inference)
		if err := st.send(&intentapi.StreamIntentsResponse{
			Sequence: st.sequence,
			Inference: &intentapi.InferenceResult{
				IsUnderstood: inference.IsUnderstood,
				Intent:       inference.Intent,
				Slots:        inference.Slots,
				Metadata:     st.metadata,
			},
		}); err != nil {
			return err
		}
	}
	return nil
}

// reportAndReset reports a per-frame engine error and resets the session. Audio
// still buffered from the failed chunk is dropped.
func (st *stream) reportAndReset(cause error) error {
	st.metrics.RecordError(cause)
	st.sequence++
	if err := st.send(&intentapi.StreamIntentsResponse{
		Sequence: st.sequence,
		Error:    errorInfo(cause),
	}); err != nil {
		return err
	}
	st.frames.Reset()
	if err := st.session.Reset(); err != nil {
		st.log.Error("session reset after engine error failed", "error", err)
		return status.Errorf(codes.Internal, "server: reset after engine error: %v", err)
	}
	st.metrics.RecordReset()
	return nil
}

func (st *stream) reset() error {
	st.frames.Reset()
	if err := st.session.Reset(); err != nil {
		return st.reportAndReset(err)
	}
	st.metrics.RecordReset()
	st.log.Debug("stream reset by client")
	return nil
}

func (st *stream) send(resp *intentapi.StreamIntentsResponse) error {
	resp.SessionId = st.sessionID
	resp.StreamId = st.streamID
	if err := st.srv.Send(resp); err != nil {
		st.log.Error("failed to send response", "error", err)
		return err
	}
	return nil
}

func errorInfo(err error) *intentapi.ErrorInfo {
	var rerr *rhino.Error
	if errors.As(err, &rerr) {
		return &intentapi.ErrorInfo{
			Status:       rerr.Status.String(),
			Message:      rerr.Message,
			MessageStack: rerr.MessageStack,
		}
	}
	return &intentapi.ErrorInfo{Status: "UNKNOWN", Message: err.Error()}
}

// openStatus maps a session open failure to a gRPC status.
func openStatus(err error) error {
	code := codes.Internal
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	case errors.Is(err, rhino.ErrInvalidArgument):
		code = codes.InvalidArgument
	case errors.Is(err, rhino.ErrActivationLimitReached), errors.Is(err, rhino.ErrActivationThrottled):
		code = codes.ResourceExhausted
	case errors.Is(err, rhino.ErrActivation), errors.Is(err, rhino.ErrActivationRefused):
		code = codes.PermissionDenied
	case errors.Is(err, rhino.ErrIO), errors.Is(err, rhino.ErrKey), errors.Is(err, rhino.ErrInvalidState):
		code = codes.FailedPrecondition
	case errors.Is(err, rhino.ErrOutOfMemory):
		code = codes.ResourceExhausted
	}
	return status.Error(code, err.Error())
}
