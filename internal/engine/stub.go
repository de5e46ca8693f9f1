package engine

import (
	"log/slog"

	"github.com/nupi-ai/plugin-intent-local-rhino/internal/adapterinfo"
	"github.com/nupi-ai/plugin-intent-local-rhino/internal/rhino"
)

const (
	stubFrameLength = 512
	stubSampleRate  = 16000
	stubVersion     = "stub"
	stubContextInfo = "context:\n  expressions: {}\n  slots: {}\n"
)

// StubSession follows the session state machine without invoking the engine.
// Every utterance of finalizeAfter frames yields a not-understood inference.
type StubSession struct {
	log           *slog.Logger
	finalizeAfter int
	frames        int
	finalized     bool
	closed        bool
}

// NewStubSession returns a Session that finalizes every finalizeAfter frames.
func NewStubSession(logger *slog.Logger, finalizeAfter int) *StubSession {
	if logger == nil {
		logger = slog.Default()
	}
	if finalizeAfter <= 0 {
		finalizeAfter = 1
	}
	return &StubSession{
		log: logger.With(
			"component", "engine.stub",
			"adapter", adapterinfo.Info.Slug,
		),
		finalizeAfter: finalizeAfter,
	}
}

func (s *StubSession) FrameLength() int    { return stubFrameLength }
func (s *StubSession) SampleRate() int     { return stubSampleRate }
func (s *StubSession) Version() string     { return stubVersion }
func (s *StubSession) ContextInfo() string { return stubContextInfo }

// Process implements the Session interface.
func (s *StubSession) Process(pcm []int16) (bool, error) {
	if s.closed {
		return false, stubError(rhino.StatusInvalidState, "Process called on a closed session")
	}
	if len(pcm) != stubFrameLength {
		return false, stubError(rhino.StatusInvalidArgument, "invalid frame length")
	}
	if s.finalized {
		return false, stubError(rhino.StatusInvalidState, "Process called on a finalized session")
	}
	s.frames++
	if s.frames >= s.finalizeAfter {
		s.finalized = true
		s.log.Debug("stub utterance finalized", "frames", s.frames)
	}
	return s.finalized, nil
}

// GetInference implements the Session interface.
func (s *StubSession) GetInference() (rhino.Inference, error) {
	if s.closed {
		return rhino.Inference{}, stubError(rhino.StatusInvalidState, "GetInference called on a closed session")
	}
	if !s.finalized {
		return rhino.Inference{}, stubError(rhino.StatusInvalidState, "GetInference called before the inference was finalized")
	}
	s.frames = 0
	s.finalized = false
	return rhino.Inference{Slots: map[string]string{}}, nil
}

// Reset implements the Session interface.
func (s *StubSession) Reset() error {
	if s.closed {
		return stubError(rhino.StatusInvalidState, "Reset called on a closed session")
	}
	s.frames = 0
	s.finalized = false
	return nil
}

// Close implements the Session interface.
func (s *StubSession) Close() error {
	s.closed = true
	return nil
}

func stubError(status rhino.Status, message string) *rhino.Error {
	return &rhino.Error{Status: status, Message: message}
}
