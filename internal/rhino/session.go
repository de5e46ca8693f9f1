package rhino

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

const (
	DefaultSensitivity         = 0.5
	DefaultEndpointDurationSec = 1.0
	MinEndpointDurationSec     = 0.5
	MaxEndpointDurationSec     = 5.0

	sdkName = "go"
)

// Phase is the lifecycle state of a Session.
type Phase int

const (
	PhaseListening Phase = iota
	PhaseFinalized
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseListening:
		return "listening"
	case PhaseFinalized:
		return "finalized"
	case PhaseClosed:
		return "closed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Options configures a Session. Use DefaultOptions for the engine defaults;
// the zero value is not valid.
type Options struct {
	AccessKey   string
	LibraryPath string
	ModelPath   string
	ContextPath string

	// Sensitivity within [0, 1]. Higher values trade fewer misses for more
	// false inferences.
	Sensitivity float32
	// EndpointDurationSec is the trailing silence, within [0.5, 5], that
	// marks the end of an utterance.
	EndpointDurationSec float32
	// RequireEndpoint makes the engine wait for trailing silence before it
	// finalizes.
	RequireEndpoint bool

	Logger *slog.Logger
}

// DefaultOptions returns options with the engine defaults and the library and
// model paths resolved for the current platform. LibraryPath is left empty
// when the platform is unsupported.
func DefaultOptions(accessKey, contextPath string) Options {
	opts := Options{
		AccessKey:           accessKey,
		ContextPath:         contextPath,
		ModelPath:           DefaultModelPath(""),
		Sensitivity:         DefaultSensitivity,
		EndpointDurationSec: DefaultEndpointDurationSec,
		RequireEndpoint:     true,
	}
	if path, err := DefaultLibraryPath(""); err == nil {
		opts.LibraryPath = path
	}
	return opts
}

// Session is one engine handle plus its Listening/Finalized/Closed state.
// A Session must not be copied.
type Session struct {
	mu    sync.Mutex
	lib   Library
	inst  Instance
	phase Phase

	frameLength int
	sampleRate  int
	version     string
	contextInfo string

	log *slog.Logger
}

// Open validates opts, loads the engine library and initialises a session.
// Nothing is loaded or allocated when validation fails.
func Open(opts Options) (*Session, error) {
	if err := validate(opts, true); err != nil {
		return nil, err
	}
	lib, err := OpenLibrary(opts.LibraryPath)
	if err != nil {
		return nil, err
	}
	return open(lib, opts)
}

// OpenWithLibrary initialises a session on an already loaded library.
// opts.LibraryPath is ignored.
func OpenWithLibrary(lib Library, opts Options) (*Session, error) {
	if lib == nil {
		return nil, localError(StatusInvalidArgument, "engine library is required")
	}
	if err := validate(opts, false); err != nil {
		return nil, err
	}
	return open(lib, opts)
}

func validate(opts Options, checkLibrary bool) error {
	if opts.AccessKey == "" {
		return localError(StatusInvalidArgument, "access key is required")
	}
	if checkLibrary {
		if err := requireFile("engine library", opts.LibraryPath); err != nil {
			return err
		}
	}
	if err := requireFile("model file", opts.ModelPath); err != nil {
		return err
	}
	if err := requireFile("context file", opts.ContextPath); err != nil {
		return err
	}
	if !(opts.Sensitivity >= 0 && opts.Sensitivity <= 1) {
		return localError(StatusInvalidArgument, "sensitivity %v is outside [0, 1]", opts.Sensitivity)
	}
	if !(opts.EndpointDurationSec >= MinEndpointDurationSec && opts.EndpointDurationSec <= MaxEndpointDurationSec) {
		return localError(StatusInvalidArgument, "endpoint duration %v is outside [%v, %v]",
			opts.EndpointDurationSec, MinEndpointDurationSec, MaxEndpointDurationSec)
	}
	return nil
}

func requireFile(kind, path string) error {
	if path == "" {
		return localError(StatusInvalidArgument, "%s path is required", kind)
	}
	info, err := os.Stat(path)
	if err != nil {
		return localError(StatusInvalidArgument, "%s not found at %s", kind, path)
	}
	if info.IsDir() {
		return localError(StatusInvalidArgument, "%s at %s is a directory", kind, path)
	}
	return nil
}

func open(lib Library, opts Options) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(
		"component", "rhino.session",
		"context", filepath.Base(opts.ContextPath),
	)

	lib.SetSDK(sdkName)
	inst, status := lib.Init(InitParams{
		AccessKey:           opts.AccessKey,
		ModelPath:           opts.ModelPath,
		ContextPath:         opts.ContextPath,
		Sensitivity:         opts.Sensitivity,
		EndpointDurationSec: opts.EndpointDurationSec,
		RequireEndpoint:     opts.RequireEndpoint,
	})
	if status != StatusSuccess {
		err := engineError(lib, status, "initialization failed")
		if inst != nil {
			inst.Delete()
		}
		logger.Warn("engine initialization failed", "status", status, "stack_depth", len(err.MessageStack))
		return nil, err
	}

	info, status := inst.ContextInfo()
	if status != StatusSuccess {
		err := engineError(lib, status, "failed to get context info")
		inst.Delete()
		logger.Warn("engine context info failed", "status", status, "stack_depth", len(err.MessageStack))
		return nil, err
	}

	s := &Session{
		lib:         lib,
		inst:        inst,
		phase:       PhaseListening,
		frameLength: lib.FrameLength(),
		sampleRate:  lib.SampleRate(),
		version:     lib.Version(),
		contextInfo: info,
		log:         logger,
	}
	runtime.SetFinalizer(s, (*Session).finalize)

	s.log.Debug("session opened",
		"version", s.version,
		"frame_length", s.frameLength,
		"sample_rate", s.sampleRate,
	)
	return s, nil
}

// FrameLength is the exact number of samples Process accepts.
func (s *Session) FrameLength() int { return s.frameLength }

// SampleRate is the sample rate, in Hz, the engine expects.
func (s *Session) SampleRate() int { return s.sampleRate }

// Version is the engine version string.
func (s *Session) Version() string { return s.version }

// ContextInfo is the YAML source of the loaded context.
func (s *Session) ContextInfo() string { return s.contextInfo }

// Phase reports the current lifecycle state.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Process feeds one frame to the engine and reports whether the utterance
// has been finalized. A finalized session rejects further frames until
// GetInference or Reset is called.
func (s *Session) Process(pcm []int16) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen("Process"); err != nil {
		return false, err
	}
	if len(pcm) != s.frameLength {
		return false, localError(StatusInvalidArgument,
			"invalid frame length: expected %d samples, got %d", s.frameLength, len(pcm))
	}
	if s.phase == PhaseFinalized {
		return false, localError(StatusInvalidState,
			"Process called on a finalized session; call GetInference or Reset first")
	}

	finalized, status := s.inst.Process(pcm)
	if status != StatusSuccess {
		return false, s.fail("processing failed", status)
	}
	if finalized {
		s.phase = PhaseFinalized
	}
	return finalized, nil
}

// GetInference returns the result of the finalized utterance and resets the
// session to Listening. Nothing is returned unless every engine call
// succeeds.
func (s *Session) GetInference() (Inference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen("GetInference"); err != nil {
		return Inference{}, err
	}
	if s.phase != PhaseFinalized {
		return Inference{}, localError(StatusInvalidState,
			"GetInference called before the inference was finalized; call it only after Process returns true")
	}

	understood, status := s.inst.IsUnderstood()
	if status != StatusSuccess {
		return Inference{}, s.fail("failed to get understood flag", status)
	}

	inference := Inference{IsUnderstood: understood, Slots: map[string]string{}}
	if understood {
		intent, slots, status := s.inst.GetIntent()
		if status != StatusSuccess {
			return Inference{}, s.fail("failed to get intent", status)
		}
		inference.Intent = intent
		for k, v := range slots {
			inference.Slots[k] = v
		}
	}

	if status := s.inst.Reset(); status != StatusSuccess {
		return Inference{}, s.fail("failed to reset", status)
	}
	s.phase = PhaseListening
	return inference, nil
}

// Reset discards any partial utterance and returns to Listening.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen("Reset"); err != nil {
		return err
	}
	if status := s.inst.Reset(); status != StatusSuccess {
		return s.fail("failed to reset", status)
	}
	s.phase = PhaseListening
	return nil
}

// Close releases the engine handle. Calling Close again is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseClosed {
		return nil
	}
	s.release()
	runtime.SetFinalizer(s, nil)
	s.log.Debug("session closed")
	return nil
}

func (s *Session) release() {
	s.inst.Delete()
	s.inst = nil
	s.phase = PhaseClosed
}

func (s *Session) finalize() {
	if s.phase == PhaseClosed {
		return
	}
	s.log.Warn("session garbage collected without Close; releasing engine handle")
	s.release()
}

func (s *Session) checkOpen(op string) error {
	if s.phase == PhaseClosed {
		return localError(StatusInvalidState, "%s called on a closed session", op)
	}
	return nil
}

func (s *Session) fail(message string, status Status) *Error {
	err := engineError(s.lib, status, message)
	s.log.Warn("engine call failed",
		"error", message,
		"status", status,
		"stack_depth", len(err.MessageStack),
	)
	return err
}

// engineError builds an *Error for a failed engine call, attaching whatever
// the engine recorded in its error stack.
func engineError(lib Library, status Status, message string) *Error {
	stack, stackStatus := lib.ErrorStack()
	if stackStatus != StatusSuccess {
		return &Error{
			Status:  status,
			Message: fmt.Sprintf("%s (error stack unavailable: %s)", message, stackStatus),
		}
	}
	return &Error{Status: status, Message: message, MessageStack: stack}
}
