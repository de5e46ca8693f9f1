package engine

import "github.com/nupi-ai/plugin-intent-local-rhino/internal/rhino"

// Session is one speech-to-intent stream backed by the Rhino engine or a stub
// implementation. A Session is owned by a single goroutine.
type Session interface {
	// Process consumes exactly FrameLength samples and reports whether the
	// utterance has been finalized.
	Process(pcm []int16) (bool, error)
	// GetInference returns the finalized result and readies the session for
	// the next utterance.
	GetInference() (rhino.Inference, error)
	// Reset discards a partial utterance.
	Reset() error
	// Close releases underlying resources.
	Close() error

	FrameLength() int
	SampleRate() int
	Version() string
	ContextInfo() string
}

var (
	_ Session = (*rhino.Session)(nil)
	_ Session = (*StubSession)(nil)
)
