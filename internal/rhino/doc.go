// Package rhino binds the precompiled speech-to-intent engine.
//
// The engine is loaded at runtime from a shared library (dlopen on Unix,
// LoadLibrary on Windows) and reached through the entry-point table described
// by [Library]. A [Session] owns exactly one engine handle and drives it with
// fixed-size frames of 16-bit mono PCM:
//
//	s, err := rhino.Open(rhino.DefaultOptions(accessKey, contextPath))
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//
//	for frame := range frames { // len(frame) == s.FrameLength()
//		finalized, err := s.Process(frame)
//		if err != nil {
//			return err
//		}
//		if finalized {
//			inference, err := s.GetInference() // also resets the session
//			...
//		}
//	}
//
// # Lifecycle
//
// A session starts Listening. Process moves it to Finalized once the engine
// has decided on the utterance. GetInference or Reset returns it to
// Listening. Close is terminal; every later call fails with an
// [ErrInvalidState] error.
//
// # Thread Safety
//
// The engine handle is not thread-safe. Session serialises its own calls, but
// callers streaming live audio should still give one goroutine exclusive
// ownership of a session and signal it through channels or contexts.
//
// # Errors
//
// Engine failures are returned as *[Error] values carrying the engine status
// and its diagnostic message stack. Use errors.Is with the Err* kinds to
// branch on the failure.
package rhino
