// Package intentapi defines the streaming intent service exposed by the
// adapter. Messages travel as JSON over gRPC using the codec registered by
// this package.
package intentapi

// StreamIntentsRequest carries one chunk of client input. The first request
// on a stream identifies it; later requests carry audio or control flags.
type StreamIntentsRequest struct {
	SessionId string            `json:"session_id,omitempty"`
	StreamId  string            `json:"stream_id,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	// Audio is pcm_s16le mono at the sample rate announced in SessionInfo.
	// Chunks need not align to frame boundaries.
	Audio []byte `json:"audio,omitempty"`
	// Reset discards buffered audio and the partial utterance.
	Reset bool `json:"reset,omitempty"`
	// Close ends the stream after pending audio has been processed.
	Close bool `json:"close,omitempty"`
}

func (r *StreamIntentsRequest) GetSessionId() string {
	if r == nil {
		return ""
	}
	return r.SessionId
}

func (r *StreamIntentsRequest) GetStreamId() string {
	if r == nil {
		return ""
	}
	return r.StreamId
}

func (r *StreamIntentsRequest) GetMetadata() map[string]string {
	if r == nil {
		return nil
	}
	return r.Metadata
}

func (r *StreamIntentsRequest) GetAudio() []byte {
	if r == nil {
		return nil
	}
	return r.Audio
}

func (r *StreamIntentsRequest) GetReset() bool { return r != nil && r.Reset }
func (r *StreamIntentsRequest) GetClose() bool { return r != nil && r.Close }

// StreamIntentsResponse carries exactly one of Ready, Inference or Error.
type StreamIntentsResponse struct {
	SessionId string `json:"session_id,omitempty"`
	StreamId  string `json:"stream_id,omitempty"`
	// Sequence numbers inference and error responses in emission order,
	// starting at 1.
	Sequence  uint64           `json:"sequence,omitempty"`
	Ready     *SessionInfo     `json:"ready,omitempty"`
	Inference *InferenceResult `json:"inference,omitempty"`
	Error     *ErrorInfo       `json:"error,omitempty"`
}

func (r *StreamIntentsResponse) GetSequence() uint64 {
	if r == nil {
		return 0
	}
	return r.Sequence
}

func (r *StreamIntentsResponse) GetReady() *SessionInfo {
	if r == nil {
		return nil
	}
	return r.Ready
}

func (r *StreamIntentsResponse) GetInference() *InferenceResult {
	if r == nil {
		return nil
	}
	return r.Inference
}

func (r *StreamIntentsResponse) GetError() *ErrorInfo {
	if r == nil {
		return nil
	}
	return r.Error
}

// SessionInfo describes the session opened for a stream.
type SessionInfo struct {
	FrameLength int32  `json:"frame_length"`
	SampleRate  int32  `json:"sample_rate"`
	Version     string `json:"version"`
	Context     string `json:"context,omitempty"`
	// Intents and Slots summarise the loaded context.
	Intents []string            `json:"intents,omitempty"`
	Slots   map[string][]string `json:"slots,omitempty"`
}

// InferenceResult is one finalized utterance.
type InferenceResult struct {
	IsUnderstood bool              `json:"is_understood"`
	Intent       string            `json:"intent,omitempty"`
	Slots        map[string]string `json:"slots,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// ErrorInfo reports an engine failure that did not end the stream.
type ErrorInfo struct {
	Status       string   `json:"status"`
	Message      string   `json:"message"`
	MessageStack []string `json:"message_stack,omitempty"`
}
