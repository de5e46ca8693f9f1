// Package audio turns WAV files and raw little-endian PCM byte streams into
// the fixed-size sample frames a rhino session consumes.
package audio

import "encoding/binary"

const bytesPerSample = 2

// FrameAssembler buffers pcm_s16le bytes arriving in arbitrary chunk sizes
// and emits complete frames.
type FrameAssembler struct {
	frameLength int
	pending     []byte
}

// NewFrameAssembler returns an assembler producing frames of frameLength
// samples.
func NewFrameAssembler(frameLength int) *FrameAssembler {
	return &FrameAssembler{frameLength: frameLength}
}

// Push appends data and returns every frame completed by it. Leftover bytes,
// including an odd trailing byte, are kept for the next call.
func (a *FrameAssembler) Push(data []byte) [][]int16 {
	a.pending = append(a.pending, data...)

	frameBytes := a.frameLength * bytesPerSample
	if frameBytes <= 0 || len(a.pending) < frameBytes {
		return nil
	}

	frames := make([][]int16, 0, len(a.pending)/frameBytes)
	offset := 0
	for len(a.pending)-offset >= frameBytes {
		frame := make([]int16, a.frameLength)
		for i := range frame {
			frame[i] = int16(binary.LittleEndian.Uint16(a.pending[offset+i*bytesPerSample:]))
		}
		frames = append(frames, frame)
		offset += frameBytes
	}
	a.pending = append(a.pending[:0], a.pending[offset:]...)
	return frames
}

// Buffered returns the number of bytes waiting for a complete frame.
func (a *FrameAssembler) Buffered() int { return len(a.pending) }

// Reset drops any buffered bytes.
func (a *FrameAssembler) Reset() { a.pending = a.pending[:0] }
