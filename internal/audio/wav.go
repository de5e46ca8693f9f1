package audio

import (
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrUnsupportedFormat is returned for WAV input that is not 16-bit mono PCM
// at the requested sample rate.
var ErrUnsupportedFormat = errors.New("audio: unsupported WAV format")

// WAVFrameReader yields fixed-size frames of 16-bit mono samples from a WAV
// stream.
type WAVFrameReader struct {
	dec         *wav.Decoder
	buf         *goaudio.IntBuffer
	frameLength int
}

// NewWAVFrameReader validates the WAV header and prepares to read frames of
// frameLength samples.
func NewWAVFrameReader(r io.ReadSeeker, frameLength, sampleRate int) (*WAVFrameReader, error) {
	if frameLength <= 0 {
		return nil, fmt.Errorf("audio: frame length must be positive, got %d", frameLength)
	}
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not a WAV file", ErrUnsupportedFormat)
	}
	if dec.NumChans != 1 || dec.BitDepth != 16 || int(dec.SampleRate) != sampleRate {
		return nil, fmt.Errorf("%w: %d channel(s), %d-bit, %d Hz; want mono, 16-bit, %d Hz",
			ErrUnsupportedFormat, dec.NumChans, dec.BitDepth, dec.SampleRate, sampleRate)
	}
	return &WAVFrameReader{
		dec: dec,
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
			Data:           make([]int, frameLength),
			SourceBitDepth: 16,
		},
		frameLength: frameLength,
	}, nil
}

// Next returns the next full frame. A trailing partial frame is dropped and
// io.EOF is returned once the data chunk is exhausted.
func (r *WAVFrameReader) Next() ([]int16, error) {
	n, err := r.dec.PCMBuffer(r.buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("audio: read pcm: %w", err)
	}
	if n < r.frameLength {
		return nil, io.EOF
	}
	frame := make([]int16, r.frameLength)
	for i, v := range r.buf.Data[:n] {
		frame[i] = int16(v)
	}
	return frame, nil
}

// WAVWriter records 16-bit mono frames to a WAV stream.
type WAVWriter struct {
	enc *wav.Encoder
	buf *goaudio.IntBuffer
}

// NewWAVWriter starts a 16-bit mono WAV stream at sampleRate.
func NewWAVWriter(w io.WriteSeeker, sampleRate int) *WAVWriter {
	return &WAVWriter{
		enc: wav.NewEncoder(w, sampleRate, 16, 1, 1),
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
			SourceBitDepth: 16,
		},
	}
}

// WriteFrame appends pcm to the stream.
func (w *WAVWriter) WriteFrame(pcm []int16) error {
	if cap(w.buf.Data) < len(pcm) {
		w.buf.Data = make([]int, len(pcm))
	}
	w.buf.Data = w.buf.Data[:len(pcm)]
	for i, s := range pcm {
		w.buf.Data[i] = int(s)
	}
	if err := w.enc.Write(w.buf); err != nil {
		return fmt.Errorf("audio: write wav: %w", err)
	}
	return nil
}

// Close finalises the WAV header. It does not close the underlying writer.
func (w *WAVWriter) Close() error {
	return w.enc.Close()
}
