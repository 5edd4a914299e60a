// Package pcm reads and writes headerless interleaved little-endian float32
// PCM, the raw stream format of the command-line host.
package pcm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/farcloser/primordium/fault"
)

const bytesPerSample = 4

// Reader decodes interleaved float32 frames from an io.Reader.
type Reader struct {
	r        io.Reader
	channels int
	buf      []byte
	eof      bool
}

// NewReader returns a Reader for the given channel count.
func NewReader(r io.Reader, channels int) (*Reader, error) {
	if channels < 1 {
		return nil, fmt.Errorf("pcm channels must be >= 1: %d", channels)
	}

	return &Reader{r: r, channels: channels}, nil
}

// Channels returns the channel count.
func (r *Reader) Channels() int { return r.channels }

// Read fills dst with whole frames and returns the number of frames read.
// A trailing partial frame at the end of the stream is discarded. Read returns
// io.EOF once no further frame is available.
func (r *Reader) Read(dst []float32) (int, error) {
	if r.eof {
		return 0, io.EOF
	}

	frameSize := r.channels * bytesPerSample

	need := (len(dst) / r.channels) * frameSize
	if need == 0 {
		return 0, nil
	}
	if cap(r.buf) < need {
		r.buf = make([]byte, need)
	}
	data := r.buf[:need]

	n, err := io.ReadFull(r.r, data)
	frames := n / frameSize

	for i := 0; i < frames*r.channels; i++ {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*bytesPerSample:]))
	}

	switch {
	case err == nil:
		return frames, nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		r.eof = true
		if frames == 0 {
			return 0, io.EOF
		}

		return frames, nil
	default:
		return frames, fmt.Errorf("%w: %w", fault.ErrReadFailure, err)
	}
}

// Writer encodes interleaved float32 frames to an io.Writer.
type Writer struct {
	w   io.Writer
	buf []byte
}

// NewWriter returns a Writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write encodes all samples of src.
func (w *Writer) Write(src []float32) error {
	need := len(src) * bytesPerSample
	if cap(w.buf) < need {
		w.buf = make([]byte, need)
	}
	data := w.buf[:need]

	for i, v := range src {
		binary.LittleEndian.PutUint32(data[i*bytesPerSample:], math.Float32bits(v))
	}

	if _, err := w.w.Write(data); err != nil {
		return fmt.Errorf("writing pcm: %w", err)
	}

	return nil
}
