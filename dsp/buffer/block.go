package buffer

// Block holds frames of planar audio for a fixed number of channels. All
// channels share one backing array.
type Block struct {
	data     []float64
	channels [][]float64
	frames   int
}

// NewBlock returns a zeroed block of the given shape. Negative sizes are
// treated as zero; at least one channel is allocated.
func NewBlock(channels, frames int) *Block {
	if channels < 1 {
		channels = 1
	}
	if frames < 0 {
		frames = 0
	}

	b := &Block{channels: make([][]float64, channels)}
	b.Resize(frames)

	return b
}

// NumChannels returns the channel count.
func (b *Block) NumChannels() int { return len(b.channels) }

// Frames returns the number of frames per channel.
func (b *Block) Frames() int { return b.frames }

// Channels returns one slice per channel, each Frames() long. The slices
// alias the block and are invalidated by Resize.
func (b *Block) Channels() [][]float64 { return b.channels }

// Channel returns the samples of channel ch.
func (b *Block) Channel(ch int) []float64 { return b.channels[ch] }

// Resize sets the frame count, reusing capacity when possible. Samples kept
// across a resize are not preserved; the block is zeroed when it grows.
func (b *Block) Resize(frames int) {
	if frames < 0 {
		frames = 0
	}

	n := frames * len(b.channels)
	if n > cap(b.data) {
		b.data = make([]float64, n)
	} else {
		if frames > b.frames {
			clear(b.data[:n])
		}
		b.data = b.data[:n]
	}

	b.frames = frames
	for ch := range b.channels {
		b.channels[ch] = b.data[ch*frames : (ch+1)*frames : (ch+1)*frames]
	}
}

// Zero sets all samples to 0.
func (b *Block) Zero() {
	clear(b.data)
}

// Deinterleave resizes b to hold src and copies it channel by channel.
// A trailing partial frame in src is ignored. It returns the frame count.
func (b *Block) Deinterleave(src []float32) int {
	nch := len(b.channels)
	b.Resize(len(src) / nch)

	for i := 0; i < b.frames; i++ {
		frame := src[i*nch : (i+1)*nch]
		for ch, v := range frame {
			b.channels[ch][i] = float64(v)
		}
	}

	return b.frames
}

// Interleave writes the block into dst as interleaved float32, growing dst
// if needed, and returns the written slice.
func (b *Block) Interleave(dst []float32) []float32 {
	nch := len(b.channels)

	n := b.frames * nch
	if cap(dst) < n {
		dst = make([]float32, n)
	}
	dst = dst[:n]

	for ch, samples := range b.channels {
		for i, v := range samples {
			dst[i*nch+ch] = float32(v)
		}
	}

	return dst
}

// EnsureLen returns a slice with the requested length, reusing buf capacity if possible.
func EnsureLen(buf []float64, n int) []float64 {
	if n <= 0 {
		return buf[:0]
	}
	if cap(buf) >= n {
		return buf[:n]
	}
	return make([]float64, n)
}
