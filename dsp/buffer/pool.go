package buffer

import "sync"

// Pool provides sync.Pool-based Block reuse for a fixed channel count to
// reduce GC pressure in streaming loops.
type Pool struct {
	channels int
	pool     sync.Pool
}

// NewPool returns a Pool handing out blocks with the given channel count.
func NewPool(channels int) *Pool {
	if channels < 1 {
		channels = 1
	}

	p := &Pool{channels: channels}
	p.pool.New = func() any {
		return NewBlock(p.channels, 0)
	}

	return p
}

// Get returns a zeroed Block with the requested frame count.
// Callers must return it via Put when done.
func (p *Pool) Get(frames int) *Block {
	b := p.pool.Get().(*Block)
	b.Resize(frames)
	b.Zero()

	return b
}

// Put returns a Block to the pool. Blocks with a different channel count are
// dropped. The caller must not use the block after calling Put.
func (p *Pool) Put(b *Block) {
	if b == nil || b.NumChannels() != p.channels {
		return
	}

	p.pool.Put(b)
}
