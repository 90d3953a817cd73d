package terminal

import (
	"sync"
	"time"
)

// Buffer is a bounded, append-only log of output chunks.
//
// It keeps the most recent chunks whose total payload fits the byte
// capacity. Eviction is FIFO and never reorders surviving chunks, so a
// Snapshot is always a contiguous suffix of everything ever appended.
type Buffer struct {
	mu       sync.RWMutex
	chunks   []Chunk
	capacity int
	total    int
	nextSeq  uint64
}

// NewBuffer creates a buffer bounded to capacity bytes of payload.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = 256 * 1024
	}
	return &Buffer{capacity: capacity}
}

// Append copies data into the buffer as a new chunk, evicting the oldest
// chunks until the total payload fits, and returns the stored chunk.
func (b *Buffer) Append(data []byte) Chunk {
	b.mu.Lock()
	defer b.mu.Unlock()

	owned := make([]byte, len(data))
	copy(owned, data)

	chunk := Chunk{
		Seq:  b.nextSeq,
		Data: owned,
		Time: time.Now(),
	}
	b.nextSeq++

	b.chunks = append(b.chunks, chunk)
	b.total += len(owned)

	evict := 0
	for b.total > b.capacity && evict < len(b.chunks)-1 {
		b.total -= len(b.chunks[evict].Data)
		evict++
	}
	if evict > 0 {
		b.chunks = append([]Chunk(nil), b.chunks[evict:]...)
	}
	// A single chunk larger than the capacity is kept whole; dropping the
	// only chunk would lose output without bounding anything further.

	return chunk
}

// Snapshot returns a copy of the current contents in append order. The
// returned slice is safe to iterate while the buffer keeps mutating.
func (b *Buffer) Snapshot() []Chunk {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Chunk, len(b.chunks))
	copy(out, b.chunks)
	return out
}

// Bytes concatenates the current contents into one byte slice.
func (b *Buffer) Bytes() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]byte, 0, b.total)
	for _, c := range b.chunks {
		out = append(out, c.Data...)
	}
	return out
}

// Len returns the total payload bytes currently held.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.total
}
