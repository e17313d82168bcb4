// Package ringbuf provides the fixed-capacity temporal buffer shared between
// the asynchronous scan callback and the periodic control loop.
package ringbuf

import "sync"

// Buffer keeps the most recent capacity samples together with their capture
// timestamps. Eviction is strict FIFO by arrival order; entries are never
// re-sorted by timestamp. Push and Snapshot may be called concurrently; the
// lock is held only for the duration of the append or the copy.
type Buffer[T any] struct {
	mu       sync.Mutex
	samples  []T
	stamps   []float64
	capacity int
	head     int // next write position
	size     int
}

// New creates a buffer holding up to capacity samples.
func New[T any](capacity int) *Buffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer[T]{
		samples:  make([]T, capacity),
		stamps:   make([]float64, capacity),
		capacity: capacity,
	}
}

// Push appends a sample, evicting the oldest entry when full.
func (b *Buffer[T]) Push(sample T, stamp float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.samples[b.head] = sample
	b.stamps[b.head] = stamp
	b.head = (b.head + 1) % b.capacity
	if b.size < b.capacity {
		b.size++
	}
}

// Len returns the current number of buffered samples.
func (b *Buffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Capacity returns the fixed buffer capacity.
func (b *Buffer[T]) Capacity() int {
	return b.capacity
}

// Snapshot returns a copy of the buffered samples and timestamps in arrival
// order, oldest first. ok is false until the buffer has filled once; callers
// must treat that as "no output yet", not as an error.
func (b *Buffer[T]) Snapshot() (samples []T, stamps []float64, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.size < b.capacity {
		return nil, nil, false
	}

	samples = make([]T, b.capacity)
	stamps = make([]float64, b.capacity)
	for i := 0; i < b.capacity; i++ {
		idx := (b.head + i) % b.capacity
		samples[i] = b.samples[idx]
		stamps[i] = b.stamps[idx]
	}
	return samples, stamps, true
}
