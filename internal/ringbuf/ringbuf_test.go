package ringbuf

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotBeforeFull(t *testing.T) {
	t.Parallel()

	b := New[int](3)
	_, _, ok := b.Snapshot()
	assert.False(t, ok, "empty buffer must report insufficiency")

	b.Push(1, 0.1)
	b.Push(2, 0.2)
	_, _, ok = b.Snapshot()
	assert.False(t, ok, "partially filled buffer must report insufficiency")
	assert.Equal(t, 2, b.Len())
}

func TestSnapshotAtCapacity(t *testing.T) {
	t.Parallel()

	b := New[int](3)
	b.Push(1, 0.1)
	b.Push(2, 0.2)
	b.Push(3, 0.3)

	samples, stamps, ok := b.Snapshot()
	require.True(t, ok)
	assert.Equal(t, []int{1, 2, 3}, samples)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, stamps)
}

func TestFIFOEviction(t *testing.T) {
	t.Parallel()

	b := New[int](3)
	for i := 1; i <= 7; i++ {
		b.Push(i, float64(i))
	}

	samples, stamps, ok := b.Snapshot()
	require.True(t, ok)
	assert.Equal(t, []int{5, 6, 7}, samples, "only the most recent capacity entries survive")
	assert.Equal(t, []float64{5, 6, 7}, stamps)
	assert.Equal(t, 3, b.Len())
}

func TestEvictionIgnoresTimestampValues(t *testing.T) {
	t.Parallel()

	// Arrival order wins even when stamps go backwards; the buffer never
	// re-sorts.
	b := New[string](2)
	b.Push("a", 9.0)
	b.Push("b", 1.0)
	b.Push("c", 5.0)

	samples, stamps, ok := b.Snapshot()
	require.True(t, ok)
	assert.Equal(t, []string{"b", "c"}, samples)
	assert.Equal(t, []float64{1.0, 5.0}, stamps)
}

func TestSnapshotReturnsCopy(t *testing.T) {
	t.Parallel()

	b := New[int](2)
	b.Push(1, 0.1)
	b.Push(2, 0.2)

	samples, _, ok := b.Snapshot()
	require.True(t, ok)
	samples[0] = 99

	again, _, ok := b.Snapshot()
	require.True(t, ok)
	assert.Equal(t, []int{1, 2}, again, "mutating a snapshot must not touch the buffer")
}

func TestConcurrentPushSnapshot(t *testing.T) {
	t.Parallel()

	b := New[int](8)
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			b.Push(i, float64(i))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			if samples, stamps, ok := b.Snapshot(); ok {
				assert.Len(t, samples, 8)
				assert.Len(t, stamps, 8)
			}
		}
	}()
	wg.Wait()
}
