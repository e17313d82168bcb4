package timesync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sixStreams() []Stream {
	return []Stream{
		{Name: "odom"},
		{Name: "pf_odom"},
		{Name: "scan"},
		{Name: "pose"},
		{Name: "imu_raw"},
		{Name: "imu", Headerless: true},
	}
}

func TestJoinWithinSlop(t *testing.T) {
	t.Parallel()

	var frames []Frame
	s := New(sixStreams(), 0.05, 20, func(f Frame) { frames = append(frames, f) })

	s.Push(0, 1.00, "odom")
	s.Push(1, 1.01, "pf_odom")
	s.Push(2, 1.02, "scan")
	s.Push(3, 1.03, "pose")
	s.Push(5, 1.02, "imu")
	assert.Empty(t, frames, "no frame until every stream has a candidate")

	s.Push(4, 1.04, "imu_raw")
	require.Len(t, frames, 1, "exactly one frame per aligned group")

	f := frames[0]
	assert.InDelta(t, 1.04, f.Stamp, 1e-9)
	assert.Equal(t, []any{"odom", "pf_odom", "scan", "pose", "imu_raw", "imu"}, f.Msgs)
}

func TestOutlierExcluded(t *testing.T) {
	t.Parallel()

	var frames []Frame
	s := New(sixStreams(), 0.05, 20, func(f Frame) { frames = append(frames, f) })

	s.Push(0, 1.00, "odom-old")
	s.Push(1, 1.00, "pf_odom")
	s.Push(2, 1.00, "scan")
	s.Push(3, 1.00, "pose")
	s.Push(5, 1.00, "imu")

	// 0.2 s outside the window: cannot complete a join.
	s.Push(4, 1.20, "imu_raw-late")
	assert.Empty(t, frames)

	// A timely message on the lagging stream completes the group around
	// its own reference time.
	s.Push(0, 1.21, "odom-new")
	s.Push(1, 1.21, "pf_odom-new")
	s.Push(2, 1.21, "scan-new")
	s.Push(3, 1.21, "pose-new")
	s.Push(5, 1.21, "imu-new")
	require.Len(t, frames, 1)
	assert.Equal(t, "imu_raw-late", frames[0].Msgs[4])
	assert.Equal(t, "odom-new", frames[0].Msgs[0])
}

func TestNoDuplicateFrames(t *testing.T) {
	t.Parallel()

	var frames []Frame
	s := New(sixStreams(), 0.05, 20, func(f Frame) { frames = append(frames, f) })

	for i := 0; i < 5; i++ {
		s.Push(i, 2.00, i)
	}
	s.Push(5, 2.00, 5)
	require.Len(t, frames, 1)

	// A straggler on one stream alone must not re-join the consumed group.
	s.Push(2, 2.01, "straggler")
	assert.Len(t, frames, 1, "consumed candidates are discarded after a join")
}

func TestHeaderlessMatchedByArrival(t *testing.T) {
	t.Parallel()

	var frames []Frame
	s := New(sixStreams(), 0.05, 20, func(f Frame) { frames = append(frames, f) })

	// The headerless stream's stamp is its arrival time and can be far from
	// the reference; it must still participate.
	s.Push(5, 99.0, "imu-any")
	s.Push(0, 3.00, "odom")
	s.Push(1, 3.00, "pf_odom")
	s.Push(2, 3.00, "scan")
	s.Push(3, 3.00, "pose")
	s.Push(4, 3.00, "imu_raw")

	require.Len(t, frames, 1)
	assert.Equal(t, "imu-any", frames[0].Msgs[5])
}

func TestClosestCandidateWins(t *testing.T) {
	t.Parallel()

	var frames []Frame
	s := New(sixStreams(), 0.05, 20, func(f Frame) { frames = append(frames, f) })

	s.Push(0, 1.00, "odom-far")
	s.Push(0, 1.03, "odom-near")
	s.Push(1, 1.04, "pf_odom")
	s.Push(2, 1.04, "scan")
	s.Push(3, 1.04, "pose")
	s.Push(5, 1.04, "imu")
	s.Push(4, 1.04, "imu_raw")

	require.Len(t, frames, 1)
	assert.Equal(t, "odom-near", frames[0].Msgs[0])
}

func TestQueueDepthBounded(t *testing.T) {
	t.Parallel()

	s := New(sixStreams(), 0.05, 4, nil)
	for i := 0; i < 10; i++ {
		s.Push(0, float64(i), i)
	}
	assert.Equal(t, 4, s.Pending(0), "queue overflow evicts oldest candidates")
}
