// Package timesync joins independently-clocked sensor streams into
// time-aligned frames for session recording.
package timesync

import (
	"math"
	"sync"
)

// DefaultSlop is the timestamp tolerance of a join, in seconds.
const DefaultSlop = 0.05

// DefaultQueueDepth bounds each per-stream candidate queue.
const DefaultQueueDepth = 20

// Stream declares one input of the synchronizer.
type Stream struct {
	Name string
	// Headerless streams carry no capture stamp and are matched by most
	// recent arrival instead of timestamp distance.
	Headerless bool
}

// Frame is one successful join: exactly one message per declared stream,
// indexed in declaration order. Frames are handed to the sink and not
// retained by the synchronizer.
type Frame struct {
	Stamp float64 // reference time of the join, seconds
	Msgs  []any
}

type entry struct {
	stamp float64
	msg   any
}

// Synchronizer implements an approximate-time join over N streams. For each
// newly arrived message it looks for the closest queued candidate on every
// other stream within the slop window; on success it emits one Frame and
// discards the consumed candidates along with anything older, so the same
// physical event is never joined twice.
type Synchronizer struct {
	mu      sync.Mutex
	streams []Stream
	slop    float64
	depth   int
	queues  [][]entry
	sink    func(Frame)
}

// New creates a synchronizer over the given streams. The sink is invoked
// inline from Push and must not push back into the synchronizer.
func New(streams []Stream, slop float64, depth int, sink func(Frame)) *Synchronizer {
	if slop <= 0 {
		slop = DefaultSlop
	}
	if depth < 1 {
		depth = DefaultQueueDepth
	}
	return &Synchronizer{
		streams: streams,
		slop:    slop,
		depth:   depth,
		queues:  make([][]entry, len(streams)),
		sink:    sink,
	}
}

// Push delivers one message on the given stream. For headerless streams the
// caller passes its arrival time as stamp.
func (s *Synchronizer) Push(stream int, stamp float64, msg any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := append(s.queues[stream], entry{stamp: stamp, msg: msg})
	if len(q) > s.depth {
		q = q[len(q)-s.depth:]
	}
	s.queues[stream] = q

	s.tryJoin(stamp)
}

// tryJoin attempts one join against the reference time. Caller holds s.mu.
func (s *Synchronizer) tryJoin(ref float64) {
	picks := make([]int, len(s.streams))
	for i, q := range s.queues {
		if len(q) == 0 {
			return
		}
		if s.streams[i].Headerless {
			picks[i] = len(q) - 1
			continue
		}
		best := -1
		bestDist := math.Inf(1)
		for j, e := range q {
			d := math.Abs(e.stamp - ref)
			if d <= s.slop && d < bestDist {
				best = j
				bestDist = d
			}
		}
		if best < 0 {
			return
		}
		picks[i] = best
	}

	f := Frame{Stamp: ref, Msgs: make([]any, len(s.streams))}
	for i, p := range picks {
		f.Msgs[i] = s.queues[i][p].msg
		// Drop the consumed candidate and every older entry so stale
		// messages cannot participate in a later join.
		s.queues[i] = append([]entry(nil), s.queues[i][p+1:]...)
	}
	if s.sink != nil {
		s.sink(f)
	}
}

// Pending returns the queued candidate count for a stream, for diagnostics.
func (s *Synchronizer) Pending(stream int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queues[stream])
}
