package control

import (
	"bytes"
	"log"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kabirpuri/RecurrentLidarNet/internal/drive"
	"github.com/kabirpuri/RecurrentLidarNet/internal/model"
	"github.com/kabirpuri/RecurrentLidarNet/internal/ringbuf"
)

type stubInferrer struct {
	res   model.Result
	delay time.Duration
	calls int
}

func (s *stubInferrer) Infer(scans [][]float32, stamps []float64) model.Result {
	s.calls++
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.res
}

type stubRecorder struct {
	open   bool
	opens  int
	closes int
}

func (r *stubRecorder) Open() error {
	r.open = true
	r.opens++
	return nil
}

func (r *stubRecorder) Close() {
	r.open = false
	r.closes++
}

func (r *stubRecorder) IsOpen() bool { return r.open }

func fullBuffer(capacity int) *ringbuf.Buffer[[]float32] {
	b := ringbuf.New[[]float32](capacity)
	for i := 0; i < capacity; i++ {
		b.Push([]float32{1, 2}, float64(i)*0.025)
	}
	return b
}

func newTestScheduler(
	inf *stubInferrer,
	buf *ringbuf.Buffer[[]float32],
	manual bool,
	rec *stubRecorder,
	published *[]drive.Command,
) *Scheduler {
	return NewScheduler(
		25*time.Millisecond,
		inf,
		buf,
		func() bool { return manual },
		rec,
		func(cmd drive.Command) { *published = append(*published, cmd) },
		nil,
		nil,
	)
}

func TestAutonomousTickPublishesDenormalized(t *testing.T) {
	var published []drive.Command
	inf := &stubInferrer{res: model.Result{Steer: 1, Speed: 1}}
	s := newTestScheduler(inf, fullBuffer(3), false, &stubRecorder{}, &published)

	s.Tick(time.Now())

	require.Len(t, published, 1)
	assert.Equal(t, 1, inf.calls)
	assert.InDelta(t, 7.0*1.2, published[0].Speed, 1e-9)
	assert.InDelta(t, 0.34, published[0].SteeringAngle, 1e-9)
}

func TestWarmupTickPublishesNeutral(t *testing.T) {
	var published []drive.Command
	inf := &stubInferrer{}
	s := newTestScheduler(inf, ringbuf.New[[]float32](3), false, &stubRecorder{}, &published)

	s.Tick(time.Now())

	require.Len(t, published, 1, "the neutral command is still published")
	assert.Zero(t, inf.calls, "no inference without a full snapshot")
	assert.InDelta(t, -0.5*1.2, published[0].Speed, 1e-9, "neutral speed denormalizes to the domain floor")
	assert.InDelta(t, 0.0, published[0].SteeringAngle, 1e-9)
}

func TestManualTickDoesNotPublish(t *testing.T) {
	var published []drive.Command
	inf := &stubInferrer{}
	s := newTestScheduler(inf, fullBuffer(3), true, &stubRecorder{}, &published)

	s.Tick(time.Now())

	assert.Empty(t, published)
	assert.Zero(t, inf.calls)
}

func TestRecorderReconciledWithMode(t *testing.T) {
	var published []drive.Command
	rec := &stubRecorder{}

	manual := newTestScheduler(&stubInferrer{}, fullBuffer(3), true, rec, &published)
	manual.Tick(time.Now())
	assert.Equal(t, 1, rec.opens)
	assert.True(t, rec.IsOpen())

	// Ticking again in manual mode must not reopen.
	manual.Tick(time.Now())
	assert.Equal(t, 1, rec.opens)

	auto := newTestScheduler(&stubInferrer{}, fullBuffer(3), false, rec, &published)
	auto.Tick(time.Now())
	assert.Equal(t, 1, rec.closes)
	assert.False(t, rec.IsOpen())
}

func TestDeadlineMissIsLoggedNotFatal(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	var published []drive.Command
	inf := &stubInferrer{delay: 40 * time.Millisecond}
	s := newTestScheduler(inf, fullBuffer(3), false, &stubRecorder{}, &published)

	s.Tick(time.Now())
	s.Tick(time.Now())

	assert.Contains(t, buf.String(), "deadline miss")
	assert.Len(t, published, 2, "a slow tick never skips the following tick")
}

func TestTraceCollectsPublishedCommands(t *testing.T) {
	var published []drive.Command
	trace := NewTrace()
	s := NewScheduler(
		25*time.Millisecond,
		&stubInferrer{},
		fullBuffer(3),
		func() bool { return false },
		&stubRecorder{},
		func(cmd drive.Command) { published = append(published, cmd) },
		nil,
		trace,
	)

	s.Tick(time.Now())
	s.Tick(time.Now())
	assert.Equal(t, 2, trace.Len())
}
