// Package control runs the fixed-rate perception-to-actuation loop.
package control

import (
	"context"
	"log"
	"time"

	"github.com/kabirpuri/RecurrentLidarNet/internal/drive"
	"github.com/kabirpuri/RecurrentLidarNet/internal/model"
	"github.com/kabirpuri/RecurrentLidarNet/internal/ringbuf"
)

// DefaultRateHz is the nominal control rate.
const DefaultRateHz = 40.0

// Denormalization constants of the trained controller and the publish gain
// applied to speed.
const (
	steerOutMin = -0.34 // rad
	steerOutMax = 0.34
	speedOutMin = -0.5 // m/s
	speedOutMax = 7.0
	speedGain   = 1.2
)

// Inferrer produces a normalized command from buffered history.
type Inferrer interface {
	Infer(scans [][]float32, stamps []float64) model.Result
}

// Recorder is the session lifecycle the scheduler reconciles with the mode.
type Recorder interface {
	Open() error
	Close()
	IsOpen() bool
}

// Scheduler drives one tick per period: it reconciles the recording session
// with the current mode, runs inference in autonomous mode, publishes the
// denormalized command, and checks its own deadline. All per-tick failures
// degrade to the neutral command; nothing here aborts the loop.
type Scheduler struct {
	period   time.Duration
	adapter  Inferrer
	buffer   *ringbuf.Buffer[[]float32]
	manual   func() bool
	recorder Recorder
	publish  func(drive.Command)
	distance func() float64
	trace    *Trace

	start time.Time
}

// NewScheduler wires a scheduler. publish must not block; it runs on the
// control goroutine. distance and trace may be nil.
func NewScheduler(
	period time.Duration,
	adapter Inferrer,
	buffer *ringbuf.Buffer[[]float32],
	manual func() bool,
	recorder Recorder,
	publish func(drive.Command),
	distance func() float64,
	trace *Trace,
) *Scheduler {
	return &Scheduler{
		period:   period,
		adapter:  adapter,
		buffer:   buffer,
		manual:   manual,
		recorder: recorder,
		publish:  publish,
		distance: distance,
		trace:    trace,
	}
}

// Run ticks at the configured period until ctx is cancelled. A slow tick is
// logged but never causes a skipped or doubled tick; the ticker fires the
// next one at the next period boundary.
func (s *Scheduler) Run(ctx context.Context) {
	s.start = time.Now()
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Tick(now)
		}
	}
}

// Tick performs one control cycle.
func (s *Scheduler) Tick(now time.Time) {
	tickStart := time.Now()

	manual := s.manual()
	if manual && !s.recorder.IsOpen() {
		if err := s.recorder.Open(); err != nil {
			log.Printf("control: session open failed: %v", err)
		}
	} else if !manual && s.recorder.IsOpen() {
		s.recorder.Close()
	}

	mode := "OFF"
	if manual {
		mode = "ON"
	}
	dist := 0.0
	if s.distance != nil {
		dist = s.distance()
	}
	log.Printf("control: manual %s | dist %.2f m", mode, dist)

	if !manual {
		var res model.Result
		scans, stamps, ok := s.buffer.Snapshot()
		if ok {
			res = s.adapter.Infer(scans, stamps)
		} else {
			res = model.Result{Neutral: true}
		}

		cmd := drive.Command{
			Speed:         model.LinearMap(res.Speed, 0, 1, speedOutMin, speedOutMax) * speedGain,
			SteeringAngle: model.LinearMap(res.Steer, -1, 1, steerOutMin, steerOutMax),
		}
		s.publish(cmd)

		if s.trace != nil {
			s.trace.Append(now.Sub(s.start).Seconds(), cmd)
		}
		if !res.Neutral {
			log.Printf("control: inference %.1f ms -> speed %.2f steer %.3f",
				float64(res.Latency.Microseconds())/1000, cmd.Speed, cmd.SteeringAngle)
		}
	}

	if elapsed := time.Since(tickStart); elapsed > s.period {
		log.Printf("control: deadline miss: %.1f ms", float64(elapsed.Microseconds())/1000)
	}
}
