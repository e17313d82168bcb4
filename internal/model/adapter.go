package model

import (
	"log"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
)

// Result is the outcome of one inference call. Neutral results carry the
// safe zero command produced when the history is still warming up or the
// forward pass failed; the scheduler publishes them like any other output.
type Result struct {
	Steer   float64 // normalized, trained range [-1, 1]
	Speed   float64 // normalized, trained range [0, 1]
	Neutral bool
	Latency time.Duration
}

// Adapter drives the pretrained controller from buffered scan history.
type Adapter struct {
	net           *Network
	seqLen        int
	numRanges     int
	fallbackDelta float64 // substitute timestep when stamps are non-monotonic
}

// NewAdapter builds an adapter around loaded weights. controlPeriod (seconds)
// becomes the fallback delta used when timestamps go backwards.
func NewAdapter(w *Weights, controlPeriod float64) *Adapter {
	return &Adapter{
		net:           NewNetwork(w),
		seqLen:        w.SeqLen,
		numRanges:     w.NumRanges,
		fallbackDelta: controlPeriod,
	}
}

// SeqLen is the history length the model requires.
func (a *Adapter) SeqLen() int { return a.seqLen }

// NumRanges is the number of angular bins per scan the model requires.
func (a *Adapter) NumRanges() int { return a.numRanges }

// Infer turns a buffer snapshot into a normalized (steer, speed) pair.
// Anything short of a full, well-formed history degrades to the neutral
// result; inference failures never propagate to the control loop.
func (a *Adapter) Infer(scans [][]float32, stamps []float64) Result {
	if len(scans) != a.seqLen || len(stamps) != a.seqLen {
		return Result{Neutral: true}
	}

	x := mat.NewDense(a.seqLen, 2*a.numRanges, nil)
	dirty := false
	for t, s := range scans {
		if len(s) != a.numRanges {
			return Result{Neutral: true}
		}
		for i, v := range s {
			f := float64(v)
			if math.IsNaN(f) || math.IsInf(f, 0) {
				f = 0
				dirty = true
			}
			x.Set(t, i, f)
		}
	}
	if dirty {
		log.Printf("model: NaN/Inf values found in scans, replaced with zeros")
	}

	deltas := Deltas(stamps, a.fallbackDelta)
	for t, d := range deltas {
		for i := 0; i < a.numRanges; i++ {
			x.Set(t, a.numRanges+i, d)
		}
	}

	start := time.Now()
	steer, speed, err := a.net.Forward(x)
	latency := time.Since(start)
	if err != nil {
		log.Printf("model: forward pass failed: %v", err)
		return Result{Neutral: true, Latency: latency}
	}

	return Result{Steer: steer, Speed: speed, Latency: latency}
}

// Deltas computes successive timestamp differences with a zero prepended so
// the result has the same length as stamps. If any difference is negative
// the whole series is replaced by the constant fallback, guarding the time
// channel against clock jumps.
func Deltas(stamps []float64, fallback float64) []float64 {
	out := make([]float64, len(stamps))
	if len(stamps) < 2 {
		return out
	}
	for i := 1; i < len(stamps); i++ {
		d := stamps[i] - stamps[i-1]
		if d < 0 {
			log.Printf("model: non-monotonic timestamps detected, using constant delta %.3fs", fallback)
			for j := 1; j < len(out); j++ {
				out[j] = fallback
			}
			return out
		}
		out[i] = d
	}
	return out
}

// LinearMap is the affine denormalization y = (x-xMin)/(xMax-xMin)*(yMax-yMin)+yMin.
// A degenerate domain returns the midpoint of the output range.
func LinearMap(x, xMin, xMax, yMin, yMax float64) float64 {
	if xMax == xMin {
		return (yMin + yMax) / 2
	}
	return (x-xMin)/(xMax-xMin)*(yMax-yMin) + yMin
}
