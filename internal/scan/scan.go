// Package scan prepares raw range sweeps for the control pipeline.
package scan

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Sanitize returns a copy of ranges with every NaN and Inf replaced by 0.
func Sanitize(ranges []float32) []float32 {
	out := make([]float32, len(ranges))
	for i, r := range ranges {
		f := float64(r)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			out[i] = 0
			continue
		}
		out[i] = r
	}
	return out
}

// Subsample reduces a sweep to n evenly spaced bins. The first and last bin
// of the input are always retained. Inputs shorter than n are returned as a
// zero-padded copy so downstream tensor shapes stay fixed.
func Subsample(ranges []float32, n int) []float32 {
	out := make([]float32, n)
	if len(ranges) == 0 || n == 0 {
		return out
	}
	if len(ranges) <= n {
		copy(out, ranges)
		return out
	}

	idx := make([]float64, n)
	floats.Span(idx, 0, float64(len(ranges)-1))
	for i, x := range idx {
		out[i] = ranges[int(math.Round(x))]
	}
	return out
}
