package control

import (
	"math"
	"sync"
)

// Odometer integrates travelled distance from successive pose positions.
// Updated from the pose callback, read from the control loop.
type Odometer struct {
	mu    sync.Mutex
	has   bool
	x, y  float64
	total float64
}

// Update feeds the next pose position.
func (o *Odometer) Update(x, y float64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.has {
		o.x, o.y = x, y
		o.has = true
		return
	}
	o.total += math.Hypot(x-o.x, y-o.y)
	o.x, o.y = x, y
}

// Total returns the accumulated distance in meters.
func (o *Odometer) Total() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.total
}
