// Package drive holds the actuation command type and the manual/autonomous
// mode toggle.
package drive

import "sync"

// Command is one actuation output in physical units.
type Command struct {
	Speed         float64 // m/s
	SteeringAngle float64 // rad
}

// Transition reports what a toggle step caused.
type Transition int

const (
	// NoChange: the input did not flip the mode.
	NoChange Transition = iota
	// EnteredManual: a rising edge switched into manual override; recording
	// should start.
	EnteredManual
	// LeftManual: a rising edge switched back to autonomous; recording
	// should stop.
	LeftManual
)

// Toggle is the edge detector behind the mode button. Only a 0→1 transition
// flips the mode; repeated 1s and any value of 0 are no-ops. Safe for
// concurrent use since the trigger callback and the control loop run on
// separate goroutines.
type Toggle struct {
	mu     sync.Mutex
	prev   int
	manual bool
}

// Step feeds one raw button sample and reports the resulting transition.
func (t *Toggle) Step(button int) Transition {
	t.mu.Lock()
	defer t.mu.Unlock()

	rising := button == 1 && t.prev != 1
	t.prev = button
	if !rising {
		return NoChange
	}

	t.manual = !t.manual
	if t.manual {
		return EnteredManual
	}
	return LeftManual
}

// Manual reports whether manual override is active.
func (t *Toggle) Manual() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.manual
}
