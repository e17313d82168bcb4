package scan

import (
	"math"
	"time"

	"github.com/kabirpuri/RecurrentLidarNet/internal/msgs"
)

// Source is anything that can provide range sweeps over time.
// Later you'll have: mock source, a real lidar driver, maybe a replay
// source from a recorded session.
type Source interface {
	Next() (msgs.LaserScan, error)
}

type mockSource struct {
	start    time.Time
	numBeams int
}

// NewMockSource creates a mock scan source that generates a smooth
// corridor-like sweep, useful for bench runs without a lidar attached.
func NewMockSource(numBeams int) Source {
	if numBeams < 1 {
		numBeams = 1081
	}
	return &mockSource{start: time.Now(), numBeams: numBeams}
}

func (m *mockSource) Next() (msgs.LaserScan, error) {
	elapsed := time.Since(m.start).Seconds()

	inc := (2 * math.Pi * 0.75) / float64(m.numBeams-1)
	ranges := make([]float32, m.numBeams)
	for i := range ranges {
		angle := -0.75*math.Pi + float64(i)*inc
		// A wandering corridor: walls ~3 m out, drifting with time.
		wall := 3.0 + 0.8*math.Sin(angle*2+elapsed*0.5)
		ranges[i] = float32(wall / math.Max(0.2, math.Abs(math.Cos(angle))))
	}

	return msgs.LaserScan{
		Stamp:          float64(time.Now().UnixNano()) / 1e9,
		AngleMin:       -0.75 * math.Pi,
		AngleMax:       0.75 * math.Pi,
		AngleIncrement: inc,
		Ranges:         ranges,
	}, nil
}
