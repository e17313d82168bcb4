package control

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sync"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/kabirpuri/RecurrentLidarNet/internal/drive"
)

// Trace accumulates the published commands of a run for the shutdown plot.
type Trace struct {
	mu    sync.Mutex
	ts    []float64
	speed []float64
	steer []float64
}

// NewTrace creates an empty trace.
func NewTrace() *Trace {
	return &Trace{}
}

// Append records one published command at run time t (seconds).
func (tr *Trace) Append(t float64, cmd drive.Command) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.ts = append(tr.ts, t)
	tr.speed = append(tr.speed, cmd.Speed)
	tr.steer = append(tr.steer, cmd.SteeringAngle)
}

// Len returns the number of recorded commands.
func (tr *Trace) Len() int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return len(tr.ts)
}

// SavePlot renders the speed and steering series as two stacked panels and
// writes a PNG to path, creating parent directories as needed.
func (tr *Trace) SavePlot(path string) error {
	tr.mu.Lock()
	speed := append([]float64(nil), tr.speed...)
	steer := append([]float64(nil), tr.steer...)
	tr.mu.Unlock()

	pSpeed := plot.New()
	pSpeed.Y.Label.Text = "Speed [m/s]"
	pSpeed.Add(plotter.NewGrid())

	pSteer := plot.New()
	pSteer.X.Label.Text = "Timestep"
	pSteer.Y.Label.Text = "Steering [rad]"
	pSteer.Add(plotter.NewGrid())

	speedLine, err := plotter.NewLine(indexedXYs(speed))
	if err != nil {
		return fmt.Errorf("build speed series: %w", err)
	}
	pSpeed.Add(speedLine)
	pSpeed.Legend.Add("Speed [m/s]", speedLine)

	steerLine, err := plotter.NewLine(indexedXYs(steer))
	if err != nil {
		return fmt.Errorf("build steering series: %w", err)
	}
	steerLine.Color = color.RGBA{R: 0xff, G: 0xa5, A: 0xff}
	pSteer.Add(steerLine)
	pSteer.Legend.Add("Steering Angle [rad]", steerLine)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create figures dir: %w", err)
	}

	img := vgimg.New(10*vg.Inch, 5*vg.Inch)
	dc := draw.New(img)
	plots := [][]*plot.Plot{{pSpeed}, {pSteer}}
	canvases := plot.Align(plots, draw.Tiles{Rows: 2, Cols: 1}, dc)
	pSpeed.Draw(canvases[0][0])
	pSteer.Draw(canvases[1][0])

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create plot file: %w", err)
	}
	defer f.Close()

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(f); err != nil {
		return fmt.Errorf("write plot: %w", err)
	}
	return nil
}

func indexedXYs(values []float64) plotter.XYs {
	pts := make(plotter.XYs, len(values))
	for i, v := range values {
		pts[i] = plotter.XY{X: float64(i), Y: v}
	}
	return pts
}
