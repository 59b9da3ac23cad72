package export

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/san-kum/diffbase/internal/sim"
)

var (
	desiredColor = color.RGBA{R: 160, G: 160, B: 160, A: 255}
	issuedColor  = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	measureColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// VelocityPNG plots desired, issued and measured linear velocity against
// time and saves the figure to path. The format follows the extension.
func VelocityPNG(path string, samples []sim.Sample) error {
	if len(samples) < 2 {
		return fmt.Errorf("need at least 2 samples, got %d", len(samples))
	}
	p := plot.New()
	p.Title.Text = "Linear velocity"
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Velocity (m/s)"

	desired := make(plotter.XYs, len(samples))
	issued := make(plotter.XYs, len(samples))
	measured := make(plotter.XYs, len(samples))
	for i, s := range samples {
		desired[i] = plotter.XY{X: s.Time, Y: s.Desired.Linear}
		issued[i] = plotter.XY{X: s.Time, Y: s.Issued.Linear}
		measured[i] = plotter.XY{X: s.Time, Y: s.TrueTwist.Linear}
	}

	for _, series := range []struct {
		name   string
		pts    plotter.XYs
		color  color.Color
		dashed bool
	}{
		{"desired", desired, desiredColor, true},
		{"issued", issued, issuedColor, false},
		{"measured", measured, measureColor, false},
	} {
		line, err := plotter.NewLine(series.pts)
		if err != nil {
			return fmt.Errorf("%s line: %w", series.name, err)
		}
		line.Color = series.color
		line.Width = vg.Points(1)
		if series.dashed {
			line.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		}
		p.Add(line)
		p.Legend.Add(series.name, line)
	}
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	return p.Save(10*vg.Inch, 4*vg.Inch, path)
}
