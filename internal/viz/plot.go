package viz

import (
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/diffbase/internal/sim"
)

var seriesColors = []asciigraph.AnsiColor{asciigraph.Cyan, asciigraph.Yellow, asciigraph.Magenta, asciigraph.Green}

// PlotSeries renders one or more aligned series as a line chart.
func PlotSeries(series [][]float64, names []string, caption string, width, height int) string {
	opts := []asciigraph.Option{
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(seriesColors[:min(len(series), len(seriesColors))]...),
	}
	if len(names) > 0 {
		opts = append(opts, asciigraph.SeriesLegends(names...))
	}
	return asciigraph.PlotMany(series, opts...)
}

// Trajectory draws the true path of a run as a line and the odometry
// estimate as dots.
func Trajectory(samples []sim.Sample, width, height int) string {
	c := NewCanvas(width, height)
	drawPaths(c, samples)
	return c.String()
}

func drawPaths(c *Canvas, samples []sim.Sample) {
	if len(samples) == 0 {
		return
	}
	xs := make([]float64, 0, 2*len(samples))
	ys := make([]float64, 0, 2*len(samples))
	for _, s := range samples {
		xs = append(xs, s.TruePose.X, s.Pose.X)
		ys = append(ys, s.TruePose.Y, s.Pose.Y)
	}
	vp := Fit(c, xs, ys)

	px, py := vp.Project(samples[0].TruePose.X, samples[0].TruePose.Y)
	for _, s := range samples[1:] {
		x, y := vp.Project(s.TruePose.X, s.TruePose.Y)
		c.DrawLine(px, py, x, y)
		px, py = x, y
	}
	for i, s := range samples {
		if i%4 == 0 {
			c.Set(vp.Project(s.Pose.X, s.Pose.Y))
		}
	}
}
