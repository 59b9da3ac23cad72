// Package export renders runs as standalone SVG, PNG and HTML files.
package export

import (
	"bufio"
	"fmt"
	"io"
	"math"

	"github.com/san-kum/diffbase/internal/sim"
)

const (
	trueColor     = "#00ff88"
	odometryColor = "#ff88ff"
)

type point struct{ X, Y float64 }

// TrajectorySVG writes the true path as a solid line and the odometry
// estimate as a dashed one, on a shared equal-aspect frame with +y up.
func TrajectorySVG(w io.Writer, samples []sim.Sample, width, height int) error {
	if len(samples) < 2 {
		return fmt.Errorf("need at least 2 samples, got %d", len(samples))
	}
	truth := make([]point, len(samples))
	est := make([]point, len(samples))
	for i, s := range samples {
		truth[i] = point{s.TruePose.X, s.TruePose.Y}
		est[i] = point{s.Pose.X, s.Pose.Y}
	}

	minX, maxX, minY, maxY := math.Inf(1), math.Inf(-1), math.Inf(1), math.Inf(-1)
	for _, p := range append(truth, est...) {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	rangeX := math.Max(maxX-minX, 0.5) * 1.2
	rangeY := math.Max(maxY-minY, 0.5) * 1.2
	scale := math.Min(float64(width)/rangeX, float64(height)/rangeY)
	cx, cy := (minX+maxX)/2, (minY+maxY)/2
	project := func(p point) (float64, float64) {
		return float64(width)/2 + (p.X-cx)*scale, float64(height)/2 - (p.Y-cy)*scale
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)
	writePath(bw, truth, project, trueColor, "")
	writePath(bw, est, project, odometryColor, ` stroke-dasharray="4 3"`)

	x, y := project(truth[0])
	fmt.Fprintf(bw, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"3\" fill=\"%s\"/>\n", x, y, trueColor)
	fmt.Fprintf(bw, "<text x=\"8\" y=\"16\" fill=\"%s\" font-family=\"monospace\" font-size=\"12\">true</text>\n", trueColor)
	fmt.Fprintf(bw, "<text x=\"8\" y=\"32\" fill=\"%s\" font-family=\"monospace\" font-size=\"12\">odometry</text>\n", odometryColor)
	bw.WriteString("</svg>\n")
	return bw.Flush()
}

func writePath(w *bufio.Writer, pts []point, project func(point) (float64, float64), color, extra string) {
	fmt.Fprintf(w, `<path fill="none" stroke="%s" stroke-width="1.5"%s d="`, color, extra)
	for i, p := range pts {
		x, y := project(p)
		cmd := "L"
		if i == 0 {
			cmd = "M"
		}
		fmt.Fprintf(w, "%s%.1f,%.1f ", cmd, x, y)
	}
	w.WriteString("\"/>\n")
}
