package viz

import (
	"math"
	"strings"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const brailleBlank = 0x2800

type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Set lights the sub-pixel at (x, y). The canvas is Width*2 by Height*4
// sub-pixels; points outside it are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = brailleBlank
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Viewport maps planar world coordinates in meters onto a canvas with equal
// scale on both axes, +y up.
type Viewport struct {
	minX, minY float64
	scale      float64
	rows       int
}

// Fit returns a viewport that shows every point with a margin. Degenerate
// extents fall back to a one meter window.
func Fit(c *Canvas, xs, ys []float64) Viewport {
	minX, maxX, minY, maxY := -0.5, 0.5, -0.5, 0.5
	if len(xs) > 0 {
		minX, maxX = bounds(xs)
		minY, maxY = bounds(ys)
	}
	spanX, spanY := math.Max(maxX-minX, 0.5), math.Max(maxY-minY, 0.5)
	cx, cy := (minX+maxX)/2, (minY+maxY)/2
	spanX, spanY = spanX*1.2, spanY*1.2

	w, h := float64(c.Width*2-1), float64(c.Height*4-1)
	scale := math.Min(w/spanX, h/spanY)
	return Viewport{
		minX:  cx - w/scale/2,
		minY:  cy - h/scale/2,
		scale: scale,
		rows:  c.Height * 4,
	}
}

func (v Viewport) Project(x, y float64) (int, int) {
	px := int(math.Round((x - v.minX) * v.scale))
	py := v.rows - 1 - int(math.Round((y-v.minY)*v.scale))
	return px, py
}

func bounds(vals []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	return lo, hi
}
