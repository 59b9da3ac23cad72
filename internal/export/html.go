package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/san-kum/diffbase/internal/sim"
)

// VelocityHTML writes an interactive page with one chart per axis of
// desired, issued, odometry and true velocity over time.
func VelocityHTML(w io.Writer, title string, samples []sim.Sample) error {
	if len(samples) == 0 {
		return fmt.Errorf("no samples")
	}
	times := make([]string, len(samples))
	for i, s := range samples {
		times[i] = strconv.FormatFloat(s.Time, 'f', 2, 64)
	}

	linear := newVelocityChart(title+" linear", "m/s", times)
	angular := newVelocityChart(title+" angular", "rad/s", times)
	for _, series := range []struct {
		name string
		get  func(sim.Sample) (float64, float64)
	}{
		{"desired", func(s sim.Sample) (float64, float64) { return s.Desired.Linear, s.Desired.Angular }},
		{"issued", func(s sim.Sample) (float64, float64) { return s.Issued.Linear, s.Issued.Angular }},
		{"odometry", func(s sim.Sample) (float64, float64) { return s.Twist.Linear, s.Twist.Angular }},
		{"true", func(s sim.Sample) (float64, float64) { return s.TrueTwist.Linear, s.TrueTwist.Angular }},
	} {
		lin := make([]opts.LineData, len(samples))
		ang := make([]opts.LineData, len(samples))
		for i, s := range samples {
			l, a := series.get(s)
			lin[i] = opts.LineData{Value: l}
			ang[i] = opts.LineData{Value: a}
		}
		lineOpts := charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)})
		linear.AddSeries(series.name, lin, lineOpts)
		angular.AddSeries(series.name, ang, lineOpts)
	}

	page := components.NewPage()
	page.SetPageTitle(title)
	page.AddCharts(linear, angular)
	return page.Render(w)
}

func newVelocityChart(title, unit string, times []string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1000px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "t (s)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: unit}),
	)
	line.SetXAxis(times)
	return line
}
