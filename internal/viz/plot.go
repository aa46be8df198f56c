package viz

import (
	"fmt"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/m1oa/internal/dynamo"
)

// Plot renders one series. Series longer than width are decimated by
// asciigraph itself.
func Plot(data []float64, caption string, width, height int) string {
	if len(data) == 0 {
		return Subtle.Render("(no samples)")
	}
	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}

// PlotMany overlays several series with a color per series.
func PlotMany(series [][]float64, caption string, width, height int) string {
	if len(series) == 0 || len(series[0]) == 0 {
		return Subtle.Render("(no samples)")
	}
	colors := []asciigraph.AnsiColor{
		asciigraph.Red, asciigraph.Green, asciigraph.Blue,
		asciigraph.Yellow, asciigraph.Cyan, asciigraph.Magenta,
	}
	return asciigraph.PlotMany(series,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(colors[:min(len(series), len(colors))]...),
	)
}

// AxisSeries pulls one axis out of a load trace.
func AxisSeries(trace []dynamo.Load, a dynamo.Axis) []float64 {
	out := make([]float64, len(trace))
	for i := range trace {
		out[i] = trace[i][a]
	}
	return out
}

// Column pulls column k out of a row-major trace.
func Column(rows [][]float64, k int) []float64 {
	out := make([]float64, 0, len(rows))
	for _, r := range rows {
		if k < len(r) {
			out = append(out, r[k])
		}
	}
	return out
}

// Caption formats the standard plot caption.
func Caption(what string, ticks int, ts float64) string {
	return fmt.Sprintf("%s (%d ticks, %.1f s)", what, ticks, float64(ticks)*ts)
}
