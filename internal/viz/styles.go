package viz

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444466")).
		Padding(0, 2)

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#00ffff"))

	Subtle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666688"))

	StatusRunning = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00ff88"))

	StatusPaused = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffaa00"))

	StatusFault = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ff4444"))

	MetricValue = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00ccff")).
			Bold(true)

	MetricLabel = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888899")).
			Width(22)

	KeyHint = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666688")).
		Italic(true)

	barPos = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ff88"))
	barNeg = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff6b6b"))
)

// SignedBar draws v/scale as a bar growing left or right from a center mark.
func SignedBar(v, scale float64, half int) string {
	n := 0
	if scale > 0 && !math.IsNaN(v) {
		n = int(math.Round(math.Min(math.Abs(v)/scale, 1) * float64(half)))
	}
	left := strings.Repeat(" ", half)
	right := strings.Repeat(" ", half)
	switch {
	case n == 0:
	case v < 0:
		left = strings.Repeat(" ", half-n) + barNeg.Render(strings.Repeat("█", n))
	default:
		right = barPos.Render(strings.Repeat("█", n)) + strings.Repeat(" ", half-n)
	}
	return left + "│" + right
}

// Sparkline renders values in the width given, sampling evenly.
func Sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return strings.Repeat("─", max(width, 0))
	}
	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}

	step := len(values) / width
	if step < 1 {
		step = 1
	}
	var b strings.Builder
	for i := 0; i < width && i*step < len(values); i++ {
		idx := int((values[i*step] - lo) / span * float64(len(chars)-1))
		idx = max(0, min(idx, len(chars)-1))
		b.WriteRune(chars[idx])
	}
	return b.String()
}

// Summary renders a titled key/value panel with keys sorted.
func Summary(title string, values map[string]float64) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(Title.Render(title) + "\n")
	for _, k := range keys {
		b.WriteString(MetricLabel.Render(k) + MetricValue.Render(fmt.Sprintf("%.6g", values[k])) + "\n")
	}
	return Panel.Render(strings.TrimSuffix(b.String(), "\n"))
}
