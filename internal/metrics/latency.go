package metrics

import (
	"time"

	"github.com/san-kum/m1oa/internal/sim"
)

// StepLatency tracks the mean step duration in microseconds; Max holds the
// worst case.
type StepLatency struct {
	total   time.Duration
	max     time.Duration
	samples int
}

func NewStepLatency() *StepLatency { return &StepLatency{} }

func (l *StepLatency) Name() string { return "step_latency_us" }

func (l *StepLatency) Observe(s *sim.Sample) {
	l.total += s.Elapsed
	if s.Elapsed > l.max {
		l.max = s.Elapsed
	}
	l.samples++
}

func (l *StepLatency) Value() float64 {
	if l.samples == 0 {
		return 0
	}
	return float64(l.total.Microseconds()) / float64(l.samples)
}

func (l *StepLatency) Max() time.Duration { return l.max }

func (l *StepLatency) Reset() {
	l.total = 0
	l.max = 0
	l.samples = 0
}

// Defaults returns the metric set attached to every run.
func Defaults(threshold float64) []sim.Metric {
	return []sim.Metric{
		NewControlEffort(),
		NewPeakForce(),
		NewBoundedness(threshold),
		NewEquilibriumResidual(nil),
		NewStepLatency(),
	}
}
