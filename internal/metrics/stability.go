package metrics

import (
	"math"

	"github.com/san-kum/m1oa/internal/sim"
)

// Boundedness is the fraction of ticks on which every actuator force stayed
// finite and within the threshold.
type Boundedness struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewBoundedness(threshold float64) *Boundedness {
	return &Boundedness{
		name:      "boundedness",
		threshold: threshold,
	}
}

func (b *Boundedness) Name() string {
	return b.name
}

func (b *Boundedness) Observe(s *sim.Sample) {
	b.samples++
	for _, val := range s.Forces {
		if !(math.Abs(val) <= b.threshold) {
			b.violations++
			break
		}
	}
}

func (b *Boundedness) Value() float64 {
	if b.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(b.violations)/float64(b.samples)
}

func (b *Boundedness) Reset() {
	b.violations = 0
	b.samples = 0
}
