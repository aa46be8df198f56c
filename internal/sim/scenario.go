package sim

import (
	"math"
	"math/rand"

	"github.com/san-kum/m1oa/internal/dynamo"
)

// Zero feeds all-zero inputs.
type Zero struct{}

func (Zero) Name() string { return "zero" }

func (Zero) Inputs(_ int, _ float64, load *dynamo.Load, offset *dynamo.Forces) {
	*load = dynamo.Load{}
	*offset = dynamo.Forces{}
}

// Constant holds the same load and a uniform offset command on every tick.
type Constant struct {
	Load   dynamo.Load
	Offset float64
}

func (Constant) Name() string { return "const" }

func (c Constant) Inputs(_ int, _ float64, load *dynamo.Load, offset *dynamo.Forces) {
	*load = c.Load
	for i := range offset {
		offset[i] = c.Offset
	}
}

// StepInput applies Load from tick At onward.
type StepInput struct {
	Load dynamo.Load
	At   int
}

func (StepInput) Name() string { return "step" }

func (s StepInput) Inputs(tick int, _ float64, load *dynamo.Load, offset *dynamo.Forces) {
	*offset = dynamo.Forces{}
	if tick < s.At {
		*load = dynamo.Load{}
		return
	}
	*load = s.Load
}

// Sine drives every axis with Amplitude·sin(2π·Hz·t).
type Sine struct {
	Amplitude dynamo.Load
	Hz        float64
}

func (Sine) Name() string { return "sine" }

func (s Sine) Inputs(_ int, t float64, load *dynamo.Load, offset *dynamo.Forces) {
	*offset = dynamo.Forces{}
	v := math.Sin(2 * math.Pi * s.Hz * t)
	for i := range load {
		load[i] = s.Amplitude[i] * v
	}
}

// Noise draws Gaussian loads and offsets from a seeded source, so the same
// seed gives the same input sequence.
type Noise struct {
	Sigma       float64
	OffsetSigma float64
	rng         *rand.Rand
}

func NewNoise(sigma, offsetSigma float64, seed int64) *Noise {
	return &Noise{Sigma: sigma, OffsetSigma: offsetSigma, rng: rand.New(rand.NewSource(seed))}
}

func (*Noise) Name() string { return "noise" }

func (n *Noise) Inputs(_ int, _ float64, load *dynamo.Load, offset *dynamo.Forces) {
	for i := range load {
		load[i] = n.rng.NormFloat64() * n.Sigma
	}
	for i := range offset {
		offset[i] = n.rng.NormFloat64() * n.OffsetSigma
	}
}
