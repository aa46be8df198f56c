package metrics

import (
	"math"

	"github.com/san-kum/m1oa/internal/balance"
	"github.com/san-kum/m1oa/internal/dynamo"
	"github.com/san-kum/m1oa/internal/sim"
)

// EquilibriumResidual reports max_j |(D·(f − offset))_j − correction_j| on the
// last observed tick, where D is the influence matrix of the layout. It goes
// to zero once the actuators have settled on a constant correction.
type EquilibriumResidual struct {
	layout   *balance.Layout
	scratch  dynamo.Forces
	residual float64
}

func NewEquilibriumResidual(l *balance.Layout) *EquilibriumResidual {
	if l == nil {
		l = balance.DefaultGeometry()
	}
	return &EquilibriumResidual{layout: l}
}

func (e *EquilibriumResidual) Name() string { return "equilibrium_residual" }

func (e *EquilibriumResidual) Observe(s *sim.Sample) {
	for i := range e.scratch {
		e.scratch[i] = s.Forces[i] - s.Offset[i]
	}
	net := balance.NetLoad(e.layout, &e.scratch)
	worst := 0.0
	for j := range net {
		worst = math.Max(worst, math.Abs(net[j]-s.Correction[j]))
	}
	e.residual = worst
}

func (e *EquilibriumResidual) Value() float64 { return e.residual }

func (e *EquilibriumResidual) Reset() { e.residual = 0 }
