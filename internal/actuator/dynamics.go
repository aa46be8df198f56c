// Package actuator shapes each actuator's commanded force through its own
// first-order response.
package actuator

import (
	"fmt"
	"math"

	"github.com/san-kum/m1oa/internal/dynamo"
)

// State holds the previous output of every actuator.
type State [dynamo.NumActuators]float64

func (s *State) Reset() {
	*s = State{}
}

// Stage applies out = a·prev + (1−a)·(dist+offset) per actuator.
type Stage struct {
	pole [dynamo.NumActuators]float64
	gain [dynamo.NumActuators]float64
}

// PoleFromBandwidth maps a −3 dB bandwidth fc (Hz) at sample time ts (s) to a
// discrete pole exp(−2π·fc·ts).
func PoleFromBandwidth(fc, ts float64) float64 {
	return math.Exp(-2 * math.Pi * fc * ts)
}

// NewStage uses the same pole for every actuator.
func NewStage(pole float64) (*Stage, error) {
	var poles [dynamo.NumActuators]float64
	for i := range poles {
		poles[i] = pole
	}
	return NewStageWithPoles(poles)
}

// NewStageWithPoles accepts one pole per actuator, each in [0, 1).
func NewStageWithPoles(poles [dynamo.NumActuators]float64) (*Stage, error) {
	s := &Stage{}
	for i, a := range poles {
		if !(a >= 0 && a < 1) {
			return nil, fmt.Errorf("%w: actuator %d pole %g outside [0, 1)", dynamo.ErrUnstable, i, a)
		}
		s.pole[i] = a
		s.gain[i] = 1 - a
	}
	return s, nil
}

func (s *Stage) Pole(i int) float64 {
	return s.pole[i]
}

// Advance writes the resultant force for every actuator and stores it as the
// next state.
func (s *Stage) Advance(dist, offset *dynamo.Forces, st *State, out *dynamo.Forces) {
	for i := 0; i < dynamo.NumActuators; i++ {
		y := s.pole[i]*st[i] + s.gain[i]*(dist[i]+offset[i])
		st[i] = y
		out[i] = y
	}
}
