package cell

import (
	"github.com/san-kum/m1oa/internal/actuator"
	"github.com/san-kum/m1oa/internal/control"
	"github.com/san-kum/m1oa/internal/dynamo"
)

// DefaultBandwidth is the actuator force-response bandwidth in Hz.
const DefaultBandwidth = 10.0

// Params fixes every coefficient of a cell.
type Params struct {
	Compensators  [dynamo.NumAxes]control.Channel
	ActuatorPoles [dynamo.NumActuators]float64
}

// DefaultParams uses the default PID on every axis and a 10 Hz actuator
// response at the PID sample time.
func DefaultParams() Params {
	pid := control.DefaultPID()
	return Params{
		Compensators:  control.UniformPID(pid),
		ActuatorPoles: UniformPoles(actuator.PoleFromBandwidth(DefaultBandwidth, pid.Ts)),
	}
}

func UniformPoles(a float64) [dynamo.NumActuators]float64 {
	var p [dynamo.NumActuators]float64
	for i := range p {
		p[i] = a
	}
	return p
}
