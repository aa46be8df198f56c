package control

import (
	"fmt"
	"sort"
)

// PID parameterizes a channel as a leaky integrator, a filtered derivative
// and a proportional path with first-order roll-off.
//
//	x1 ← Leak·x1 + Ts·u              integral
//	x2 ← (1−N·Ts)·x2 + N·Ts·u        derivative filter
//	x3 ← Rolloff·x3 + (1−Rolloff)·u  proportional roll-off
//	y   = Ki·x1 + Kd·N·(u−x2) + Kp·(Rolloff·x3 + (1−Rolloff)·u)
//
// With Kd == 0 the derivative filter is unused and realized with its pole
// at zero, so N may be left at 0.
type PID struct {
	Kp      float64 `yaml:"kp" json:"kp"`
	Ki      float64 `yaml:"ki" json:"ki"`
	Kd      float64 `yaml:"kd" json:"kd"`
	N       float64 `yaml:"n" json:"n"`
	Leak    float64 `yaml:"leak" json:"leak"`
	Rolloff float64 `yaml:"rolloff" json:"rolloff"`
	Ts      float64 `yaml:"ts" json:"ts"`
}

// DefaultPID returns the published coefficient set for a 100 Hz loop.
func DefaultPID() PID {
	return PID{
		Kp:      0.5,
		Ki:      1.0,
		Kd:      0.001,
		N:       20,
		Leak:    0.999,
		Rolloff: 0.5,
		Ts:      0.01,
	}
}

// Channel realizes the parameter block in state-space form.
func (p PID) Channel() Channel {
	nts := p.N * p.Ts
	pole := 1 - nts
	if p.Kd == 0 {
		nts, pole = 0, 0
	}
	return Channel{
		A: [order][order]float64{
			{p.Leak, 0, 0},
			{0, pole, 0},
			{0, 0, p.Rolloff},
		},
		B: [order]float64{p.Ts, nts, 1 - p.Rolloff},
		C: [order]float64{p.Ki, -p.Kd * p.N, p.Kp * p.Rolloff},
		D: p.Kp*(1-p.Rolloff) + p.Kd*p.N,
	}
}

// FirstResponse is the output on the first cycle from zero state per unit
// input, i.e. the channel feed-through.
func (p PID) FirstResponse() float64 {
	return p.Channel().D
}

func (p PID) Validate() error {
	if p.Ts <= 0 {
		return fmt.Errorf("control: ts must be positive, got %g", p.Ts)
	}
	if p.Kd != 0 && !(p.N*p.Ts > 0 && p.N*p.Ts < 2) {
		return fmt.Errorf("control: derivative filter n*ts must be in (0, 2) when kd is set, got %g", p.N*p.Ts)
	}
	if p.Leak < 0 || p.Leak >= 1 {
		return fmt.Errorf("control: leak must be in [0, 1), got %g", p.Leak)
	}
	if p.Rolloff < 0 || p.Rolloff >= 1 {
		return fmt.Errorf("control: rolloff must be in [0, 1), got %g", p.Rolloff)
	}
	return nil
}

// GetParams returns tunable parameters for live adjustment
func (p *PID) GetParams() map[string]float64 {
	return map[string]float64{
		"Kp":      p.Kp,
		"Ki":      p.Ki,
		"Kd":      p.Kd,
		"N":       p.N,
		"Leak":    p.Leak,
		"Rolloff": p.Rolloff,
	}
}

// SetParam adjusts a PID parameter
func (p *PID) SetParam(name string, value float64) error {
	switch name {
	case "Kp":
		p.Kp = value
	case "Ki":
		p.Ki = value
	case "Kd":
		p.Kd = value
	case "N":
		p.N = value
	case "Leak":
		p.Leak = value
	case "Rolloff":
		p.Rolloff = value
	default:
		names := make([]string, 0, 6)
		for k := range p.GetParams() {
			names = append(names, k)
		}
		sort.Strings(names)
		return fmt.Errorf("control: unknown parameter %q (have %v)", name, names)
	}
	return nil
}
