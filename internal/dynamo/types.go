package dynamo

import (
	"fmt"
	"math"
	"strings"
)

const (
	NumAxes          = 6
	NumActuators     = 335
	CompensatorOrder = 3
)

// Axis indexes a Load vector.
type Axis int

const (
	Fx Axis = iota
	Fy
	Fz
	Mx
	My
	Mz
)

var axisNames = [NumAxes]string{"Fx", "Fy", "Fz", "Mx", "My", "Mz"}

func (a Axis) String() string {
	if a < 0 || int(a) >= NumAxes {
		return fmt.Sprintf("Axis(%d)", int(a))
	}
	return axisNames[a]
}

// Axes returns the six axes in load-vector order.
func Axes() [NumAxes]Axis {
	return [NumAxes]Axis{Fx, Fy, Fz, Mx, My, Mz}
}

// ParseAxis accepts the axis name in any case ("fx", "Mz").
func ParseAxis(s string) (Axis, error) {
	for i, name := range axisNames {
		if strings.EqualFold(s, name) {
			return Axis(i), nil
		}
	}
	return 0, fmt.Errorf("dynamo: unknown axis %q", s)
}

// Load is a six-axis force/moment vector at the segment center of gravity.
type Load [NumAxes]float64

// Forces holds one value per actuator.
type Forces [NumActuators]float64

func LoadFromSlice(operand string, s []float64) (Load, error) {
	var l Load
	if err := CheckLen(operand, NumAxes, len(s)); err != nil {
		return l, err
	}
	copy(l[:], s)
	return l, nil
}

func ForcesFromSlice(operand string, s []float64) (Forces, error) {
	var f Forces
	if err := CheckLen(operand, NumActuators, len(s)); err != nil {
		return f, err
	}
	copy(f[:], s)
	return f, nil
}

// IsFinite reports whether every component is neither NaN nor Inf.
func (l *Load) IsFinite() bool {
	return allFinite(l[:])
}

func (f *Forces) IsFinite() bool {
	return allFinite(f[:])
}

// Norm is the Euclidean norm.
func (f *Forces) Norm() float64 {
	return norm(f[:])
}

func (l *Load) Norm() float64 {
	return norm(l[:])
}

// MaxAbs returns the largest absolute component.
func (f *Forces) MaxAbs() float64 {
	m := 0.0
	for _, v := range f {
		m = math.Max(m, math.Abs(v))
	}
	return m
}

// Sum adds the components in index order.
func (f *Forces) Sum() float64 {
	s := 0.0
	for _, v := range f {
		s += v
	}
	return s
}

func allFinite(s []float64) bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func norm(s []float64) float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}
