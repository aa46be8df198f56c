package balance

import (
	"math"

	"github.com/san-kum/m1oa/internal/dynamo"
)

// Geometry of the built-in outer-segment layout.
const (
	SegmentRadius = 4.1   // m, outermost actuator radius
	ActuatorDepth = -0.35 // m, actuator attachment plane below the CG
	LateralTilt   = math.Pi / 6
)

// Layout places every actuator and gives its unit force direction, both in
// the segment CG frame.
type Layout struct {
	Pos [dynamo.NumActuators][3]float64
	Dir [dynamo.NumActuators][3]float64
}

// DefaultLayout spreads the actuators on a sunflower spiral over the segment.
// Every fourth actuator pushes axially; the others are tilted toward +x, +y,
// or tangentially so the set spans all six axes.
func DefaultLayout() *Layout {
	l := &Layout{}
	golden := math.Pi * (3 - math.Sqrt(5))
	s, c := math.Sin(LateralTilt), math.Cos(LateralTilt)

	for i := 0; i < dynamo.NumActuators; i++ {
		r := SegmentRadius * math.Sqrt((float64(i)+0.5)/dynamo.NumActuators)
		phi := float64(i) * golden
		l.Pos[i] = [3]float64{r * math.Cos(phi), r * math.Sin(phi), ActuatorDepth}

		switch i % 4 {
		case 0:
			l.Dir[i] = [3]float64{0, 0, 1}
		case 1:
			l.Dir[i] = [3]float64{s, 0, c}
		case 2:
			l.Dir[i] = [3]float64{0, s, c}
		case 3:
			l.Dir[i] = [3]float64{-math.Sin(phi) * s, math.Cos(phi) * s, c}
		}
	}
	return l
}
