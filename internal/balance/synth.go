package balance

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/m1oa/internal/dynamo"
)

// Influence returns the 6×335 matrix D whose column i is the load at the CG
// produced by a unit force on actuator i: [d; r×d].
func Influence(l *Layout) *mat.Dense {
	d := mat.NewDense(cols, rows, nil)
	for i := 0; i < rows; i++ {
		r, f := l.Pos[i], l.Dir[i]
		d.Set(0, i, f[0])
		d.Set(1, i, f[1])
		d.Set(2, i, f[2])
		d.Set(3, i, r[1]*f[2]-r[2]*f[1])
		d.Set(4, i, r[2]*f[0]-r[0]*f[2])
		d.Set(5, i, r[0]*f[1]-r[1]*f[0])
	}
	return d
}

// Synthesize computes K = Dᵀ(DDᵀ)⁻¹, the minimum-norm actuator force set that
// reproduces any six-axis load exactly.
func Synthesize(l *Layout) (*Matrix, error) {
	d := Influence(l)

	var ddt mat.Dense
	ddt.Mul(d, d.T())

	var x mat.Dense
	if err := x.Solve(&ddt, d); err != nil {
		return nil, fmt.Errorf("%w: %v", dynamo.ErrSingular, err)
	}

	m := &Matrix{}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			m.k[i][j] = x.At(j, i)
		}
	}
	return m, nil
}

// EquilibriumError returns max |D·K − I| over all entries.
func EquilibriumError(l *Layout, m *Matrix) float64 {
	var p mat.Dense
	p.Mul(Influence(l), m.Dense())

	worst := 0.0
	for i := 0; i < cols; i++ {
		for j := 0; j < cols; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			worst = math.Max(worst, math.Abs(p.At(i, j)-want))
		}
	}
	return worst
}

// NetLoad returns the CG load D·f produced by an actuator force vector.
func NetLoad(l *Layout, f *dynamo.Forces) dynamo.Load {
	var out dynamo.Load
	for i := 0; i < rows; i++ {
		r, d := l.Pos[i], l.Dir[i]
		fx, fy, fz := d[0]*f[i], d[1]*f[i], d[2]*f[i]
		out[0] += fx
		out[1] += fy
		out[2] += fz
		out[3] += r[1]*fz - r[2]*fy
		out[4] += r[2]*fx - r[0]*fz
		out[5] += r[0]*fy - r[1]*fx
	}
	return out
}

var (
	defaultOnce   sync.Once
	defaultMatrix *Matrix
	defaultLayout *Layout
)

// Default returns the balancing matrix of the built-in layout. It is computed
// once per process and shared.
func Default() *Matrix {
	defaultOnce.Do(func() {
		defaultLayout = DefaultLayout()
		m, err := Synthesize(defaultLayout)
		if err != nil {
			panic(err)
		}
		defaultMatrix = m
	})
	return defaultMatrix
}

// DefaultGeometry returns the layout the default matrix was built from.
func DefaultGeometry() *Layout {
	Default()
	return defaultLayout
}
