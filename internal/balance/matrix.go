package balance

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/m1oa/internal/dynamo"
)

const (
	rows = dynamo.NumActuators
	cols = dynamo.NumAxes
)

// Matrix is the balancing gain table. It is never mutated after construction.
type Matrix struct {
	k [rows][cols]float64
}

// New copies a row-major table of 335 rows by 6 columns.
func New(table [][]float64) (*Matrix, error) {
	if err := dynamo.CheckLen("gain matrix rows", rows, len(table)); err != nil {
		return nil, err
	}
	m := &Matrix{}
	for i, r := range table {
		if err := dynamo.CheckLen(fmt.Sprintf("gain matrix row %d", i), cols, len(r)); err != nil {
			return nil, err
		}
		copy(m.k[i][:], r)
	}
	return m, nil
}

// FromFlat reads 2010 values in row-major order.
func FromFlat(values []float64) (*Matrix, error) {
	if err := dynamo.CheckLen("gain matrix", rows*cols, len(values)); err != nil {
		return nil, err
	}
	m := &Matrix{}
	for i := 0; i < rows; i++ {
		copy(m.k[i][:], values[i*cols:(i+1)*cols])
	}
	return m, nil
}

func (m *Matrix) At(i, j int) float64 {
	return m.k[i][j]
}

func (m *Matrix) Row(i int) [cols]float64 {
	return m.k[i]
}

// Column returns the per-actuator distribution of a unit correction on axis a.
func (m *Matrix) Column(a dynamo.Axis) dynamo.Forces {
	var f dynamo.Forces
	for i := range f {
		f[i] = m.k[i][a]
	}
	return f
}

// Flat returns the table in row-major order.
func (m *Matrix) Flat() []float64 {
	out := make([]float64, 0, rows*cols)
	for i := range m.k {
		out = append(out, m.k[i][:]...)
	}
	return out
}

// Dense returns a 335×6 gonum copy for offline analysis.
func (m *Matrix) Dense() *mat.Dense {
	return mat.NewDense(rows, cols, m.Flat())
}

// Distribute writes out[i] = Σ_j K[i][j]·corr[j], j ascending.
// The explicit conversions round each product and keep the compiler from
// fusing multiply-add, so every platform yields the same bits.
func (m *Matrix) Distribute(corr *dynamo.Load, out *dynamo.Forces) {
	for i := 0; i < rows; i++ {
		r := &m.k[i]
		s := float64(r[0] * corr[0])
		s = s + float64(r[1]*corr[1])
		s = s + float64(r[2]*corr[2])
		s = s + float64(r[3]*corr[3])
		s = s + float64(r[4]*corr[4])
		s = s + float64(r[5]*corr[5])
		out[i] = s
	}
}
