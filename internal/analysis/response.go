package analysis

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/m1oa/internal/control"
	"github.com/san-kum/m1oa/internal/dynamo"
)

// FrequencyResponse evaluates H(z) = C·(zI−A)⁻¹·B + D of ch on the unit circle
// at each frequency in hz, for sample time ts. A frequency where zI−A is
// singular yields complex infinity.
func FrequencyResponse(ch control.Channel, hz []float64, ts float64) []complex128 {
	const n = dynamo.CompensatorOrder

	// (zI−A)·x = B in real form: [Re −Im; Im Re]·[xr; xi] = [B; 0].
	m := mat.NewDense(2*n, 2*n, nil)
	b := mat.NewVecDense(2*n, nil)
	for i := 0; i < n; i++ {
		b.SetVec(i, ch.B[i])
	}
	var x mat.VecDense

	out := make([]complex128, len(hz))
	for k, f := range hz {
		z := cmplx.Exp(complex(0, 2*math.Pi*f*ts))
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				re := -ch.A[i][j]
				im := 0.0
				if i == j {
					re += real(z)
					im = imag(z)
				}
				m.Set(i, j, re)
				m.Set(i, j+n, -im)
				m.Set(i+n, j, im)
				m.Set(i+n, j+n, re)
			}
		}

		if err := x.SolveVec(m, b); err != nil {
			out[k] = cmplx.Inf()
			continue
		}
		h := complex(ch.D, 0)
		for i := 0; i < n; i++ {
			h += complex(ch.C[i], 0) * complex(x.AtVec(i), x.AtVec(i+n))
		}
		out[k] = h
	}
	return out
}

// Bode converts a response to gain in dB and phase in degrees.
func Bode(h []complex128) (gainDB, phaseDeg []float64) {
	gainDB = make([]float64, len(h))
	phaseDeg = make([]float64, len(h))
	for i, v := range h {
		gainDB[i] = 20 * math.Log10(cmplx.Abs(v))
		phaseDeg[i] = cmplx.Phase(v) * 180 / math.Pi
	}
	return gainDB, phaseDeg
}

// LogSpace returns n frequencies spaced logarithmically over [lo, hi].
func LogSpace(lo, hi float64, n int) []float64 {
	if n < 2 {
		return []float64{lo}
	}
	out := make([]float64, n)
	a, b := math.Log10(lo), math.Log10(hi)
	for i := range out {
		out[i] = math.Pow(10, a+(b-a)*float64(i)/float64(n-1))
	}
	return out
}
