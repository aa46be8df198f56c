package control

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/m1oa/internal/dynamo"
)

const order = dynamo.CompensatorOrder

// ChannelState is the persistent state of one compensator channel.
type ChannelState [order]float64

// Channel is a SISO discrete compensator in state-space form.
type Channel struct {
	A [order][order]float64
	B [order]float64
	C [order]float64
	D float64
}

// Step returns y = C·x + D·u and advances x ← A·x + B·u.
func (c *Channel) Step(u float64, x *ChannelState) float64 {
	y := c.C[0]*x[0] + c.C[1]*x[1] + c.C[2]*x[2] + c.D*u

	var next ChannelState
	for i := 0; i < order; i++ {
		next[i] = c.A[i][0]*x[0] + c.A[i][1]*x[1] + c.A[i][2]*x[2] + c.B[i]*u
	}
	*x = next

	return y
}

func (c *Channel) dense() *mat.Dense {
	a := mat.NewDense(order, order, nil)
	for i := 0; i < order; i++ {
		for j := 0; j < order; j++ {
			a.Set(i, j, c.A[i][j])
		}
	}
	return a
}

// SpectralRadius is the largest eigenvalue magnitude of A.
func (c *Channel) SpectralRadius() float64 {
	var eig mat.Eigen
	if !eig.Factorize(c.dense(), mat.EigenNone) {
		return math.Inf(1)
	}
	rho := 0.0
	for _, v := range eig.Values(nil) {
		rho = math.Max(rho, cmplx.Abs(v))
	}
	return rho
}

// Stable reports whether every eigenvalue of A lies strictly inside the unit
// circle.
func (c *Channel) Stable() bool {
	return c.SpectralRadius() < 1
}

// DCGain returns C·(I−A)⁻¹·B + D, the steady-state output per unit of
// constant input.
func (c *Channel) DCGain() (float64, error) {
	x, err := c.SteadyState(1)
	if err != nil {
		return 0, err
	}
	return c.C[0]*x[0] + c.C[1]*x[1] + c.C[2]*x[2] + c.D, nil
}

// SteadyState returns the fixed point x* = (I−A)⁻¹·B·u for a constant input u.
func (c *Channel) SteadyState(u float64) (ChannelState, error) {
	var out ChannelState

	m := mat.NewDense(order, order, nil)
	m.Sub(eye(order), c.dense())

	b := mat.NewVecDense(order, []float64{c.B[0] * u, c.B[1] * u, c.B[2] * u})
	var x mat.VecDense
	if err := x.SolveVec(m, b); err != nil {
		return out, fmt.Errorf("control: no steady state: %w", err)
	}
	for i := range out {
		out[i] = x.AtVec(i)
	}
	return out, nil
}

func eye(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}
