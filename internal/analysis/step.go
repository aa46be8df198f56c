package analysis

import "math"

type StepResponse struct {
	Final float64
	Peak  float64
	// Overshoot is (Peak-Final)/|Final|; zero when the response never passes
	// its final value.
	Overshoot float64
	// RiseTime is the time from 10% to 90% of Final.
	RiseTime float64
	// SettlingTime is the first time after which the response stays within
	// tol·|Final| of Final. It is NaN when the response never settles.
	SettlingTime float64
}

// StepInfo measures a step response sampled every ts seconds, taking the last
// sample as the final value.
func StepInfo(y []float64, ts, tol float64) StepResponse {
	if len(y) == 0 {
		return StepResponse{SettlingTime: math.NaN()}
	}
	final := y[len(y)-1]
	r := StepResponse{Final: final, Peak: y[0]}

	sign := 1.0
	if final < 0 {
		sign = -1
	}
	for _, v := range y {
		if sign*v > sign*r.Peak {
			r.Peak = v
		}
	}
	if final != 0 && sign*(r.Peak-final) > 0 {
		r.Overshoot = sign * (r.Peak - final) / math.Abs(final)
	}

	t10, t90 := -1, -1
	for i, v := range y {
		if t10 < 0 && sign*v >= 0.1*math.Abs(final) {
			t10 = i
		}
		if t90 < 0 && sign*v >= 0.9*math.Abs(final) {
			t90 = i
			break
		}
	}
	if t10 >= 0 && t90 >= 0 {
		r.RiseTime = float64(t90-t10) * ts
	}

	band := tol * math.Abs(final)
	settled := -1
	for i := len(y) - 1; i >= 0; i-- {
		if !(math.Abs(y[i]-final) <= band) {
			break
		}
		settled = i
	}
	r.SettlingTime = math.NaN()
	if settled >= 0 {
		r.SettlingTime = float64(settled) * ts
	}
	return r
}
