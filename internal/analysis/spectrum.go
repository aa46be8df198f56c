package analysis

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/stat"
)

// Spectrum returns the one-sided amplitude spectrum of data sampled every ts
// seconds, after removing the mean. freqs is in Hz.
func Spectrum(data []float64, ts float64) (freqs, amp []float64) {
	n := len(data)
	if n < 2 {
		return nil, nil
	}

	mean := stat.Mean(data, nil)
	seq := make([]float64, n)
	for i, v := range data {
		seq[i] = v - mean
	}

	coeffs := fft.FFTReal(seq)[:n/2+1]

	freqs = make([]float64, len(coeffs))
	amp = make([]float64, len(coeffs))
	for i, c := range coeffs {
		freqs[i] = float64(i) / (float64(n) * ts)
		amp[i] = cmplx.Abs(c) / float64(n)
		if i > 0 && !(n%2 == 0 && i == n/2) {
			amp[i] *= 2
		}
	}
	return freqs, amp
}

// Dominant returns the frequency with the largest amplitude, ignoring DC.
func Dominant(freqs, amp []float64) (float64, float64) {
	best := 0
	for i := 1; i < len(amp); i++ {
		if best == 0 || amp[i] > amp[best] {
			best = i
		}
	}
	if best == 0 {
		return 0, 0
	}
	return freqs[best], amp[best]
}
