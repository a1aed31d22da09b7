package analysis

import (
	"math"
	"math/cmplx"

	"github.com/san-kum/orbitekf/internal/dynamo"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// PowerSpectrum returns |F_k| for k = 0..n/2 after removing the mean.
func PowerSpectrum(data []float64) []float64 {
	if len(data) < 2 {
		return nil
	}

	centered := make([]float64, len(data))
	copy(centered, data)
	floats.AddConst(-stat.Mean(data, nil), centered)

	coeffs := fourier.NewFFT(len(data)).Coefficients(nil, centered)
	ps := make([]float64, len(coeffs))
	for i, c := range coeffs {
		ps[i] = cmplx.Abs(c)
	}
	return ps
}

// DominantPeriod returns the period of the strongest spectral line of a
// signal sampled every dt, or 0 when the signal carries no oscillation.
func DominantPeriod(data []float64, dt float64) float64 {
	ps := PowerSpectrum(data)
	if len(ps) < 2 || dt <= 0 {
		return 0
	}

	k := floats.MaxIdx(ps[1:]) + 1
	if ps[k] == 0 {
		return 0
	}
	return float64(len(data)) * dt / float64(k)
}

// Resample interpolates (times, values) linearly onto n evenly spaced
// samples spanning the same interval. times must be increasing.
func Resample(times, values []float64, n int) ([]float64, []float64) {
	if len(times) < 2 || len(times) != len(values) || n < 2 {
		return nil, nil
	}

	t0, t1 := times[0], times[len(times)-1]
	grid := make([]float64, n)
	floats.Span(grid, t0, t1)

	out := make([]float64, n)
	j := 0
	for i, t := range grid {
		for j < len(times)-2 && times[j+1] < t {
			j++
		}
		span := times[j+1] - times[j]
		if span == 0 {
			out[i] = values[j]
			continue
		}
		w := (t - times[j]) / span
		out[i] = values[j] + w*(values[j+1]-values[j])
	}
	return grid, out
}

// KeplerPeriod returns 2π√(a³/μ) with a from the vis-viva equation.
// Unbound states return dynamo.ErrInvalidState.
func KeplerPeriod(x dynamo.State, mu float64) (float64, error) {
	if len(x) < 6 || mu <= 0 {
		return 0, dynamo.ErrInvalidState
	}
	r := floats.Norm(x.Position(), 2)
	v := floats.Norm(x.Velocity(), 2)
	if r == 0 {
		return 0, dynamo.ErrSingularPosition
	}

	energy := 0.5*v*v - mu/r
	if energy >= 0 {
		return 0, dynamo.ErrInvalidState
	}
	a := -mu / (2 * energy)
	return 2 * math.Pi * math.Sqrt(a*a*a/mu), nil
}
