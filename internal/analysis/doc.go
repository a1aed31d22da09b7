// Package analysis inspects propagated trajectories.
//
//   - [PowerSpectrum]: one-sided amplitude spectrum of a uniformly sampled signal
//   - [DominantPeriod]: period of the strongest non-DC spectral line
//   - [Resample]: linear interpolation onto a uniform time grid
//   - [KeplerPeriod]: two-body period from a single state
//
// Comparing the dominant period of X(t) with the osculating Kepler period
// gives a quick check that a run is physically sensible:
//
//	times, xs := analysis.Resample(result.Times, column, 512)
//	p := analysis.DominantPeriod(xs, times[1]-times[0])
//	k, _ := analysis.KeplerPeriod(result.States[0], mu)
package analysis
