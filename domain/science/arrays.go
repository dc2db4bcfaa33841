package science

import (
	"math"

	"stixdc/domain/instrument"
)

// SumPixels sums one time bin over detectors and pixels.
func SumPixels(c *PixelCounts) [instrument.NumEnergies]float64 {
	var out [instrument.NumEnergies]float64
	for d := range c {
		for p := range c[d] {
			for e, v := range c[d][p] {
				out[e] += v
			}
		}
	}
	return out
}

// MeanRate divides counts summed over time by duration and returns the
// Poisson error sqrt(rate/duration) per cell.
func MeanRate(counts []PixelCounts, duration float64) (rate, rateErr PixelCounts) {
	if duration <= 0 {
		return rate, rateErr
	}
	for t := range counts {
		for d := range counts[t] {
			for p := range counts[t][d] {
				for e, v := range counts[t][d][p] {
					rate[d][p][e] += v
				}
			}
		}
	}
	for d := range rate {
		for p := range rate[d] {
			for e := range rate[d][p] {
				rate[d][p][e] /= duration
				rateErr[d][p][e] = math.Sqrt(math.Max(rate[d][p][e], 0) / duration)
			}
		}
	}
	return rate, rateErr
}
