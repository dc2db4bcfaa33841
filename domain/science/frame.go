// Package science holds the in-memory science data products consumed by the
// correction core. Axis order of Counts is (time, detector, pixel, energy).
package science

import (
	"fmt"
	"time"

	"stixdc/domain/core"
	"stixdc/domain/instrument"
)

// PixelCounts is one time bin of counts indexed [detector][pixel][energy].
type PixelCounts = [instrument.NumDetectors][instrument.NumPixels][instrument.NumEnergies]float64

// TriggerCounts is one time bin of trigger accumulator values.
type TriggerCounts = [instrument.NumTriggerGroups]float64

// Frame is a pixel-data science product: a time series of 4-D count arrays
// with their integration durations and trigger accumulators.
type Frame struct {
	RequestID core.RequestID
	// T0 is the start of the observation; Time is relative to it.
	T0 time.Time
	// Time holds bin centres in seconds since T0.
	Time []float64
	// TimeDel holds integration durations in seconds.
	TimeDel  []float64
	Counts   []PixelCounts
	Triggers []TriggerCounts
	// RCR is the rate control regime per time bin; empty when unknown.
	RCR           []int
	EnergyBinMask Mask
	// EnergyBins holds [low, high] keV per channel.
	EnergyBins [instrument.NumEnergies][2]float64
}

// NumTimeBins returns the number of time bins.
func (f *Frame) NumTimeBins() int {
	return len(f.Time)
}

// Validate checks the length invariant between time, timedel, counts and
// triggers, and that at least one channel is enabled.
func (f *Frame) Validate() error {
	n := len(f.Time)
	if n == 0 {
		return core.ErrEmptyFrame
	}
	if len(f.TimeDel) != n {
		return core.NewShapeError("timedel", len(f.TimeDel), n)
	}
	if len(f.Counts) != n {
		return core.NewShapeError("counts", len(f.Counts), n)
	}
	if len(f.Triggers) != n {
		return core.NewShapeError("triggers", len(f.Triggers), n)
	}
	if len(f.RCR) != 0 && len(f.RCR) != n {
		return core.NewShapeError("rcr", len(f.RCR), n)
	}
	for i, dt := range f.TimeDel {
		if dt <= 0 {
			return core.NewValidationError("timedel", fmt.Sprintf("non-positive duration %g at time bin %d", dt, i))
		}
	}
	if f.EnergyBinMask.Count() == 0 {
		return core.ErrEmptyMask
	}
	return nil
}

// Duration is the span from the start of the first bin to the end of the last.
func (f *Frame) Duration() float64 {
	n := len(f.Time)
	if n == 0 {
		return 0
	}
	return f.Time[n-1] - f.Time[0] + (f.TimeDel[0]+f.TimeDel[n-1])/2
}

// Spectrogram sums counts over detectors and pixels, giving (time, energy).
func (f *Frame) Spectrogram() [][instrument.NumEnergies]float64 {
	out := make([][instrument.NumEnergies]float64, len(f.Counts))
	for t := range f.Counts {
		out[t] = SumPixels(&f.Counts[t])
	}
	return out
}

// CountRateSpectrogram is the spectrogram divided by each bin's duration.
func (f *Frame) CountRateSpectrogram() [][instrument.NumEnergies]float64 {
	out := f.Spectrogram()
	for t := range out {
		for e := range out[t] {
			out[t][e] /= f.TimeDel[t]
		}
	}
	return out
}

// Spectrum sums counts over time, detectors and pixels.
func (f *Frame) Spectrum() [instrument.NumEnergies]float64 {
	var out [instrument.NumEnergies]float64
	for t := range f.Counts {
		s := SumPixels(&f.Counts[t])
		for e := range out {
			out[e] += s[e]
		}
	}
	return out
}

// MeanPixelRate returns counts summed over time divided by Duration, with
// the Poisson error sqrt(rate/duration).
func (f *Frame) MeanPixelRate() (rate, rateErr PixelCounts) {
	return MeanRate(f.Counts, f.Duration())
}

// EnergyRange returns the lowest and highest enabled channel.
func (f *Frame) EnergyRange() (int, int, error) {
	return f.EnergyBinMask.Range()
}

// QuickLookLightCurves sums counts into the quick-look energy bands,
// giving counts per band per time bin.
func (f *Frame) QuickLookLightCurves() [][5]float64 {
	bands := instrument.QuickLookBands()
	out := make([][5]float64, len(f.Counts))
	for t := range f.Counts {
		s := SumPixels(&f.Counts[t])
		for b, band := range bands {
			for e := band[0]; e < band[1]; e++ {
				out[t][b] += s[e]
			}
		}
	}
	return out
}

// TimeAt returns the absolute UTC time of bin centre i.
func (f *Frame) TimeAt(i int) time.Time {
	return f.T0.Add(time.Duration(f.Time[i] * float64(time.Second)))
}
