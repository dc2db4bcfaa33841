// Package background subtracts a time-averaged background observation from
// a signal observation, pixel by pixel.
package background

import (
	"context"
	"fmt"
	"math"
	"time"

	"stixdc/domain/core"
	"stixdc/domain/instrument"
	"stixdc/domain/science"
	apperrors "stixdc/internal/errors"
	"stixdc/internal/livetime"
)

// Result holds background-subtracted counts of the signal frame. Channels
// outside the signal mask are zero.
type Result struct {
	Signal *science.Frame
	// BackgroundRate is the dead-time corrected mean background rate per
	// pixel channel (counts/s) and RateErr its counting error.
	BackgroundRate science.PixelCounts
	RateErr        science.PixelCounts
	// BackgroundCounts is the background expected in each signal bin.
	BackgroundCounts []science.PixelCounts
	Counts           []science.PixelCounts
	CountsErr        []science.PixelCounts
	// Spectrogram is Counts summed over detectors and pixels.
	Spectrogram [][instrument.NumEnergies]float64
}

// Subtract removes the background rate from every time bin of signal. The
// background mask must enable every channel the signal mask enables.
func Subtract(ctx context.Context, signal, bkg *science.Frame, corrector *livetime.Corrector) (*Result, error) {
	if signal == nil || bkg == nil {
		return nil, apperrors.InvalidInput("signal and background frames are required")
	}
	if !bkg.EnergyBinMask.Covers(signal.EnergyBinMask) {
		return nil, apperrors.DataInconsistent(core.ErrMaskNotCovered)
	}
	if err := signal.Validate(); err != nil {
		return nil, apperrors.DataInconsistent(fmt.Errorf("signal: %w", err))
	}
	if err := bkg.Validate(); err != nil {
		return nil, apperrors.DataInconsistent(fmt.Errorf("background: %w", err))
	}

	bkgCounts := bkg.Counts
	if corrector != nil {
		lt, err := corrector.Correct(ctx, livetime.InputFromFrame(bkg))
		if err != nil {
			return nil, apperrors.Wrap(err, "background live-time correction")
		}
		if err := lt.Err(); err != nil {
			return nil, apperrors.Wrap(err, "background live-time correction")
		}
		bkgCounts = lt.CorrectedCounts
	}
	rate, rateErr := science.MeanRate(bkgCounts, bkg.Duration())

	n := signal.NumTimeBins()
	mask := signal.EnergyBinMask.Floats()
	res := &Result{
		Signal:           signal,
		BackgroundRate:   rate,
		RateErr:          rateErr,
		BackgroundCounts: make([]science.PixelCounts, n),
		Counts:           make([]science.PixelCounts, n),
		CountsErr:        make([]science.PixelCounts, n),
		Spectrogram:      make([][instrument.NumEnergies]float64, n),
	}
	for t := 0; t < n; t++ {
		dt := signal.TimeDel[t]
		for d := range rate {
			for p := range rate[d] {
				for e := range rate[d][p] {
					raw := signal.Counts[t][d][p][e]
					b := dt * rate[d][p][e]
					be := dt * rateErr[d][p][e]
					res.BackgroundCounts[t][d][p][e] = b
					res.Counts[t][d][p][e] = (raw - b) * mask[e]
					res.CountsErr[t][d][p][e] = math.Sqrt(raw+be*be) * mask[e]
				}
			}
		}
		res.Spectrogram[t] = science.SumPixels(&res.Counts[t])
	}
	return res, nil
}

// SelectTimeRange returns the first and last time bin inside [start, end].
// i0 is the first bin starting at or after start and i1 the last bin ending
// at or before end. When no bin qualifies i0 falls back to 0 and i1 to the
// final bin.
func SelectTimeRange(f *science.Frame, start, end time.Time) (i0, i1 int) {
	n := f.NumTimeBins()
	if n == 0 {
		return 0, 0
	}
	s := core.SecondsSince(f.T0, start)
	e := core.SecondsSince(f.T0, end)

	i0 = 0
	for i := 0; i < n; i++ {
		if f.Time[i]-f.TimeDel[i]/2 >= s {
			i0 = i
			break
		}
	}
	i1 = n - 1
	found := false
	for i := n - 1; i >= 0; i-- {
		if f.Time[i]+f.TimeDel[i]/2 <= e {
			i1, found = i, true
			break
		}
	}
	if !found || i1 < i0 {
		i1 = n - 1
	}
	return i0, i1
}

// Spectrum sums subtracted counts over the bins SelectTimeRange picks for
// [start, end] and over detectors and pixels, divided by the span of those
// bins. Errors add in quadrature.
func (r *Result) Spectrum(start, end time.Time) (spec, specErr [instrument.NumEnergies]float64) {
	i0, i1 := SelectTimeRange(r.Signal, start, end)
	return r.spectrumRange(i0, i1)
}

// TotalSpectrum is the spectrum over every signal bin.
func (r *Result) TotalSpectrum() (spec, specErr [instrument.NumEnergies]float64) {
	return r.spectrumRange(0, r.Signal.NumTimeBins()-1)
}

// SpectrumRange is Spectrum over the inclusive bin range [i0, i1]. It fails
// with INVALID_INPUT unless 0 <= i0 <= i1 < number of bins.
func (r *Result) SpectrumRange(i0, i1 int) (spec, specErr [instrument.NumEnergies]float64, err error) {
	if n := r.Signal.NumTimeBins(); i0 < 0 || i1 >= n || i0 > i1 {
		return spec, specErr, apperrors.InvalidInput(fmt.Sprintf("time bin range [%d, %d] outside [0, %d)", i0, i1, n))
	}
	spec, specErr = r.spectrumRange(i0, i1)
	return spec, specErr, nil
}

func (r *Result) spectrumRange(i0, i1 int) (spec, specErr [instrument.NumEnergies]float64) {
	f := r.Signal
	span := f.Time[i1] - f.Time[i0] + f.TimeDel[i0]/2 + f.TimeDel[i1]/2
	var sq [instrument.NumEnergies]float64
	for t := i0; t <= i1; t++ {
		for d := range r.Counts[t] {
			for p := range r.Counts[t][d] {
				for e, v := range r.Counts[t][d][p] {
					spec[e] += v
					ce := r.CountsErr[t][d][p][e]
					sq[e] += ce * ce
				}
			}
		}
	}
	for e := range spec {
		spec[e] /= span
		specErr[e] = math.Sqrt(sq[e]) / span
	}
	return spec, specErr
}
