package livetime

import (
	"math"

	"github.com/montanaflynn/stats"

	"stixdc/domain/instrument"
)

// DetectorSummary describes the live-time ratio of one detector over the
// unsaturated time bins of a result.
type DetectorSummary struct {
	Detector int
	Mean     float64
	Min      float64
	Max      float64
	StdDev   float64
	// Bins is the number of time bins that contributed.
	Bins int
}

// Summary returns one entry per detector. Detectors without any valid bin
// report NaN statistics.
func (r *Result) Summary() []DetectorSummary {
	out := make([]DetectorSummary, instrument.NumDetectors)
	for det := range out {
		var data stats.Float64Data
		for t := range r.LiveRatio {
			if v := r.LiveRatio[t][det]; !math.IsNaN(v) {
				data = append(data, v)
			}
		}
		s := DetectorSummary{Detector: det, Bins: len(data)}
		s.Mean = orNaN(data.Mean())
		s.Min = orNaN(data.Min())
		s.Max = orNaN(data.Max())
		s.StdDev = orNaN(data.StandardDeviation())
		out[det] = s
	}
	return out
}

func orNaN(v float64, err error) float64 {
	if err != nil {
		return math.NaN()
	}
	return v
}

// MeanLiveRatio is the mean live-time ratio over all detectors and valid
// time bins.
func (r *Result) MeanLiveRatio() float64 {
	var data stats.Float64Data
	for t := range r.LiveRatio {
		for _, v := range r.LiveRatio[t] {
			if !math.IsNaN(v) {
				data = append(data, v)
			}
		}
	}
	return orNaN(stats.Mean(data))
}
