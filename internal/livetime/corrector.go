// Package livetime corrects pixel counts for detector dead time using the
// trigger accumulators shared by pairs of detectors.
package livetime

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"stixdc/domain/core"
	"stixdc/domain/instrument"
	"stixdc/domain/science"
	"stixdc/internal"
	"stixdc/internal/compression"
	apperrors "stixdc/internal/errors"
)

// Input holds one correction request. Axis 0 of every slice is time.
type Input struct {
	Triggers []science.TriggerCounts
	// TriggerErrors is optional; when nil errors are derived from the
	// trigger compression table or from counting statistics.
	TriggerErrors []science.TriggerCounts
	Counts        []science.PixelCounts
	TimeDel       []float64
}

// InputFromFrame builds an Input from a science frame.
func InputFromFrame(f *science.Frame) Input {
	return Input{Triggers: f.Triggers, Counts: f.Counts, TimeDel: f.TimeDel}
}

// Cell identifies one trigger group in one time bin.
type Cell struct {
	TimeBin int
	Group   int
}

// Result holds the corrected products. Rates are counts per second.
type Result struct {
	CorrectedCounts []science.PixelCounts
	CorrectedRate   []science.PixelCounts
	RawRate         []science.PixelCounts
	PhotonsIn       []science.TriggerCounts
	LiveRatio       [][instrument.NumDetectors]float64
	LiveRatioErr    [][instrument.NumDetectors]float64
	// Saturated lists the cells whose values were set to NaN.
	Saturated []Cell
	// ErrorSaturated lists unsaturated cells whose trigger count plus one
	// sigma saturates; their LiveRatioErr is NaN.
	ErrorSaturated []Cell
	// LUTMisses lists cells whose trigger count is absent from the trigger
	// compression table; their error fell back to sqrt(triggers).
	LUTMisses []Cell
}

// Err reports the first saturated cell, then the first cell with a
// saturated error bound, or nil when every value and error is finite.
func (r *Result) Err() error {
	if len(r.Saturated) > 0 {
		c := r.Saturated[0]
		err := apperrors.NumericDegeneracy(core.NewSaturationError(c.TimeBin, c.Group))
		if len(r.Saturated) > 1 {
			return apperrors.Wrapf(err, "%d saturated cells", len(r.Saturated))
		}
		return err
	}
	if len(r.ErrorSaturated) > 0 {
		c := r.ErrorSaturated[0]
		err := apperrors.NumericDegeneracy(core.NewSaturationError(c.TimeBin, c.Group))
		return apperrors.Wrapf(err, "live-time error undefined in %d cells", len(r.ErrorSaturated))
	}
	return nil
}

// Corrector applies the dead-time model. It holds no per-call state and
// may be shared between goroutines.
type Corrector struct {
	params     Params
	workers    int64
	triggerLUT *compression.ErrorLUT
	logger     *internal.Logger
}

// NewCorrector validates params. workers bounds the number of detectors
// processed concurrently; values below 1 mean one. triggerLUT may be nil.
func NewCorrector(params Params, workers int, triggerLUT *compression.ErrorLUT, logger *internal.Logger) (*Corrector, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Corrector{params: params, workers: int64(workers), triggerLUT: triggerLUT, logger: logger}, nil
}

// Params returns the dead-time constants in use.
func (c *Corrector) Params() Params {
	return c.params
}

// TriggerScheme names the scheme of the trigger error table, or "none".
func (c *Corrector) TriggerScheme() string {
	if c.triggerLUT == nil {
		return "none"
	}
	return c.triggerLUT.Scheme().String()
}

func (c *Corrector) checkInput(in Input) error {
	n := len(in.TimeDel)
	if n == 0 {
		return apperrors.DataInconsistent(core.ErrEmptyFrame)
	}
	if len(in.Triggers) != n {
		return apperrors.DataInconsistent(core.NewShapeError("triggers", len(in.Triggers), n))
	}
	if len(in.Counts) != n {
		return apperrors.DataInconsistent(core.NewShapeError("counts", len(in.Counts), n))
	}
	if in.TriggerErrors != nil && len(in.TriggerErrors) != n {
		return apperrors.DataInconsistent(core.NewShapeError("trigger errors", len(in.TriggerErrors), n))
	}
	for i, dt := range in.TimeDel {
		if !(dt > 0) {
			return apperrors.InvalidInput(fmt.Sprintf("timedel %g at time bin %d is not positive", dt, i))
		}
	}
	return nil
}

// triggerError returns the one-sigma error of a trigger count. miss is true
// when the count was looked up in the trigger table and not found.
func (c *Corrector) triggerError(in Input, t, g int) (sigma float64, miss bool) {
	if in.TriggerErrors != nil {
		return in.TriggerErrors[t][g], false
	}
	v := in.Triggers[t][g]
	if c.triggerLUT != nil {
		e, err := c.triggerLUT.Error(v)
		if err == nil {
			return e, false
		}
		c.logger.Debug("livetime: %v at time bin %d group %d, using counting error", err, t, g)
		miss = true
	}
	return math.Sqrt(math.Abs(v)), miss
}

// Correct estimates photon rates and live-time ratios and divides them out
// of the raw count rates. Saturated cells are NaN and listed in
// Result.Saturated; they are not an error of Correct itself.
func (c *Corrector) Correct(ctx context.Context, in Input) (*Result, error) {
	if err := c.checkInput(in); err != nil {
		return nil, err
	}
	n := len(in.TimeDel)
	res := &Result{
		CorrectedCounts: make([]science.PixelCounts, n),
		CorrectedRate:   make([]science.PixelCounts, n),
		RawRate:         make([]science.PixelCounts, n),
		PhotonsIn:       make([]science.TriggerCounts, n),
		LiveRatio:       make([][instrument.NumDetectors]float64, n),
		LiveRatioErr:    make([][instrument.NumDetectors]float64, n),
	}

	// live ratios per trigger group, shared by both detectors of the group
	groupLive := make([]science.TriggerCounts, n)
	groupErr := make([]science.TriggerCounts, n)
	for t := 0; t < n; t++ {
		dt := in.TimeDel[t]
		for g := 0; g < instrument.NumTriggerGroups; g++ {
			trig := in.Triggers[t][g]
			nin, ok := c.params.PhotonsIn(trig, dt)
			res.PhotonsIn[t][g] = nin
			if !ok {
				res.Saturated = append(res.Saturated, Cell{TimeBin: t, Group: g})
				c.logger.Debug("livetime: saturated trigger rate at time bin %d group %d (%g triggers in %gs)", t, g, trig, dt)
				groupLive[t][g] = math.NaN()
				groupErr[t][g] = math.NaN()
				continue
			}
			groupLive[t][g] = c.params.LiveRatio(nin)
			sigma, miss := c.triggerError(in, t, g)
			if miss {
				res.LUTMisses = append(res.LUTMisses, Cell{TimeBin: t, Group: g})
			}
			upper := c.params.liveRatioAt(trig+sigma, dt)
			lower := c.params.liveRatioAt(trig-sigma, dt)
			groupErr[t][g] = math.Abs(upper-lower) / 2
			if math.IsNaN(groupErr[t][g]) {
				res.ErrorSaturated = append(res.ErrorSaturated, Cell{TimeBin: t, Group: g})
				c.logger.Debug("livetime: error bound saturates at time bin %d group %d (%g±%g triggers in %gs)", t, g, trig, sigma, dt)
			}
		}
	}

	sem := semaphore.NewWeighted(c.workers)
	g, gctx := errgroup.WithContext(ctx)
	for det := 0; det < instrument.NumDetectors; det++ {
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			return c.correctDetector(gctx, in, res, groupLive, groupErr, det)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// correctDetector fills the detector's slice of every output array. Each
// detector writes a disjoint region, so workers never share memory.
func (c *Corrector) correctDetector(ctx context.Context, in Input, res *Result, groupLive, groupErr []science.TriggerCounts, det int) error {
	group, err := instrument.DetectorToTriggerGroup(det)
	if err != nil {
		return err
	}
	for t := range in.TimeDel {
		if err := ctx.Err(); err != nil {
			return err
		}
		dt := in.TimeDel[t]
		live := groupLive[t][group]
		res.LiveRatio[t][det] = live
		res.LiveRatioErr[t][det] = groupErr[t][group]
		for p := 0; p < instrument.NumPixels; p++ {
			for e := 0; e < instrument.NumEnergies; e++ {
				raw := in.Counts[t][det][p][e] / dt
				res.RawRate[t][det][p][e] = raw
				corrected := raw / live
				res.CorrectedRate[t][det][p][e] = corrected
				res.CorrectedCounts[t][det][p][e] = corrected * dt
			}
		}
	}
	return nil
}
