package livetime

import (
	"fmt"
	"math"

	"stixdc/domain/core"
	apperrors "stixdc/internal/errors"
)

// Params are the dead-time constants of the readout chain, in seconds.
type Params struct {
	FPGATau float64
	ASICTau float64
	// Beta scales the paralyzable term.
	Beta float64
}

// DefaultParams returns the latest calibrated constants.
func DefaultParams() Params {
	return Params{FPGATau: 10.04e-6, ASICTau: 2.58e-6, Beta: 0.94}
}

// TriggerTau is the total dead time charged to one trigger.
func (p Params) TriggerTau() float64 {
	return p.FPGATau + p.ASICTau
}

// Validate rejects non-positive dead times and a beta outside (0, 2].
func (p Params) Validate() error {
	switch {
	case !(p.FPGATau > 0) || math.IsInf(p.FPGATau, 0):
		return apperrors.ConfigInvalidCause(fmt.Errorf("%w: fpga tau %g", core.ErrInvalidParams, p.FPGATau))
	case !(p.ASICTau > 0) || math.IsInf(p.ASICTau, 0):
		return apperrors.ConfigInvalidCause(fmt.Errorf("%w: asic tau %g", core.ErrInvalidParams, p.ASICTau))
	case !(p.Beta > 0 && p.Beta <= 2):
		return apperrors.ConfigInvalidCause(fmt.Errorf("%w: beta %g", core.ErrInvalidParams, p.Beta))
	}
	return nil
}

// PhotonsIn estimates the incident photon rate of a trigger group from its
// trigger count over an integration of timedel seconds. ok is false when
// the trigger rate saturates the readout and no estimate exists.
func (p Params) PhotonsIn(triggers, timedel float64) (rate float64, ok bool) {
	denom := timedel - p.TriggerTau()*triggers
	if !(denom > 0) {
		return math.NaN(), false
	}
	return triggers / denom, true
}

// LiveRatio is the fraction of time a detector is able to record photons
// when nin photons per second arrive at its trigger group.
func (p Params) LiveRatio(nin float64) float64 {
	return math.Exp(-p.Beta*nin*p.ASICTau) / (1 + nin*p.TriggerTau())
}

// liveRatioAt combines PhotonsIn and LiveRatio, returning NaN when saturated.
func (p Params) liveRatioAt(triggers, timedel float64) float64 {
	nin, ok := p.PhotonsIn(triggers, timedel)
	if !ok {
		return math.NaN()
	}
	return p.LiveRatio(nin)
}
