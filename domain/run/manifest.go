package run

import (
	"stixdc/domain/core"
	"stixdc/domain/instrument"
)

// Report is the outcome of one correction run, in the plain arrays and
// units handed to plotting and archiving collaborators
type Report struct {
	RunID       core.RunID     `json:"run_id"`
	RequestID   core.RequestID `json:"request_id,omitempty"`
	Kind        Kind           `json:"kind"`
	Fingerprint RunFingerprint `json:"fingerprint"`
	CreatedAt   core.Timestamp `json:"created_at"`

	LiveTime     []LiveTimeRow     `json:"livetime,omitempty"`
	Spectrum     []SpectrumRow     `json:"spectrum,omitempty"`
	Transmission []TransmissionRow `json:"transmission,omitempty"`
	// Saturated lists "bin/group" cells flagged by the live-time correction
	Saturated []string `json:"saturated,omitempty"`
	// ErrorSaturated lists "bin/group" cells whose live-time error is undefined
	ErrorSaturated []string `json:"error_saturated,omitempty"`
	// LUTMisses counts trigger values absent from the compression table
	LUTMisses int `json:"lut_misses,omitempty"`
}

// LiveTimeRow summarises the live-time ratio of one detector (dimensionless)
type LiveTimeRow struct {
	Detector int     `json:"detector"`
	Mean     float64 `json:"mean"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	StdDev   float64 `json:"std_dev"`
	Bins     int     `json:"bins"`
}

// SpectrumRow is one energy channel of a background-subtracted spectrum
// (counts/s, keV)
type SpectrumRow struct {
	Channel int     `json:"channel"`
	ELow    float64 `json:"e_low"`
	EHigh   float64 `json:"e_high"`
	Rate    float64 `json:"rate"`
	Error   float64 `json:"error"`
}

// TransmissionRow holds one detector's transmission per energy channel
type TransmissionRow struct {
	Detector int                               `json:"detector"`
	Values   [instrument.NumEnergies]float64 `json:"values"`
}

// NewReport creates an empty report for a run
func NewReport(runID core.RunID, kind Kind, fingerprint RunFingerprint) *Report {
	return &Report{
		RunID:       runID,
		Kind:        kind,
		Fingerprint: fingerprint,
		CreatedAt:   core.Now(),
	}
}

// Validate checks if the report is complete
func (r *Report) Validate() error {
	if core.ID(r.RunID).IsEmpty() {
		return core.NewValidationError("report", "run_id cannot be empty")
	}
	if r.Fingerprint.Fingerprint.IsEmpty() {
		return core.NewValidationError("report", "fingerprint cannot be empty")
	}
	switch r.Kind {
	case KindLiveTime, KindSubtract, KindTransmission:
	default:
		return core.NewValidationError("report", "unknown kind "+string(r.Kind))
	}
	return nil
}
