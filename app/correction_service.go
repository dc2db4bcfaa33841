package app

import (
	"context"
	"fmt"
	"time"

	"stixdc/domain/core"
	"stixdc/domain/instrument"
	"stixdc/domain/run"
	"stixdc/domain/science"
	"stixdc/internal"
	"stixdc/internal/background"
	"stixdc/internal/compression"
	"stixdc/internal/config"
	"stixdc/internal/errors"
	"stixdc/internal/livetime"
	"stixdc/internal/transmission"
	"stixdc/ports"
)

// CodeVersion is recorded in every run fingerprint
const CodeVersion = "v0.3.0"

// CorrectionService runs the correction core over frames and records each
// run as a report
type CorrectionService struct {
	corrector *livetime.Corrector
	model     *transmission.Model
	writer    ports.ReportWriterPort
	logger    *internal.Logger
}

// TimeWindow restricts spectrum extraction; a zero window selects every bin
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether the window is unset
func (w TimeWindow) IsZero() bool {
	return w.Start.IsZero() && w.End.IsZero()
}

// LiveTimeOutcome holds the report and full arrays of a live-time run
type LiveTimeOutcome struct {
	Report *run.Report
	Result *livetime.Result
}

// SubtractOutcome holds the report and full arrays of a subtraction run
type SubtractOutcome struct {
	Report      *run.Report
	Result      *background.Result
	Spectrum    [instrument.NumEnergies]float64
	SpectrumErr [instrument.NumEnergies]float64
}

// NewCorrectionService builds the core components from configuration.
// writer may be nil when reports are not stored.
func NewCorrectionService(cfg *config.Config, writer ports.ReportWriterPort, logger *internal.Logger) (*CorrectionService, error) {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	lut, err := compression.NewErrorLUT(cfg.Compression.Triggers, true)
	if err != nil {
		return nil, errors.Wrap(err, "trigger error table")
	}
	corrector, err := livetime.NewCorrector(cfg.LiveTime.Params, cfg.LiveTime.Workers, lut, logger)
	if err != nil {
		return nil, errors.Wrap(err, "live-time corrector")
	}
	model, err := transmission.New(cfg.TransmissionOptions())
	if err != nil {
		return nil, errors.Wrap(err, "transmission model")
	}
	return &CorrectionService{corrector: corrector, model: model, writer: writer, logger: logger}, nil
}

// Corrector exposes the live-time corrector in use
func (s *CorrectionService) Corrector() *livetime.Corrector {
	return s.corrector
}

func (s *CorrectionService) parameters(attenuator bool) run.Parameters {
	p := s.corrector.Params()
	opts := s.model.Options()
	return run.Parameters{
		FPGATau:    p.FPGATau,
		ASICTau:    p.ASICTau,
		Beta:       p.Beta,
		SolarBlack: opts.SolarBlack,
		MatList:    opts.MatList,
		Attenuator: attenuator,
	}
}

// LiveTime corrects a frame for dead time. Saturated cells are recorded in
// the report, not returned as an error.
func (s *CorrectionService) LiveTime(ctx context.Context, frame *science.Frame) (*LiveTimeOutcome, error) {
	startTime := time.Now()
	if err := frame.Validate(); err != nil {
		return nil, errors.DataInconsistent(err)
	}

	res, err := s.corrector.Correct(ctx, livetime.InputFromFrame(frame))
	if err != nil {
		return nil, errors.Wrap(err, "live-time correction failed")
	}

	fp := new(core.Fingerprint)
	addFrame(fp, "frame", frame)
	report := run.NewReport(core.NewRunID(), run.KindLiveTime, run.NewRunFingerprint(fp.Sum(), s.parameters(false), CodeVersion))
	report.RequestID = frame.RequestID
	report.LiveTime = liveTimeRows(res)
	report.Saturated = cellNames(res.Saturated)
	report.ErrorSaturated = cellNames(res.ErrorSaturated)
	report.LUTMisses = len(res.LUTMisses)
	if report.LUTMisses > 0 {
		s.logger.Warn("run %s: %d trigger values not in the %s table, counting errors used",
			report.RunID, report.LUTMisses, s.corrector.TriggerScheme())
	}
	if err := res.Err(); err != nil {
		s.logger.Warn("run %s: %v", report.RunID, err)
	}

	if err := s.store(ctx, report); err != nil {
		return nil, err
	}
	s.logger.Info("run %s: live-time correction of %d bins in %v (fingerprint %s)",
		report.RunID, frame.NumTimeBins(), time.Since(startTime), report.Fingerprint.Fingerprint.Short())
	return &LiveTimeOutcome{Report: report, Result: res}, nil
}

// Subtract removes the dead-time corrected background from the signal and
// extracts the spectrum over window
func (s *CorrectionService) Subtract(ctx context.Context, signal, bkg *science.Frame, window TimeWindow) (*SubtractOutcome, error) {
	startTime := time.Now()
	res, err := background.Subtract(ctx, signal, bkg, s.corrector)
	if err != nil {
		return nil, errors.Wrap(err, "background subtraction failed")
	}

	out := &SubtractOutcome{Result: res}
	if window.IsZero() {
		out.Spectrum, out.SpectrumErr = res.TotalSpectrum()
	} else {
		out.Spectrum, out.SpectrumErr = res.Spectrum(window.Start, window.End)
	}

	fp := new(core.Fingerprint)
	addFrame(fp, "signal", signal)
	addFrame(fp, "background", bkg)
	if !window.IsZero() {
		fp.Add("window", float64(window.Start.Unix()), float64(window.Start.Nanosecond()),
			float64(window.End.Unix()), float64(window.End.Nanosecond()))
	}
	report := run.NewReport(core.NewRunID(), run.KindSubtract, run.NewRunFingerprint(fp.Sum(), s.parameters(false), CodeVersion))
	report.RequestID = signal.RequestID
	for c := 0; c < instrument.NumEnergies; c++ {
		if !signal.EnergyBinMask[c] {
			continue
		}
		report.Spectrum = append(report.Spectrum, run.SpectrumRow{
			Channel: c,
			ELow:    signal.EnergyBins[c][0],
			EHigh:   signal.EnergyBins[c][1],
			Rate:    out.Spectrum[c],
			Error:   out.SpectrumErr[c],
		})
	}
	out.Report = report

	if err := s.store(ctx, report); err != nil {
		return nil, err
	}
	s.logger.Info("run %s: background subtraction in %v (fingerprint %s)",
		report.RunID, time.Since(startTime), report.Fingerprint.Fingerprint.Short())
	return out, nil
}

// Transmission evaluates every detector over the given channel edges
func (s *CorrectionService) Transmission(ctx context.Context, bins [instrument.NumEnergies][2]float64, attenuator bool) (*run.Report, error) {
	fp := new(core.Fingerprint)
	for c := range bins {
		fp.Add("bin", bins[c][0], bins[c][1])
	}
	report := run.NewReport(core.NewRunID(), run.KindTransmission, run.NewRunFingerprint(fp.Sum(), s.parameters(attenuator), CodeVersion))

	for det := 0; det < instrument.NumDetectors; det++ {
		values, err := s.model.DetectorTransmission(det, bins, attenuator)
		if err != nil {
			return nil, err
		}
		report.Transmission = append(report.Transmission, run.TransmissionRow{Detector: det, Values: values})
	}

	if err := s.store(ctx, report); err != nil {
		return nil, err
	}
	s.logger.Info("run %s: transmission for %d detectors (attenuator %t)", report.RunID, instrument.NumDetectors, attenuator)
	return report, nil
}

func (s *CorrectionService) store(ctx context.Context, report *run.Report) error {
	if s.writer == nil {
		return nil
	}
	if err := s.writer.WriteReport(ctx, report); err != nil {
		return errors.Wrapf(err, "failed to write report %s", report.RunID)
	}
	return nil
}

func addFrame(fp *core.Fingerprint, label string, f *science.Frame) {
	fp.Add(label+".time", f.Time...)
	fp.Add(label+".timedel", f.TimeDel...)
	mask := f.EnergyBinMask.Floats()
	fp.Add(label+".mask", mask[:]...)
	for t := range f.Triggers {
		fp.Add(label+".triggers", f.Triggers[t][:]...)
	}
	for t := range f.Counts {
		for d := range f.Counts[t] {
			for p := range f.Counts[t][d] {
				fp.Add(label+".counts", f.Counts[t][d][p][:]...)
			}
		}
	}
}

func cellNames(cells []livetime.Cell) []string {
	var out []string
	for _, c := range cells {
		out = append(out, fmt.Sprintf("%d/%d", c.TimeBin, c.Group))
	}
	return out
}

func liveTimeRows(res *livetime.Result) []run.LiveTimeRow {
	summary := res.Summary()
	rows := make([]run.LiveTimeRow, len(summary))
	for i, s := range summary {
		rows[i] = run.LiveTimeRow{Detector: s.Detector, Mean: s.Mean, Min: s.Min, Max: s.Max, StdDev: s.StdDev, Bins: s.Bins}
	}
	return rows
}
