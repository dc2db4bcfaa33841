package jsonframe

import (
	"context"
	"encoding/json"
	"io"
	"math"

	"stixdc/domain/instrument"
	"stixdc/domain/run"
	"stixdc/domain/science"
)

// ReportWriter implements ReportWriterPort by encoding reports as indented
// JSON, one document per report
type ReportWriter struct {
	w io.Writer
}

// NewReportWriter writes reports to w
func NewReportWriter(w io.Writer) *ReportWriter {
	return &ReportWriter{w: w}
}

// WriteReport encodes the report. NaN and infinite values, which JSON
// cannot carry, are written as null.
func (r *ReportWriter) WriteReport(ctx context.Context, report *run.Report) error {
	if err := report.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(sanitize(report))
}

type jsonLiveTimeRow struct {
	Detector int      `json:"detector"`
	Mean     *float64 `json:"mean"`
	Min      *float64 `json:"min"`
	Max      *float64 `json:"max"`
	StdDev   *float64 `json:"std_dev"`
	Bins     int      `json:"bins"`
}

type jsonSpectrumRow struct {
	Channel int      `json:"channel"`
	ELow    float64  `json:"e_low"`
	EHigh   *float64 `json:"e_high"`
	Rate    *float64 `json:"rate"`
	Error   *float64 `json:"error"`
}

type jsonReport struct {
	*run.Report
	LiveTime []jsonLiveTimeRow `json:"livetime,omitempty"`
	Spectrum []jsonSpectrumRow `json:"spectrum,omitempty"`
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func sanitize(r *run.Report) jsonReport {
	out := jsonReport{Report: r}
	for _, row := range r.LiveTime {
		out.LiveTime = append(out.LiveTime, jsonLiveTimeRow{
			Detector: row.Detector, Mean: finite(row.Mean), Min: finite(row.Min),
			Max: finite(row.Max), StdDev: finite(row.StdDev), Bins: row.Bins,
		})
	}
	for _, row := range r.Spectrum {
		out.Spectrum = append(out.Spectrum, jsonSpectrumRow{
			Channel: row.Channel, ELow: row.ELow, EHigh: finite(row.EHigh),
			Rate: finite(row.Rate), Error: finite(row.Error),
		})
	}
	return out
}

type jsonFrame struct {
	RequestID string                 `json:"request_id,omitempty"`
	T0        string                 `json:"t0"`
	Time      []float64              `json:"time"`
	TimeDel   []float64              `json:"timedel"`
	RCR       []int                  `json:"rcr,omitempty"`
	Triggers  []science.TriggerCounts `json:"triggers"`
	Counts    []science.PixelCounts  `json:"counts"`
	Mask      []int                  `json:"energy_bin_mask"`
	Energies  [][2]interface{}       `json:"energy_bins"`
}

// FrameWriter implements FrameWriterPort with the document layout
// FrameReader parses
type FrameWriter struct {
	w io.Writer
}

// NewFrameWriter writes frames to w
func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: w}
}

// WriteFrame encodes the frame
func (fw *FrameWriter) WriteFrame(ctx context.Context, frame *science.Frame) error {
	if err := frame.Validate(); err != nil {
		return err
	}
	doc := jsonFrame{
		RequestID: frame.RequestID.String(),
		T0:        frame.T0.UTC().Format("2006-01-02T15:04:05.999999999Z07:00"),
		Time:      frame.Time,
		TimeDel:   frame.TimeDel,
		RCR:       frame.RCR,
		Triggers:  frame.Triggers,
		Counts:    frame.Counts,
		Mask:      make([]int, instrument.NumEnergies),
		Energies:  make([][2]interface{}, instrument.NumEnergies),
	}
	for i, on := range frame.EnergyBinMask {
		if on {
			doc.Mask[i] = 1
		}
	}
	for c, b := range frame.EnergyBins {
		doc.Energies[c] = [2]interface{}{b[0], b[1]}
		if math.IsInf(b[1], 1) {
			doc.Energies[c][1] = "inf"
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return json.NewEncoder(fw.w).Encode(doc)
}
