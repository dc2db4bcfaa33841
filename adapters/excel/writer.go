package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"stixdc/domain/instrument"
	"stixdc/domain/run"
	"stixdc/domain/science"
)

// table is a sheet under construction
type table struct {
	name string
	rows [][]interface{}
}

// sheetWriter stores tables either as workbook sheets or as CSV files
type sheetWriter struct {
	path     string
	workbook bool
}

func (w sheetWriter) write(tables []table) error {
	if w.workbook {
		return w.writeWorkbook(tables)
	}
	return w.writeCSV(tables)
}

func (w sheetWriter) writeWorkbook(tables []table) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, t := range tables {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", t.name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(t.name); err != nil {
			return err
		}
		sw, err := f.NewStreamWriter(t.name)
		if err != nil {
			return err
		}
		for r, row := range t.rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return err
			}
			if err := sw.SetRow(cell, row); err != nil {
				return fmt.Errorf("sheet %s row %d: %w", t.name, r+1, err)
			}
		}
		if err := sw.Flush(); err != nil {
			return err
		}
	}
	return f.SaveAs(w.path)
}

func (w sheetWriter) writeCSV(tables []table) error {
	if err := os.MkdirAll(w.path, 0o755); err != nil {
		return err
	}
	for _, t := range tables {
		file, err := os.Create(filepath.Join(w.path, t.name+".csv"))
		if err != nil {
			return err
		}
		cw := csv.NewWriter(file)
		for _, row := range t.rows {
			rec := make([]string, len(row))
			for i, v := range row {
				rec[i] = formatCell(v)
			}
			if err := cw.Write(rec); err != nil {
				file.Close()
				return err
			}
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			file.Close()
			return err
		}
		if err := file.Close(); err != nil {
			return err
		}
	}
	return nil
}

func formatCell(v interface{}) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case int:
		return strconv.Itoa(x)
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

// FrameWriterAdapter implements FrameWriterPort for spreadsheet frames
type FrameWriterAdapter struct {
	config ExcelConfig
}

// NewFrameWriterAdapter creates a new spreadsheet frame writer
func NewFrameWriterAdapter(config ExcelConfig) *FrameWriterAdapter {
	return &FrameWriterAdapter{config: config}
}

// WriteFrame stores the frame in the layout FrameReaderAdapter reads
func (a *FrameWriterAdapter) WriteFrame(ctx context.Context, frame *science.Frame) error {
	if err := frame.Validate(); err != nil {
		return err
	}

	meta := table{name: SheetMeta, rows: [][]interface{}{
		{ColKey, ColValue},
		{MetaT0, frame.T0.UTC().Format(time.RFC3339Nano)},
		{MetaRequestID, frame.RequestID.String()},
		{MetaMask, FormatMask(frame.EnergyBinMask)},
	}}

	header := []interface{}{ColTime, ColTimeDel}
	if len(frame.RCR) > 0 {
		header = append(header, ColRCR)
	}
	for g := 0; g < instrument.NumTriggerGroups; g++ {
		header = append(header, triggerColumn(g))
	}
	bins := table{name: SheetBins, rows: [][]interface{}{header}}
	for t := range frame.Time {
		row := []interface{}{frame.Time[t], frame.TimeDel[t]}
		if len(frame.RCR) > 0 {
			row = append(row, frame.RCR[t])
		}
		for _, v := range frame.Triggers[t] {
			row = append(row, v)
		}
		bins.rows = append(bins.rows, row)
	}

	counts := table{name: SheetCounts, rows: [][]interface{}{{ColTimeBin, ColDetector, ColPixel, ColEnergy, ColCounts}}}
	for t := range frame.Counts {
		if err := ctx.Err(); err != nil {
			return err
		}
		for d := range frame.Counts[t] {
			for p := range frame.Counts[t][d] {
				for e, v := range frame.Counts[t][d][p] {
					if v == 0 && a.config.SkipZeroCounts {
						continue
					}
					counts.rows = append(counts.rows, []interface{}{t, d, p, e, v})
				}
			}
		}
	}

	energies := table{name: SheetEnergies, rows: [][]interface{}{{ColChannel, ColELow, ColEHigh}}}
	for c, b := range frame.EnergyBins {
		energies.rows = append(energies.rows, []interface{}{c, b[0], cellFloat(b[1])})
	}

	w := sheetWriter{path: a.config.FilePath, workbook: a.config.isWorkbook()}
	return w.write([]table{meta, bins, counts, energies})
}

// cellFloat keeps infinite edges readable in spreadsheets, which cannot
// store them as numbers
func cellFloat(v float64) interface{} {
	if v > 1e308 {
		return "inf"
	}
	return v
}

// ReportWriterAdapter implements ReportWriterPort as a workbook with one
// sheet per report section
type ReportWriterAdapter struct {
	dir string
}

// NewReportWriterAdapter writes reports into dir as <run id>.xlsx
func NewReportWriterAdapter(dir string) *ReportWriterAdapter {
	return &ReportWriterAdapter{dir: dir}
}

// Path returns the file a report is written to
func (a *ReportWriterAdapter) Path(report *run.Report) string {
	return filepath.Join(a.dir, report.RunID.String()+".xlsx")
}

// WriteReport stores the report
func (a *ReportWriterAdapter) WriteReport(ctx context.Context, report *run.Report) error {
	if err := report.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return err
	}

	p := report.Fingerprint.Parameters
	summary := table{name: "summary", rows: [][]interface{}{
		{ColKey, ColValue},
		{"run_id", report.RunID.String()},
		{"request_id", report.RequestID.String()},
		{"kind", string(report.Kind)},
		{"created_at", report.CreatedAt.Time().Format(time.RFC3339)},
		{"input_hash", report.Fingerprint.InputHash.String()},
		{"fingerprint", report.Fingerprint.Fingerprint.String()},
		{"fpga_tau", p.FPGATau},
		{"asic_tau", p.ASICTau},
		{"beta", p.Beta},
		{"solarblack", p.SolarBlack},
		{"matlist", p.MatList},
		{"attenuator", p.Attenuator},
		{"saturated_cells", len(report.Saturated)},
		{"error_saturated_cells", len(report.ErrorSaturated)},
		{"lut_misses", report.LUTMisses},
	}}
	tables := []table{summary}

	if len(report.LiveTime) > 0 {
		lt := table{name: "livetime", rows: [][]interface{}{{"detector", "mean", "min", "max", "std_dev", "bins"}}}
		for _, r := range report.LiveTime {
			lt.rows = append(lt.rows, []interface{}{r.Detector, nanCell(r.Mean), nanCell(r.Min), nanCell(r.Max), nanCell(r.StdDev), r.Bins})
		}
		tables = append(tables, lt)
	}
	if len(report.Spectrum) > 0 {
		sp := table{name: "spectrum", rows: [][]interface{}{{"channel", "e_low", "e_high", "rate", "error"}}}
		for _, r := range report.Spectrum {
			sp.rows = append(sp.rows, []interface{}{r.Channel, r.ELow, cellFloat(r.EHigh), r.Rate, r.Error})
		}
		tables = append(tables, sp)
	}
	if len(report.Transmission) > 0 {
		header := []interface{}{"detector"}
		for c := 0; c < instrument.NumEnergies; c++ {
			header = append(header, "ch_"+itoa(c))
		}
		tr := table{name: "transmission", rows: [][]interface{}{header}}
		for _, r := range report.Transmission {
			row := []interface{}{r.Detector}
			for _, v := range r.Values {
				row = append(row, v)
			}
			tr.rows = append(tr.rows, row)
		}
		tables = append(tables, tr)
	}
	if len(report.Saturated)+len(report.ErrorSaturated) > 0 {
		sat := table{name: "saturated", rows: [][]interface{}{{"cell", "kind"}}}
		for _, c := range report.Saturated {
			sat.rows = append(sat.rows, []interface{}{c, "value"})
		}
		for _, c := range report.ErrorSaturated {
			sat.rows = append(sat.rows, []interface{}{c, "error"})
		}
		tables = append(tables, sat)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	return sheetWriter{path: a.Path(report), workbook: true}.write(tables)
}

// nanCell writes NaN statistics as empty cells
func nanCell(v float64) interface{} {
	if v != v {
		return ""
	}
	return v
}
