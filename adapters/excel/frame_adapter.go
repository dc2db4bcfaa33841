package excel

import (
	"context"
	"fmt"
	"strings"

	"stixdc/domain/core"
	"stixdc/domain/instrument"
	"stixdc/domain/science"
	"stixdc/internal/errors"
)

// FrameReaderAdapter implements FrameReaderPort for spreadsheet frames
type FrameReaderAdapter struct {
	config ExcelConfig
	reader *DataReader
}

// NewFrameReaderAdapter creates a new spreadsheet frame reader
func NewFrameReaderAdapter(config ExcelConfig) *FrameReaderAdapter {
	return &FrameReaderAdapter{
		config: config,
		reader: NewDataReader(config.FilePath),
	}
}

// ReadFrame reads the meta, bins and counts sheets and assembles a frame
func (a *FrameReaderAdapter) ReadFrame(ctx context.Context) (*science.Frame, error) {
	sheets, err := a.reader.ReadSheets([]string{SheetMeta, SheetBins, SheetCounts}, SheetEnergies)
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	frame := &science.Frame{EnergyBins: instrument.NominalEnergyBins()}

	// Step 1: frame metadata
	if err := a.applyMeta(frame, sheets[SheetMeta]); err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, err)
	}

	// Step 2: per time bin columns
	if err := a.applyBins(frame, sheets[SheetBins]); err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, err)
	}

	// Step 3: sparse pixel counts
	if err := a.applyCounts(frame, sheets[SheetCounts]); err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, err)
	}

	// Step 4: optional calibrated energy bins
	if data, ok := sheets[SheetEnergies]; ok {
		if err := a.applyEnergies(frame, data); err != nil {
			return nil, errors.WithCode(errors.CodeInvalidInput, err)
		}
	}

	if err := frame.Validate(); err != nil {
		return nil, errors.DataInconsistent(err)
	}
	return frame, nil
}

func (a *FrameReaderAdapter) applyMeta(frame *science.Frame, data *ExcelData) error {
	meta := make(map[string]string)
	for _, row := range data.Rows {
		meta[strings.ToLower(row[ColKey])] = row[ColValue]
	}

	t0, ok := meta[MetaT0]
	if !ok {
		return fmt.Errorf("meta sheet has no %s", MetaT0)
	}
	parsed, err := core.ParseUTC(t0)
	if err != nil {
		return err
	}
	frame.T0 = parsed

	if id := meta[MetaRequestID]; id != "" {
		frame.RequestID = core.RequestID(id)
	}

	mask, ok := meta[MetaMask]
	if !ok {
		frame.EnergyBinMask = science.FullMask()
		return nil
	}
	frame.EnergyBinMask, err = ParseMask(mask)
	return err
}

func (a *FrameReaderAdapter) applyBins(frame *science.Frame, data *ExcelData) error {
	n := len(data.Rows)
	if n == 0 {
		return core.ErrEmptyFrame
	}
	frame.Time = make([]float64, n)
	frame.TimeDel = make([]float64, n)
	frame.Triggers = make([]science.TriggerCounts, n)
	frame.Counts = make([]science.PixelCounts, n)

	hasRCR := false
	for _, h := range data.Headers {
		if h == ColRCR {
			hasRCR = true
		}
	}
	if hasRCR {
		frame.RCR = make([]int, n)
	}

	var err error
	for i, row := range data.Rows {
		if frame.Time[i], err = row.Float(ColTime); err != nil {
			return fmt.Errorf("bins row %d: %w", i+2, err)
		}
		if frame.TimeDel[i], err = row.Float(ColTimeDel); err != nil {
			return fmt.Errorf("bins row %d: %w", i+2, err)
		}
		if hasRCR {
			if frame.RCR[i], err = row.Int(ColRCR); err != nil {
				return fmt.Errorf("bins row %d: %w", i+2, err)
			}
		}
		for g := 0; g < instrument.NumTriggerGroups; g++ {
			if frame.Triggers[i][g], err = row.Float(triggerColumn(g)); err != nil {
				return fmt.Errorf("bins row %d: %w", i+2, err)
			}
		}
	}
	return nil
}

func (a *FrameReaderAdapter) applyCounts(frame *science.Frame, data *ExcelData) error {
	n := len(frame.Time)
	for i, row := range data.Rows {
		var idx [4]int
		for k, col := range []string{ColTimeBin, ColDetector, ColPixel, ColEnergy} {
			v, err := row.Int(col)
			if err != nil {
				return fmt.Errorf("counts row %d: %w", i+2, err)
			}
			idx[k] = v
		}
		t, d, p, e := idx[0], idx[1], idx[2], idx[3]
		if t < 0 || t >= n || d < 0 || d >= instrument.NumDetectors ||
			p < 0 || p >= instrument.NumPixels || e < 0 || e >= instrument.NumEnergies {
			return fmt.Errorf("counts row %d: index (%d, %d, %d, %d) out of range", i+2, t, d, p, e)
		}
		v, err := row.Float(ColCounts)
		if err != nil {
			return fmt.Errorf("counts row %d: %w", i+2, err)
		}
		frame.Counts[t][d][p][e] += v
	}
	return nil
}

func (a *FrameReaderAdapter) applyEnergies(frame *science.Frame, data *ExcelData) error {
	for i, row := range data.Rows {
		c, err := row.Int(ColChannel)
		if err != nil {
			return fmt.Errorf("energies row %d: %w", i+2, err)
		}
		if c < 0 || c >= instrument.NumEnergies {
			return fmt.Errorf("energies row %d: channel %d out of range", i+2, c)
		}
		lo, err := row.Float(ColELow)
		if err != nil {
			return err
		}
		hi, err := row.Float(ColEHigh)
		if err != nil {
			return err
		}
		frame.EnergyBins[c] = [2]float64{lo, hi}
	}
	return nil
}

// ParseMask reads a 32 character 0/1 string, the way masks are printed in
// control data
func ParseMask(s string) (science.Mask, error) {
	s = strings.TrimSpace(s)
	if len(s) != instrument.NumEnergies {
		return science.Mask{}, core.NewShapeError(MetaMask, len(s), instrument.NumEnergies)
	}
	bits := make([]int, len(s))
	for i, c := range s {
		switch c {
		case '0':
		case '1':
			bits[i] = 1
		default:
			return science.Mask{}, fmt.Errorf("%s: invalid character %q", MetaMask, c)
		}
	}
	return science.MaskFromInts(bits)
}

// FormatMask is the inverse of ParseMask
func FormatMask(m science.Mask) string {
	var b strings.Builder
	for _, on := range m {
		if on {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}
