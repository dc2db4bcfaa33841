package excel

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"stixdc/domain/core"
	"stixdc/domain/run"
	"stixdc/domain/science"
	"stixdc/internal/errors"
	"stixdc/internal/testkit"
)

func sampleFrame(t *testing.T) *science.Frame {
	t.Helper()
	cfg := testkit.DefaultFrameConfig()
	cfg.TimeBins = 3
	cfg.CountRate = 0.2
	cfg.Mask = science.RangeMask(1, 25)
	f, err := testkit.NewFrameGenerator(cfg).Generate()
	require.NoError(t, err)
	f.RCR = []int{0, 1, 1}
	return f
}

func TestFrameRoundTrip(t *testing.T) {
	for _, name := range []string{"frame.xlsx", "frame_csv"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			want := sampleFrame(t)

			require.NoError(t, NewFrameWriterAdapter(DefaultExcelConfig(path)).WriteFrame(context.Background(), want))
			got, err := NewFrameReaderAdapter(DefaultExcelConfig(path)).ReadFrame(context.Background())
			require.NoError(t, err)

			assert.True(t, want.T0.Equal(got.T0), "t0 %v vs %v", want.T0, got.T0)
			assert.Equal(t, want.RequestID, got.RequestID)
			assert.Equal(t, want.Time, got.Time)
			assert.Equal(t, want.TimeDel, got.TimeDel)
			assert.Equal(t, want.RCR, got.RCR)
			assert.Equal(t, want.Triggers, got.Triggers)
			assert.Equal(t, want.EnergyBinMask, got.EnergyBinMask)
			assert.True(t, math.IsInf(got.EnergyBins[31][1], 1))
			for i := range want.Counts {
				assert.True(t, want.Counts[i] == got.Counts[i], "counts of time bin %d differ", i)
			}
		})
	}
}

func TestReadFrameMissingSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	_, err := NewFrameReaderAdapter(DefaultExcelConfig(path)).ReadFrame(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestReadFrameInconsistentCSV(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"meta.csv":   "key,value\nt0,2022-03-31T17:30:00Z\n",
		"bins.csv":   "time,timedel\n0.5,1\n1.5,0\n",
		"counts.csv": "time_bin,detector,pixel,energy,counts\n0,0,0,1,5\n",
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}

	_, err := NewFrameReaderAdapter(DefaultExcelConfig(dir)).ReadFrame(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.CodeDataInconsistent, errors.GetCode(err))
}

func TestReadFrameCountsOutOfRange(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"meta.csv":   "key,value\nt0,2022-03-31T17:30:00Z\n",
		"bins.csv":   "time,timedel\n0.5,1\n",
		"counts.csv": "time_bin,detector,pixel,energy,counts\n0,32,0,1,5\n",
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}

	_, err := NewFrameReaderAdapter(DefaultExcelConfig(dir)).ReadFrame(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestParseMask(t *testing.T) {
	m, err := ParseMask("01111111111111111111111111100000")
	require.NoError(t, err)
	assert.False(t, m[0])
	assert.True(t, m[1])
	assert.False(t, m[31])
	assert.Equal(t, "01111111111111111111111111100000", FormatMask(m))

	_, err = ParseMask("0111")
	assert.ErrorIs(t, err, core.ErrShapeMismatch)
	_, err = ParseMask("0111111111111111111111111110000x")
	assert.Error(t, err)
}

func TestReportWriter(t *testing.T) {
	dir := t.TempDir()
	fp := run.NewRunFingerprint(core.Hash("abc"), run.Parameters{FPGATau: 10.04e-6, ASICTau: 2.58e-6, Beta: 0.94}, "test")
	report := run.NewReport(core.NewRunID(), run.KindLiveTime, fp)
	report.LiveTime = []run.LiveTimeRow{{Detector: 0, Mean: 0.9, Min: 0.8, Max: 1, Bins: 2}, {Detector: 1, Mean: math.NaN()}}
	report.Spectrum = []run.SpectrumRow{{Channel: 31, ELow: 150, EHigh: math.Inf(1), Rate: 1, Error: 0.1}}
	report.Saturated = []string{"1/3"}
	report.ErrorSaturated = []string{"0/2"}
	report.LUTMisses = 4

	w := NewReportWriterAdapter(dir)
	require.NoError(t, w.WriteReport(context.Background(), report))

	f, err := excelize.OpenFile(w.Path(report))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"summary", "livetime", "spectrum", "saturated"}, f.GetSheetList())

	v, err := f.GetCellValue("summary", "B2")
	require.NoError(t, err)
	assert.Equal(t, report.RunID.String(), v)

	v, err = f.GetCellValue("livetime", "B3")
	require.NoError(t, err)
	assert.Equal(t, "", v)

	rows, err := f.GetRows("saturated")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"cell", "kind"}, {"1/3", "value"}, {"0/2", "error"}}, rows)
}
