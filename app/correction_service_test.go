package app

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"stixdc/domain/instrument"
	"stixdc/domain/run"
	"stixdc/internal"
	"stixdc/internal/compression"
	"stixdc/internal/config"
	"stixdc/internal/errors"
	"stixdc/internal/livetime"
	"stixdc/internal/testkit"
	"stixdc/internal/transmission"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockReportWriter struct {
	mock.Mock
	reports []*run.Report
}

func (m *MockReportWriter) WriteReport(ctx context.Context, report *run.Report) error {
	args := m.Called(ctx, report)
	m.reports = append(m.reports, report)
	return args.Error(0)
}

func testConfig() *config.Config {
	def := transmission.DefaultOptions()
	return &config.Config{
		LiveTime:     config.LiveTimeConfig{Params: livetime.DefaultParams(), Workers: 2},
		Transmission: config.TransmissionConfig{SolarBlack: def.SolarBlack, MatList: def.MatList},
		Compression: config.CompressionConfig{
			Counts:   compression.Schemes["counts"],
			Triggers: compression.Schemes["triggers"],
		},
		Output:   config.OutputConfig{ReportDir: "."},
		LogLevel: "ERROR",
	}
}

func newTestService(t *testing.T, writer *MockReportWriter) *CorrectionService {
	t.Helper()
	var svc *CorrectionService
	var err error
	if writer == nil {
		svc, err = NewCorrectionService(testConfig(), nil, internal.NewLogger(internal.LogLevelError))
	} else {
		svc, err = NewCorrectionService(testConfig(), writer, internal.NewLogger(internal.LogLevelError))
	}
	require.NoError(t, err)
	return svc
}

func TestNewCorrectionService_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.LiveTime.Params.Beta = -1

	_, err := NewCorrectionService(cfg, nil, nil)
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))

	cfg = testConfig()
	cfg.Transmission.MatList = "bogus"
	_, err = NewCorrectionService(cfg, nil, nil)
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestLiveTime_WritesReport(t *testing.T) {
	writer := new(MockReportWriter)
	writer.On("WriteReport", mock.Anything, mock.AnythingOfType("*run.Report")).Return(nil)
	svc := newTestService(t, writer)

	frame := testkit.UniformFrame(2, 10, 100, 4)
	out, err := svc.LiveTime(context.Background(), frame)
	require.NoError(t, err)

	writer.AssertNumberOfCalls(t, "WriteReport", 1)
	report := out.Report
	assert.Equal(t, run.KindLiveTime, report.Kind)
	assert.Equal(t, frame.RequestID, report.RequestID)
	assert.False(t, report.RunID.String() == "")
	assert.Len(t, report.LiveTime, instrument.NumDetectors)
	assert.Empty(t, report.Saturated)
	assert.NoError(t, report.Validate())

	for _, row := range report.LiveTime {
		assert.Greater(t, row.Mean, 0.0)
		assert.LessOrEqual(t, row.Max, 1.0)
		assert.Equal(t, 2, row.Bins)
	}
	assert.Len(t, out.Result.CorrectedCounts, 2)
}

func TestLiveTime_FingerprintIsDeterministic(t *testing.T) {
	svc := newTestService(t, nil)
	frame := testkit.UniformFrame(3, 5, 50, 2)

	a, err := svc.LiveTime(context.Background(), frame)
	require.NoError(t, err)
	b, err := svc.LiveTime(context.Background(), frame)
	require.NoError(t, err)

	assert.Equal(t, a.Report.Fingerprint.Fingerprint, b.Report.Fingerprint.Fingerprint)
	assert.NotEqual(t, a.Report.RunID, b.Report.RunID)

	other := testkit.UniformFrame(3, 6, 50, 2)
	c, err := svc.LiveTime(context.Background(), other)
	require.NoError(t, err)
	assert.NotEqual(t, a.Report.Fingerprint.InputHash, c.Report.Fingerprint.InputHash)
}

func TestLiveTime_RecordsSaturation(t *testing.T) {
	svc := newTestService(t, nil)
	frame := testkit.UniformFrame(2, 10, 100, 1)
	frame.Triggers[1][3] = 1e5

	out, err := svc.LiveTime(context.Background(), frame)
	require.NoError(t, err)
	assert.Equal(t, []string{"1/3"}, out.Report.Saturated)
	assert.Error(t, out.Result.Err())
}

func TestLiveTime_RecordsErrorSaturation(t *testing.T) {
	svc := newTestService(t, nil)
	// 79000 triggers in 1 s are below saturation but 79000 + sigma is not
	frame := testkit.UniformFrame(1, 10, 79000, 1)

	out, err := svc.LiveTime(context.Background(), frame)
	require.NoError(t, err)
	assert.Empty(t, out.Report.Saturated)
	assert.Len(t, out.Report.ErrorSaturated, instrument.NumTriggerGroups)
	assert.Contains(t, out.Report.ErrorSaturated, "0/7")
	// 79000 is not a value of the s0k5m3 table
	assert.Equal(t, instrument.NumTriggerGroups, out.Report.LUTMisses)
	assert.Equal(t, errors.CodeNumericDegeneracy, errors.GetCode(out.Result.Err()))
}

func TestLiveTime_InconsistentFrame(t *testing.T) {
	svc := newTestService(t, nil)
	frame := testkit.UniformFrame(2, 10, 100, 1)
	frame.TimeDel = frame.TimeDel[:1]

	_, err := svc.LiveTime(context.Background(), frame)
	require.Error(t, err)
	assert.Equal(t, errors.CodeDataInconsistent, errors.GetCode(err))
}

func TestLiveTime_WriterFailure(t *testing.T) {
	writer := new(MockReportWriter)
	writer.On("WriteReport", mock.Anything, mock.Anything).Return(stderrors.New("disk full"))
	svc := newTestService(t, writer)

	_, err := svc.LiveTime(context.Background(), testkit.UniformFrame(1, 1, 1, 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	writer.AssertExpectations(t)
}

func TestSubtract_Spectrum(t *testing.T) {
	writer := new(MockReportWriter)
	writer.On("WriteReport", mock.Anything, mock.Anything).Return(nil)
	svc := newTestService(t, writer)

	signal := testkit.UniformFrame(2, 10, 0, 1)
	bkg := testkit.UniformFrame(2, 2, 0, 1)

	out, err := svc.Subtract(context.Background(), signal, bkg, TimeWindow{})
	require.NoError(t, err)

	// (10 - 2) counts in 32 detectors x 12 pixels x 2 bins over 2 s
	for c := 0; c < instrument.NumEnergies; c++ {
		assert.InDelta(t, 3072.0, out.Spectrum[c], 1e-9)
	}
	report := out.Report
	assert.Equal(t, run.KindSubtract, report.Kind)
	require.Len(t, report.Spectrum, instrument.NumEnergies)
	assert.Equal(t, signal.EnergyBins[5][0], report.Spectrum[5].ELow)
	assert.Equal(t, out.SpectrumErr[5], report.Spectrum[5].Error)
	writer.AssertNumberOfCalls(t, "WriteReport", 1)
}

func TestSubtract_Window(t *testing.T) {
	svc := newTestService(t, nil)
	signal := testkit.UniformFrame(4, 10, 0, 1)
	bkg := testkit.UniformFrame(2, 2, 0, 1)

	whole, err := svc.Subtract(context.Background(), signal, bkg, TimeWindow{})
	require.NoError(t, err)
	window := TimeWindow{Start: signal.T0.Add(1500 * time.Millisecond), End: signal.T0.Add(2500 * time.Millisecond)}
	part, err := svc.Subtract(context.Background(), signal, bkg, window)
	require.NoError(t, err)

	// uniform counts give the same rate over any range
	assert.InDelta(t, whole.Spectrum[3], part.Spectrum[3], 1e-9)
	assert.NotEqual(t, whole.Report.Fingerprint.InputHash, part.Report.Fingerprint.InputHash)
}

func TestSubtract_SaturatedBackground(t *testing.T) {
	svc := newTestService(t, nil)
	signal := testkit.UniformFrame(2, 10, 0, 1)
	bkg := testkit.UniformFrame(2, 2, 1e5, 1)

	_, err := svc.Subtract(context.Background(), signal, bkg, TimeWindow{})
	require.Error(t, err)
	assert.Equal(t, errors.CodeNumericDegeneracy, errors.GetCode(err))
}

func TestTransmission_AllDetectors(t *testing.T) {
	svc := newTestService(t, nil)
	bins := instrument.NominalEnergyBins()

	open, err := svc.Transmission(context.Background(), bins, false)
	require.NoError(t, err)
	closed, err := svc.Transmission(context.Background(), bins, true)
	require.NoError(t, err)

	require.Len(t, open.Transmission, instrument.NumDetectors)
	assert.Equal(t, run.KindTransmission, open.Kind)
	assert.True(t, closed.Fingerprint.Parameters.Attenuator)
	assert.NotEqual(t, open.Fingerprint.Fingerprint, closed.Fingerprint.Fingerprint)
	for det := range open.Transmission {
		assert.Equal(t, det, open.Transmission[det].Detector)
		assert.Less(t, closed.Transmission[det].Values[5], open.Transmission[det].Values[5])
	}
}
