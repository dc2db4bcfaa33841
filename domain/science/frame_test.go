package science

import (
	"errors"
	"math"
	"testing"
	"time"

	"stixdc/domain/core"
	"stixdc/domain/instrument"
)

func filledFrame(n int, counts, timedel float64) *Frame {
	f := &Frame{
		T0:            time.Date(2022, 3, 31, 17, 30, 0, 0, time.UTC),
		Time:          make([]float64, n),
		TimeDel:       make([]float64, n),
		Counts:        make([]PixelCounts, n),
		Triggers:      make([]TriggerCounts, n),
		EnergyBinMask: FullMask(),
		EnergyBins:    instrument.NominalEnergyBins(),
	}
	for t := 0; t < n; t++ {
		f.TimeDel[t] = timedel
		f.Time[t] = (float64(t) + 0.5) * timedel
		for d := range f.Counts[t] {
			for p := range f.Counts[t][d] {
				for e := range f.Counts[t][d][p] {
					f.Counts[t][d][p][e] = counts
				}
			}
		}
	}
	return f
}

func TestFrameValidate(t *testing.T) {
	if err := filledFrame(3, 1, 2).Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}

	empty := &Frame{}
	if err := empty.Validate(); !errors.Is(err, core.ErrEmptyFrame) {
		t.Errorf("empty frame: got %v, want ErrEmptyFrame", err)
	}

	short := filledFrame(3, 1, 2)
	short.Triggers = short.Triggers[:2]
	if err := short.Validate(); !errors.Is(err, core.ErrShapeMismatch) {
		t.Errorf("short triggers: got %v, want ErrShapeMismatch", err)
	}

	badRCR := filledFrame(3, 1, 2)
	badRCR.RCR = []int{0}
	if err := badRCR.Validate(); err == nil {
		t.Error("expected error for rcr length mismatch")
	}

	zeroDel := filledFrame(2, 1, 2)
	zeroDel.TimeDel[1] = 0
	if err := zeroDel.Validate(); err == nil {
		t.Error("expected error for zero timedel")
	}

	noMask := filledFrame(2, 1, 2)
	noMask.EnergyBinMask = Mask{}
	if err := noMask.Validate(); !errors.Is(err, core.ErrEmptyMask) {
		t.Errorf("empty mask: got %v, want ErrEmptyMask", err)
	}
}

func TestFrameDuration(t *testing.T) {
	f := filledFrame(4, 1, 2)
	if got := f.Duration(); got != 8 {
		t.Errorf("Duration() = %g, want 8", got)
	}

	// unequal bins: centres at 1 and 4, widths 2 and 4
	f = filledFrame(2, 1, 2)
	f.Time = []float64{1, 4}
	f.TimeDel = []float64{2, 4}
	if got := f.Duration(); got != 6 {
		t.Errorf("Duration() = %g, want 6", got)
	}

	if got := (&Frame{}).Duration(); got != 0 {
		t.Errorf("empty Duration() = %g, want 0", got)
	}
}

func TestSpectrogramAndSpectrum(t *testing.T) {
	f := filledFrame(2, 3, 4)
	perBin := 3.0 * instrument.NumDetectors * instrument.NumPixels

	sg := f.Spectrogram()
	if len(sg) != 2 {
		t.Fatalf("len(Spectrogram()) = %d, want 2", len(sg))
	}
	if sg[1][7] != perBin {
		t.Errorf("Spectrogram()[1][7] = %g, want %g", sg[1][7], perBin)
	}

	rates := f.CountRateSpectrogram()
	if rates[0][0] != perBin/4 {
		t.Errorf("CountRateSpectrogram()[0][0] = %g, want %g", rates[0][0], perBin/4)
	}

	spec := f.Spectrum()
	if spec[31] != 2*perBin {
		t.Errorf("Spectrum()[31] = %g, want %g", spec[31], 2*perBin)
	}
}

func TestMeanPixelRate(t *testing.T) {
	f := filledFrame(2, 8, 2)
	rate, rateErr := f.MeanPixelRate()

	// 16 counts over 4 s
	if rate[5][3][10] != 4 {
		t.Errorf("rate = %g, want 4", rate[5][3][10])
	}
	if math.Abs(rateErr[5][3][10]-1) > 1e-12 {
		t.Errorf("rateErr = %g, want 1", rateErr[5][3][10])
	}

	rate, _ = MeanRate(f.Counts, 0)
	if rate[0][0][0] != 0 {
		t.Errorf("zero duration rate = %g, want 0", rate[0][0][0])
	}
}

func TestQuickLookLightCurves(t *testing.T) {
	f := filledFrame(1, 1, 1)
	lc := f.QuickLookLightCurves()
	perChannel := float64(instrument.NumDetectors * instrument.NumPixels)
	for b, band := range instrument.QuickLookBands() {
		want := float64(band[1]-band[0]) * perChannel
		if lc[0][b] != want {
			t.Errorf("band %d = %g, want %g", b, lc[0][b], want)
		}
	}
}

func TestTimeAt(t *testing.T) {
	f := filledFrame(3, 1, 4)
	want := f.T0.Add(10 * time.Second)
	if got := f.TimeAt(2); !got.Equal(want) {
		t.Errorf("TimeAt(2) = %v, want %v", got, want)
	}
}
