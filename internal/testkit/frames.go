package testkit

import (
	"fmt"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"stixdc/domain/core"
	"stixdc/domain/instrument"
	"stixdc/domain/science"
	"stixdc/internal/compression"
)

// FrameGeneratorConfig configures the synthetic science frame generator
type FrameGeneratorConfig struct {
	TimeBins int       `json:"time_bins"`
	TimeDel  float64   `json:"timedel"`
	T0       time.Time `json:"t0"`
	// CountRate is the mean count rate per pixel and energy channel (1/s)
	CountRate float64 `json:"count_rate"`
	// TriggerRate is the mean trigger rate per trigger group (1/s)
	TriggerRate float64      `json:"trigger_rate"`
	Mask        science.Mask `json:"mask"`
	Seed        uint64       `json:"seed"`
	// Compress round-trips every value through the named scheme so the
	// frame only holds values the instrument can transmit
	Compress bool `json:"compress"`
}

// DefaultFrameConfig returns a short, quiet observation with all channels enabled
func DefaultFrameConfig() FrameGeneratorConfig {
	return FrameGeneratorConfig{
		TimeBins:    8,
		TimeDel:     4,
		T0:          time.Date(2022, 3, 31, 17, 30, 0, 0, time.UTC),
		CountRate:   2,
		TriggerRate: 2000,
		Mask:        science.FullMask(),
		Seed:        42,
	}
}

// FrameGenerator draws Poisson counts and triggers for synthetic frames
type FrameGenerator struct {
	config FrameGeneratorConfig
	src    rand.Source
}

// NewFrameGenerator creates a new frame generator
func NewFrameGenerator(config FrameGeneratorConfig) *FrameGenerator {
	return &FrameGenerator{
		config: config,
		src:    rand.NewPCG(config.Seed, config.Seed^0x9e3779b97f4a7c15),
	}
}

// Generate builds a frame with contiguous time bins
func (g *FrameGenerator) Generate() (*science.Frame, error) {
	cfg := g.config
	if cfg.TimeBins <= 0 || cfg.TimeDel <= 0 {
		return nil, fmt.Errorf("testkit: need positive time bins and timedel, got %d and %g", cfg.TimeBins, cfg.TimeDel)
	}
	counts := distuv.Poisson{Lambda: cfg.CountRate * cfg.TimeDel, Src: g.src}
	triggers := distuv.Poisson{Lambda: cfg.TriggerRate * cfg.TimeDel, Src: g.src}

	f := newFrame(cfg.TimeBins, cfg.TimeDel, cfg.T0, cfg.Mask)
	for t := 0; t < cfg.TimeBins; t++ {
		for d := range f.Counts[t] {
			for p := range f.Counts[t][d] {
				for e := range f.Counts[t][d][p] {
					if cfg.Mask[e] && cfg.CountRate > 0 {
						f.Counts[t][d][p][e] = counts.Rand()
					}
				}
			}
		}
		for grp := range f.Triggers[t] {
			if cfg.TriggerRate > 0 {
				f.Triggers[t][grp] = triggers.Rand()
			}
		}
	}
	if cfg.Compress {
		if err := compressFrame(f); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// UniformFrame builds a frame where every pixel channel holds counts and
// every trigger group holds triggers, in each of n bins of timedel seconds
func UniformFrame(n int, counts, triggers, timedel float64) *science.Frame {
	f := newFrame(n, timedel, time.Date(2022, 3, 31, 17, 30, 0, 0, time.UTC), science.FullMask())
	for t := 0; t < n; t++ {
		for d := range f.Counts[t] {
			for p := range f.Counts[t][d] {
				for e := range f.Counts[t][d][p] {
					f.Counts[t][d][p][e] = counts
				}
			}
		}
		for grp := range f.Triggers[t] {
			f.Triggers[t][grp] = triggers
		}
	}
	return f
}

func newFrame(n int, timedel float64, t0 time.Time, mask science.Mask) *science.Frame {
	f := &science.Frame{
		RequestID:     core.RequestID(core.NewID()),
		T0:            t0,
		Time:          make([]float64, n),
		TimeDel:       make([]float64, n),
		Counts:        make([]science.PixelCounts, n),
		Triggers:      make([]science.TriggerCounts, n),
		RCR:           make([]int, n),
		EnergyBinMask: mask,
		EnergyBins:    instrument.NominalEnergyBins(),
	}
	for t := 0; t < n; t++ {
		f.TimeDel[t] = timedel
		f.Time[t] = (float64(t) + 0.5) * timedel
	}
	return f
}

// compressFrame replaces counts and triggers by the value the counts
// scheme reconstructs them to
func compressFrame(f *science.Frame) error {
	sc := compression.Schemes["counts"]
	round := func(v float64) (float64, error) {
		b, err := compression.Compress(int64(v), sc)
		if err != nil {
			return 0, err
		}
		value, _, ok := compression.Decompress(b, sc)
		if !ok {
			return 0, fmt.Errorf("testkit: byte %d not decodable with %s", b, sc)
		}
		return value, nil
	}
	var err error
	for t := range f.Counts {
		for d := range f.Counts[t] {
			for p := range f.Counts[t][d] {
				for e := range f.Counts[t][d][p] {
					if f.Counts[t][d][p][e], err = round(f.Counts[t][d][p][e]); err != nil {
						return err
					}
				}
			}
		}
		for grp := range f.Triggers[t] {
			if f.Triggers[t][grp], err = round(f.Triggers[t][grp]); err != nil {
				return err
			}
		}
	}
	return nil
}
