package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stixdc/internal/compression"
	"stixdc/internal/errors"
	"stixdc/internal/livetime"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, livetime.DefaultParams(), cfg.LiveTime.Params)
	assert.Equal(t, 4, cfg.LiveTime.Workers)
	assert.Equal(t, "solarblack_carbon", cfg.Transmission.SolarBlack)
	assert.Equal(t, "mean", cfg.Transmission.MatList)
	assert.Equal(t, compression.Scheme{S: 0, K: 5, M: 3}, cfg.Compression.Counts)
	assert.Equal(t, ".", cfg.Output.ReportDir)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("STIX_FPGA_TAU", "10.1e-6")
	t.Setenv("STIX_ASIC_TAU", "2.63e-6")
	t.Setenv("STIX_WORKERS", "8")
	t.Setenv("STIX_MATLIST", "old")
	t.Setenv("STIX_TRIGGERS_SCHEME", "s0k4m4")

	cfg, err := Load()
	require.NoError(t, err)

	assert.InDelta(t, 10.1e-6, cfg.LiveTime.Params.FPGATau, 1e-18)
	assert.InDelta(t, 2.63e-6, cfg.LiveTime.Params.ASICTau, 1e-18)
	assert.Equal(t, 0.94, cfg.LiveTime.Params.Beta)
	assert.Equal(t, 8, cfg.LiveTime.Workers)
	assert.Equal(t, "old", cfg.TransmissionOptions().MatList)
	assert.Equal(t, compression.Scheme{S: 0, K: 4, M: 4}, cfg.Compression.Triggers)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unparsable tau", "STIX_FPGA_TAU", "ten"},
		{"negative tau", "STIX_ASIC_TAU", "-1e-6"},
		{"beta out of range", "STIX_BETA", "3"},
		{"unknown material list", "STIX_MATLIST", "median"},
		{"unknown solar black", "STIX_SOLARBLACK", "graphite"},
		{"scheme over budget", "STIX_COUNTS_SCHEME", "s1k5m5"},
		{"zero workers", "STIX_WORKERS", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}
}
