package config

import (
	"fmt"
	"os"
	"strconv"

	"stixdc/internal/compression"
	"stixdc/internal/errors"
	"stixdc/internal/livetime"
	"stixdc/internal/transmission"
)

// Config represents the complete application configuration
type Config struct {
	LiveTime     LiveTimeConfig
	Transmission TransmissionConfig
	Compression  CompressionConfig
	Output       OutputConfig
	LogLevel     string
}

// LiveTimeConfig holds the dead-time constants and worker count
type LiveTimeConfig struct {
	Params  livetime.Params
	Workers int
}

// TransmissionConfig selects the material variants of the transmission model
type TransmissionConfig struct {
	SolarBlack string
	MatList    string
}

// CompressionConfig names the telemetry compression schemes
type CompressionConfig struct {
	Counts   compression.Scheme
	Triggers compression.Scheme
}

// OutputConfig holds file system paths for reports
type OutputConfig struct {
	ReportDir string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{}

	liveTimeConfig, err := loadLiveTimeConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load live-time configuration")
	}
	config.LiveTime = *liveTimeConfig

	config.Transmission = *loadTransmissionConfig()

	compressionConfig, err := loadCompressionConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load compression configuration")
	}
	config.Compression = *compressionConfig

	config.Output = OutputConfig{ReportDir: getEnvOrDefault("STIX_REPORT_DIR", ".")}
	config.LogLevel = getEnvOrDefault("LOG_LEVEL", "INFO")

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadLiveTimeConfig() (*LiveTimeConfig, error) {
	def := livetime.DefaultParams()
	fpga, err := getEnvFloat("STIX_FPGA_TAU", def.FPGATau)
	if err != nil {
		return nil, err
	}
	asic, err := getEnvFloat("STIX_ASIC_TAU", def.ASICTau)
	if err != nil {
		return nil, err
	}
	beta, err := getEnvFloat("STIX_BETA", def.Beta)
	if err != nil {
		return nil, err
	}
	return &LiveTimeConfig{
		Params:  livetime.Params{FPGATau: fpga, ASICTau: asic, Beta: beta},
		Workers: getEnvIntOrDefault("STIX_WORKERS", 4),
	}, nil
}

func loadTransmissionConfig() *TransmissionConfig {
	def := transmission.DefaultOptions()
	return &TransmissionConfig{
		SolarBlack: getEnvOrDefault("STIX_SOLARBLACK", def.SolarBlack),
		MatList:    getEnvOrDefault("STIX_MATLIST", def.MatList),
	}
}

func loadCompressionConfig() (*CompressionConfig, error) {
	counts, err := compression.ParseScheme(getEnvOrDefault("STIX_COUNTS_SCHEME", "counts"))
	if err != nil {
		return nil, errors.Wrap(err, "STIX_COUNTS_SCHEME")
	}
	triggers, err := compression.ParseScheme(getEnvOrDefault("STIX_TRIGGERS_SCHEME", "triggers"))
	if err != nil {
		return nil, errors.Wrap(err, "STIX_TRIGGERS_SCHEME")
	}
	return &CompressionConfig{Counts: counts, Triggers: triggers}, nil
}

func validateConfig(config *Config) error {
	if err := config.LiveTime.Params.Validate(); err != nil {
		return err
	}
	if config.LiveTime.Workers < 1 {
		return errors.ConfigInvalid(fmt.Sprintf("STIX_WORKERS must be positive, got %d", config.LiveTime.Workers))
	}
	if _, err := transmission.New(config.TransmissionOptions()); err != nil {
		return err
	}
	if config.Output.ReportDir == "" {
		return errors.ConfigInvalid("report directory is required")
	}
	return nil
}

// TransmissionOptions converts the transmission section to model options
func (c *Config) TransmissionOptions() transmission.Options {
	return transmission.Options{SolarBlack: c.Transmission.SolarBlack, MatList: c.Transmission.MatList}
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat fails on unparsable values: a mistyped dead-time constant must
// not fall back silently to the default
func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, errors.ConfigInvalid(fmt.Sprintf("%s: %q is not a number", key, value))
	}
	return f, nil
}
