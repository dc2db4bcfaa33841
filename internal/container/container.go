package container

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"stixdc/adapters/excel"
	"stixdc/adapters/jsonframe"
	"stixdc/app"
	"stixdc/internal"
	"stixdc/internal/config"
	"stixdc/ports"
)

// Report formats understood by New
const (
	FormatJSON = "json"
	FormatXLSX = "xlsx"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Reports receives every run report; Workbooks is set when reports go
	// to xlsx files so callers can name the output
	Reports   ports.ReportWriterPort
	Workbooks *excel.ReportWriterAdapter

	Service *app.CorrectionService
}

// New creates a new dependency injection container. JSON reports are
// written to stdout, xlsx reports into the configured report directory.
func New(cfg *config.Config, format string, stdout io.Writer) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	c := &Container{
		Config: cfg,
		Logger: internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel)),
	}

	if err := c.initReports(format, stdout); err != nil {
		return nil, err
	}

	svc, err := app.NewCorrectionService(cfg, c.Reports, c.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize correction service: %w", err)
	}
	c.Service = svc

	c.Logger.Debug("container initialized: reports=%s workers=%d matlist=%s",
		format, cfg.LiveTime.Workers, cfg.Transmission.MatList)
	return c, nil
}

func (c *Container) initReports(format string, stdout io.Writer) error {
	switch format {
	case FormatJSON:
		if stdout == nil {
			stdout = os.Stdout
		}
		c.Reports = jsonframe.NewReportWriter(stdout)
	case FormatXLSX:
		c.Workbooks = excel.NewReportWriterAdapter(c.Config.Output.ReportDir)
		c.Reports = c.Workbooks
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
	return nil
}

// FrameReader picks the reader for path: .json documents go through the
// JSON adapter, anything else is an xlsx workbook or a CSV directory
func FrameReader(path string) ports.FrameReaderPort {
	if isJSON(path) {
		return jsonframe.NewFileReader(path)
	}
	return excel.NewFrameReaderAdapter(excel.DefaultExcelConfig(path))
}

// FrameWriter picks the writer for path the same way FrameReader does.
// For JSON output the returned closer must be closed after writing.
func FrameWriter(path string) (ports.FrameWriterPort, io.Closer, error) {
	if isJSON(path) {
		f, err := os.Create(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create %s: %w", path, err)
		}
		return jsonframe.NewFrameWriter(f), f, nil
	}
	return excel.NewFrameWriterAdapter(excel.DefaultExcelConfig(path)), io.NopCloser(nil), nil
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}
