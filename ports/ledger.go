package ports

import (
	"context"

	"stixdc/domain/run"
)

// ReportWriterPort provides append-only output of run reports
// This is the ONLY way results leave the application layer
type ReportWriterPort interface {
	WriteReport(ctx context.Context, report *run.Report) error
}
