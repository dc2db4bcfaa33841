package excel

import (
	"path/filepath"
	"strings"
)

// ExcelConfig holds configuration for a spreadsheet frame source
type ExcelConfig struct {
	FilePath string `json:"file_path"`
	// SkipZeroCounts leaves zero cells out of the counts sheet when writing
	SkipZeroCounts bool `json:"skip_zero_counts"`
}

// DefaultExcelConfig returns sensible defaults for spreadsheet frames
func DefaultExcelConfig(path string) ExcelConfig {
	return ExcelConfig{
		FilePath:       path,
		SkipZeroCounts: true,
	}
}

// isWorkbook reports whether the path names an xlsx workbook rather than a
// directory of CSV tables
func (c ExcelConfig) isWorkbook() bool {
	return strings.EqualFold(filepath.Ext(c.FilePath), ".xlsx")
}
