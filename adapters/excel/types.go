package excel

// RawRowData represents a row of raw sheet data as string key-value pairs
type RawRowData map[string]string

// ExcelData represents one sheet of a workbook or one CSV table
type ExcelData struct {
	Headers []string     // Column headers
	Rows    []RawRowData // Data rows
}

// Sheet names of a frame workbook; a CSV frame is a directory holding one
// <sheet>.csv file per sheet
const (
	SheetMeta     = "meta"
	SheetBins     = "bins"
	SheetCounts   = "counts"
	SheetEnergies = "energies"
)

// Column names
const (
	ColKey      = "key"
	ColValue    = "value"
	ColTime     = "time"
	ColTimeDel  = "timedel"
	ColRCR      = "rcr"
	ColTimeBin  = "time_bin"
	ColDetector = "detector"
	ColPixel    = "pixel"
	ColEnergy   = "energy"
	ColCounts   = "counts"
	ColChannel  = "channel"
	ColELow     = "e_low"
	ColEHigh    = "e_high"

	MetaT0        = "t0"
	MetaRequestID = "request_id"
	MetaMask      = "energy_bin_mask"
)

// triggerColumn names the column of trigger accumulator g
func triggerColumn(g int) string {
	return "trig_" + itoa(g)
}
