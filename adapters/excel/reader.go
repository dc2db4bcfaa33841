package excel

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"stixdc/internal"
)

// DataReader reads named sheets from an xlsx workbook or a directory of
// CSV files
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	logger   *internal.Logger
}

// NewDataReader creates a new data reader that handles both Excel and CSV sources
func NewDataReader(filePath string) *DataReader {
	fileType := "csv"
	if strings.EqualFold(filepath.Ext(filePath), ".xlsx") {
		fileType = "xlsx"
	}
	return &DataReader{filePath: filePath, fileType: fileType, logger: internal.DefaultLogger}
}

// ReadSheets reads the named sheets. Sheets listed in optional may be absent.
func (r *DataReader) ReadSheets(required []string, optional ...string) (map[string]*ExcelData, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s source not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	switch r.fileType {
	case "csv":
		return r.readCSVSheets(required, optional)
	case "xlsx":
		return r.readExcelSheets(required, optional)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", r.fileType)
	}
}

// readExcelSheets reads sheets of a workbook into structured format
func (r *DataReader) readExcelSheets(required, optional []string) (map[string]*ExcelData, error) {
	startTime := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()
	r.logger.Debug("[DataReader] Excel file opened in %.2fms", float64(time.Since(startTime).Nanoseconds())/1e6)

	present := make(map[string]bool)
	for _, name := range f.GetSheetList() {
		present[name] = true
	}

	out := make(map[string]*ExcelData)
	read := func(name string, must bool) error {
		if !present[name] {
			if must {
				return fmt.Errorf("workbook %s has no sheet %q", r.filePath, name)
			}
			return nil
		}
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return fmt.Errorf("failed to read sheet %s: %w", name, err)
		}
		data, err := r.processRows(name, rows)
		if err != nil {
			return err
		}
		out[name] = data
		return nil
	}
	for _, name := range required {
		if err := read(name, true); err != nil {
			return nil, err
		}
	}
	for _, name := range optional {
		if err := read(name, false); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// readCSVSheets reads <dir>/<sheet>.csv for every sheet
func (r *DataReader) readCSVSheets(required, optional []string) (map[string]*ExcelData, error) {
	out := make(map[string]*ExcelData)
	read := func(name string, must bool) error {
		path := filepath.Join(r.filePath, name+".csv")
		file, err := os.Open(path)
		if os.IsNotExist(err) && !must {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to open CSV file: %w", err)
		}
		defer file.Close()

		reader := csv.NewReader(file)
		reader.FieldsPerRecord = -1
		readStart := time.Now()
		rows, err := reader.ReadAll()
		if err != nil {
			return fmt.Errorf("failed to read CSV file %s: %w", path, err)
		}
		r.logger.Debug("[DataReader] CSV file %s read in %.2fms (%d rows)", path, float64(time.Since(readStart).Nanoseconds())/1e6, len(rows))

		data, err := r.processRows(name, rows)
		if err != nil {
			return err
		}
		out[name] = data
		return nil
	}
	for _, name := range required {
		if err := read(name, true); err != nil {
			return nil, err
		}
	}
	for _, name := range optional {
		if err := read(name, false); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// processRows converts raw string rows into ExcelData format
func (r *DataReader) processRows(sheet string, rows [][]string) (*ExcelData, error) {
	if len(rows) < 1 {
		return nil, fmt.Errorf("sheet %s must have a header row", sheet)
	}

	headerRow := rows[0]
	headers := make([]string, len(headerRow))
	for i, header := range headerRow {
		headers[i] = strings.ToLower(strings.TrimSpace(header))
	}

	var dataRows []RawRowData
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		rowData := make(RawRowData)
		empty := true
		for j, cell := range row {
			if j < len(headers) {
				rowData[headers[j]] = strings.TrimSpace(cell)
				if rowData[headers[j]] != "" {
					empty = false
				}
			}
		}
		if !empty {
			dataRows = append(dataRows, rowData)
		}
	}

	r.logger.Debug("[DataReader] sheet %s processed (%d columns, %d rows)", sheet, len(headers), len(dataRows))

	return &ExcelData{Headers: headers, Rows: dataRows}, nil
}

// Float parses a numeric cell; empty cells read as zero
func (row RawRowData) Float(col string) (float64, error) {
	s, ok := row[col]
	if !ok || s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("column %s: %q is not a number", col, s)
	}
	return v, nil
}

// Int parses an integer cell
func (row RawRowData) Int(col string) (int, error) {
	s, ok := row[col]
	if !ok || s == "" {
		return 0, fmt.Errorf("column %s is missing", col)
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		// spreadsheets store integers as floats
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int(f)) {
			return 0, fmt.Errorf("column %s: %q is not an integer", col, s)
		}
		return int(f), nil
	}
	return v, nil
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
