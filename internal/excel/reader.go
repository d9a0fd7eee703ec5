package excel

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/nurpe/payroll-breakdowns/internal/model"
	"github.com/nurpe/payroll-breakdowns/internal/report"
)

const maxXLSRows = 100000

var (
	ErrUnsupportedFormat = errors.New("unsupported file format: must be .xlsx, .xls or .csv")
	ErrEmptySheet        = errors.New("worksheet is empty")
	ErrTooFewColumns     = errors.New("the report should have at least three columns (Date, Technician, Job Fee)")
)

// ReadTable reads the first sheet of an uploaded file. The first row is the
// header; fully blank rows are skipped and short rows are padded.
func ReadTable(r io.Reader, fileName string) (model.Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return model.Table{}, fmt.Errorf("read upload: %w", err)
	}

	var header []string
	var rows [][]model.Value

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx", ".xlsm":
		header, rows, err = readXLSX(data)
	case ".xls":
		header, rows, err = readXLS(data)
	case ".csv":
		header, rows, err = readCSV(data)
	default:
		return model.Table{}, ErrUnsupportedFormat
	}
	if err != nil {
		return model.Table{}, err
	}

	width := len(header)
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	if width < report.MinColumns {
		return model.Table{}, ErrTooFewColumns
	}

	table := model.Table{Headers: normalizeHeaders(header, width)}
	for _, row := range rows {
		if isBlank(row) {
			continue
		}
		if len(row) < width {
			padded := make([]model.Value, width)
			copy(padded, row)
			row = padded
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func readXLSX(data []byte) ([]string, [][]model.Value, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("could not read Excel: %w", err)
	}
	defer func() { _ = file.Close() }()

	sheet := file.GetSheetName(0)
	if sheet == "" {
		return nil, nil, fmt.Errorf("no worksheet found")
	}

	formatted, err := file.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet: %w", err)
	}
	raw, err := file.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet: %w", err)
	}
	if len(formatted) == 0 {
		return nil, nil, ErrEmptySheet
	}

	header := formatted[0]
	dates := &dateFormats{file: file, sheet: sheet, known: make(map[int]bool)}
	rows := make([][]model.Value, 0, len(formatted)-1)
	for i := 1; i < len(formatted); i++ {
		var rawRow []string
		if i < len(raw) {
			rawRow = raw[i]
		}
		row := make([]model.Value, len(formatted[i]))
		for j, text := range formatted[i] {
			rawText := text
			if j < len(rawRow) {
				rawText = rawRow[j]
			}
			row[j] = xlsxValue(rawText, text, func() bool { return dates.isDate(j+1, i+1) })
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

// xlsxValue types a cell from its raw and displayed text. A number is taken
// as an Excel serial date when the cell's number format is a date format.
func xlsxValue(raw, display string, isDate func() bool) model.Value {
	if raw == "" {
		return model.StringValue(display)
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return model.StringValue(raw)
	}
	if isDate() {
		if t, err := excelize.ExcelDateToTime(n, false); err == nil {
			return model.TimeValue(t)
		}
	}
	return model.NumberValue(n)
}

// dateFormats remembers, per style id, whether a sheet's cell style renders
// numbers as dates or times.
type dateFormats struct {
	file  *excelize.File
	sheet string
	known map[int]bool
}

func (d *dateFormats) isDate(col, row int) bool {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return false
	}
	id, err := d.file.GetCellStyle(d.sheet, cell)
	if err != nil || id == 0 {
		return false
	}
	if known, ok := d.known[id]; ok {
		return known
	}
	style, err := d.file.GetStyle(id)
	isDate := err == nil && isDateFormat(style)
	d.known[id] = isDate
	return isDate
}

// isDateFormat reports whether a style uses one of the built-in date/time
// formats (14-22, 45-47) or a custom format with date or time tokens.
func isDateFormat(style *excelize.Style) bool {
	switch {
	case style.NumFmt >= 14 && style.NumFmt <= 22, style.NumFmt >= 45 && style.NumFmt <= 47:
		return true
	case style.CustomNumFmt != nil:
		return customDateFormat(*style.CustomNumFmt)
	default:
		return false
	}
}

// customDateFormat looks for y, m, d, h or s outside quoted literals,
// escapes and bracketed sections such as [Red] or [$-409].
func customDateFormat(format string) bool {
	section, _, _ := strings.Cut(format, ";")
	inQuote, inBracket, escaped := false, false, false
	for _, r := range strings.ToLower(section) {
		switch {
		case escaped:
			escaped = false
		case inQuote:
			inQuote = r != '"'
		case inBracket:
			if r == ']' {
				inBracket = false
			}
		case r == '\\':
			escaped = true
		case r == '"':
			inQuote = true
		case r == '[':
			inBracket = true
		case strings.ContainsRune("ymdhs", r):
			return true
		}
	}
	return false
}

func readXLS(data []byte) ([]string, [][]model.Value, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, nil, fmt.Errorf("could not read Excel: %w", err)
	}
	if workbook.NumSheets() == 0 {
		return nil, nil, fmt.Errorf("no worksheet found")
	}
	cells := workbook.ReadAllCells(maxXLSRows)
	return textRows(cells)
}

func readCSV(data []byte) ([]string, [][]model.Value, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	return textRows(records)
}

func textRows(records [][]string) ([]string, [][]model.Value, error) {
	if len(records) == 0 {
		return nil, nil, ErrEmptySheet
	}
	rows := make([][]model.Value, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make([]model.Value, len(record))
		for j, text := range record {
			row[j] = textValue(text)
		}
		rows = append(rows, row)
	}
	return records[0], rows, nil
}

func textValue(text string) model.Value {
	if strings.TrimSpace(text) == "" {
		return model.Value{}
	}
	if n, err := strconv.ParseFloat(strings.TrimSpace(text), 64); err == nil {
		return model.NumberValue(n)
	}
	return model.StringValue(text)
}

// normalizeHeaders pads the header to width, names blank headers
// "Unnamed: <i>" and suffixes repeats with ".1", ".2", ...
func normalizeHeaders(header []string, width int) []string {
	out := make([]string, width)
	used := make(map[string]bool, width)
	counts := make(map[string]int)
	for i := 0; i < width; i++ {
		name := ""
		if i < len(header) {
			name = strings.TrimSpace(header[i])
		}
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		base := name
		for used[name] {
			counts[base]++
			name = fmt.Sprintf("%s.%d", base, counts[base])
		}
		used[name] = true
		out[i] = name
	}
	return out
}

func isBlank(row []model.Value) bool {
	for _, v := range row {
		if !v.IsEmpty() {
			return false
		}
	}
	return true
}
