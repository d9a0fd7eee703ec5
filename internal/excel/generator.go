package excel

import (
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/nurpe/payroll-breakdowns/internal/model"
	"github.com/nurpe/payroll-breakdowns/internal/report"
)

const (
	minColWidth = 10
	maxColWidth = 60
	colPadding  = 2

	currencyFormat = `"$"#,##0.00_-`
	dateFormat     = "yyyy-mm-dd"
	dateTimeFormat = "yyyy-mm-dd hh:mm:ss"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

type styles struct {
	header      int
	total       int
	amount      int
	totalAmount int
	date        int
	dateTime    int
}

// Generate writes a single-sheet workbook: the header, one row per job, the
// charge lines and a closing total row. Amount is always the last column.
func (g *Generator) Generate(r model.Report) ([]byte, error) {
	file := excelize.NewFile()
	defer func() { _ = file.Close() }()

	sheet := r.SheetName
	if err := file.SetSheetName(file.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("set sheet name: %w", err)
	}

	st, err := newStyles(file)
	if err != nil {
		return nil, err
	}

	lastCol := len(r.Columns)
	widths := newWidthTracker(r.Columns)

	header := make([]interface{}, len(r.Columns))
	for i, name := range r.Columns {
		header[i] = name
	}
	if err := setRow(file, sheet, 1, header); err != nil {
		return nil, err
	}
	if err := setStyle(file, sheet, 1, 1, lastCol, 1, st.header); err != nil {
		return nil, err
	}

	row := 2
	for i, values := range r.Rows {
		cells := make([]interface{}, 0, lastCol)
		for col, v := range values {
			cells = append(cells, cellValue(v))
			widths.observe(col, v.Text())
			if v.Kind == model.ValueTime {
				style := st.date
				if !isMidnight(v.Time) {
					style = st.dateTime
				}
				if err := setStyle(file, sheet, col+1, row, col+1, row, style); err != nil {
					return nil, err
				}
			}
		}
		amount := r.Amounts[i]
		cells = append(cells, r.Technician.RatePct, amount.InexactFloat64())
		widths.observe(lastCol-2, strconv.FormatFloat(r.Technician.RatePct, 'f', -1, 64))
		widths.observe(lastCol-1, report.FormatUSD(amount))
		if err := setRow(file, sheet, row, cells); err != nil {
			return nil, err
		}
		row++
	}

	for _, line := range r.Charges {
		if err := setLabelRow(file, sheet, row, lastCol, line.Label, line.Amount.InexactFloat64()); err != nil {
			return nil, err
		}
		widths.observe(0, line.Label)
		widths.observe(lastCol-1, report.FormatUSD(line.Amount))
		row++
	}

	totalRow := row
	if err := setLabelRow(file, sheet, totalRow, lastCol, report.TotalLabel, r.Total.InexactFloat64()); err != nil {
		return nil, err
	}
	widths.observe(0, report.TotalLabel)
	widths.observe(lastCol-1, report.FormatUSD(r.Total))

	if err := setStyle(file, sheet, lastCol, 2, lastCol, totalRow, st.amount); err != nil {
		return nil, err
	}
	if lastCol > 1 {
		if err := setStyle(file, sheet, 1, totalRow, lastCol-1, totalRow, st.total); err != nil {
			return nil, err
		}
	}
	if err := setStyle(file, sheet, lastCol, totalRow, lastCol, totalRow, st.totalAmount); err != nil {
		return nil, err
	}

	for col, width := range widths.widths() {
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return nil, err
		}
		if err := file.SetColWidth(sheet, name, name, width); err != nil {
			return nil, fmt.Errorf("set col width %s: %w", name, err)
		}
	}

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}

func newStyles(file *excelize.File) (styles, error) {
	currency := currencyFormat
	date := dateFormat
	dateTime := dateTimeFormat

	var st styles
	defs := []struct {
		target *int
		style  *excelize.Style
	}{
		{&st.header, &excelize.Style{
			Font:      &excelize.Font{Bold: true},
			Alignment: &excelize.Alignment{Vertical: "center"},
		}},
		{&st.total, &excelize.Style{
			Font: &excelize.Font{Bold: true},
		}},
		{&st.amount, &excelize.Style{
			Alignment:    &excelize.Alignment{Horizontal: "right"},
			CustomNumFmt: &currency,
		}},
		{&st.totalAmount, &excelize.Style{
			Font:         &excelize.Font{Bold: true},
			Alignment:    &excelize.Alignment{Horizontal: "right"},
			CustomNumFmt: &currency,
		}},
		{&st.date, &excelize.Style{CustomNumFmt: &date}},
		{&st.dateTime, &excelize.Style{CustomNumFmt: &dateTime}},
	}
	for _, def := range defs {
		id, err := file.NewStyle(def.style)
		if err != nil {
			return styles{}, fmt.Errorf("create style: %w", err)
		}
		*def.target = id
	}
	return st, nil
}

func setRow(file *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := file.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

// setLabelRow writes a label in the first column and an amount in the last,
// leaving everything between blank.
func setLabelRow(file *excelize.File, sheet string, row, lastCol int, label string, amount float64) error {
	values := make([]interface{}, lastCol)
	values[0] = label
	values[lastCol-1] = amount
	return setRow(file, sheet, row, values)
}

func setStyle(file *excelize.File, sheet string, fromCol, fromRow, toCol, toRow, style int) error {
	from, err := excelize.CoordinatesToCellName(fromCol, fromRow)
	if err != nil {
		return err
	}
	to, err := excelize.CoordinatesToCellName(toCol, toRow)
	if err != nil {
		return err
	}
	if err := file.SetCellStyle(sheet, from, to, style); err != nil {
		return fmt.Errorf("set style %s:%s: %w", from, to, err)
	}
	return nil
}

func cellValue(v model.Value) interface{} {
	switch v.Kind {
	case model.ValueString:
		return v.Str
	case model.ValueNumber:
		return v.Num
	case model.ValueTime:
		return v.Time
	default:
		return nil
	}
}

type widthTracker struct {
	longest []int
}

func newWidthTracker(columns []string) *widthTracker {
	w := &widthTracker{longest: make([]int, len(columns))}
	for i, name := range columns {
		w.observe(i, name)
	}
	return w
}

func (w *widthTracker) observe(col int, text string) {
	if col < 0 || col >= len(w.longest) {
		return
	}
	if n := utf8.RuneCountInString(text); n > w.longest[col] {
		w.longest[col] = n
	}
}

// widths sizes each column to its longest value plus padding, kept within
// [minColWidth, maxColWidth].
func (w *widthTracker) widths() []float64 {
	out := make([]float64, len(w.longest))
	for i, n := range w.longest {
		out[i] = float64(min(max(minColWidth, n+colPadding), maxColWidth))
	}
	return out
}

func isMidnight(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0
}
