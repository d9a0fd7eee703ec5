package pdf

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/nurpe/payroll-breakdowns/internal/model"
	"github.com/nurpe/payroll-breakdowns/internal/report"
)

const fontName = "Helvetica"

var (
	headers   = []string{"Technician", "Jobs", "Job pay", "Charges", "Total"}
	colWidths = []float64{70, 20, 30, 30, 30}
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate renders the weekly summary: one row per technician, a grand total
// and the names that could not be matched in either direction.
func (g *Generator) Generate(summary model.Summary) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetTitle("Weekly technician summary", false)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont(fontName, "B", 14)
	pdf.CellFormat(0, 10, "Weekly technician summary", "", 1, "C", false, 0, "")
	pdf.SetFont(fontName, "", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated %s", summary.Date.Format("2006-01-02")), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	drawTableRow(pdf, headers, true)
	for _, line := range summary.Lines {
		drawTableRow(pdf, []string{
			tr(line.Technician),
			strconv.Itoa(line.Jobs),
			report.FormatUSD(line.JobAmount),
			report.FormatUSD(line.Charges),
			report.FormatUSD(line.Total),
		}, false)
	}

	pdf.SetFont(fontName, "B", 10)
	labelWidth := colWidths[0] + colWidths[1] + colWidths[2] + colWidths[3]
	pdf.CellFormat(labelWidth, 8, report.TotalLabel, "1", 0, "L", false, 0, "")
	pdf.CellFormat(colWidths[4], 8, report.FormatUSD(summary.GrandTotal), "1", 1, "R", false, 0, "")

	pdf.Ln(4)
	nameList(pdf, tr, "In the file but not in the technician list", summary.UnmatchedInFile)
	nameList(pdf, tr, "In the technician list but not in the file", summary.UnmatchedInRegistry)

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func drawTableRow(pdf *gofpdf.Fpdf, cols []string, header bool) {
	style := ""
	if header {
		style = "B"
	}
	pdf.SetFont(fontName, style, 10)
	for i, col := range cols {
		align := "L"
		if i > 0 {
			align = "R"
		}
		pdf.CellFormat(colWidths[i], 8, col, "1", 0, align, false, 0, "")
	}
	pdf.Ln(-1)
}

func nameList(pdf *gofpdf.Fpdf, tr func(string) string, title string, names []string) {
	pdf.SetFont(fontName, "B", 11)
	pdf.CellFormat(0, 7, title, "", 1, "L", false, 0, "")
	pdf.SetFont(fontName, "", 10)
	if len(names) == 0 {
		pdf.CellFormat(0, 6, "none", "", 1, "L", false, 0, "")
		return
	}
	pdf.MultiCell(0, 5, tr(strings.Join(names, ", ")), "", "L", false)
	pdf.Ln(2)
}
