package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/nurpe/payroll-breakdowns/internal/model"
)

func Summarize(reports []model.Report, match MatchResult, date time.Time) model.Summary {
	summary := model.Summary{
		Date:                date,
		GrandTotal:          decimal.Zero,
		UnmatchedInFile:     match.UnmatchedInFile,
		UnmatchedInRegistry: match.UnmatchedInRegistry,
	}
	for _, r := range reports {
		charges := decimal.Zero
		for _, c := range r.Charges {
			charges = charges.Add(c.Amount)
		}
		summary.Lines = append(summary.Lines, model.SummaryLine{
			Technician: r.Technician.Name,
			Jobs:       len(r.Rows),
			JobAmount:  r.JobTotal,
			Charges:    charges,
			Total:      r.Total,
		})
		summary.GrandTotal = summary.GrandTotal.Add(r.Total)
	}
	return summary
}

// FormatUSD renders an amount as dollars with thousands separators and two
// decimals, e.g. $1,234.50.
func FormatUSD(amount decimal.Decimal) string {
	rounded := amount.Round(2)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Neg()
	}
	return sign + "$" + humanize.FormatFloat("#,###.##", rounded.InexactFloat64())
}

func FileName(technician string, date time.Time) string {
	return fmt.Sprintf("%s_%s.xlsx", strings.ReplaceAll(technician, " ", "_"), date.Format("2006-01-02"))
}

func ArchiveName(date time.Time) string {
	return fmt.Sprintf("technician_breakdowns_%s.zip", date.Format("2006-01-02"))
}

func SummaryPDFName(date time.Time) string {
	return fmt.Sprintf("weekly_summary_%s.pdf", date.Format("2006-01-02"))
}
