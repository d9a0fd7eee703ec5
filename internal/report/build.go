package report

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/nurpe/payroll-breakdowns/internal/model"
)

const (
	RateColumn   = "Rate (%)"
	AmountColumn = "Amount"

	MaxSheetNameLength = 31
)

var hundred = decimal.NewFromInt(100)

// Build computes one technician's breakdown from that technician's rows.
// It never fails: bad fees count as zero and bad dates are left out of the
// truck day count.
func Build(table model.Table, profile model.TechnicianProfile, roles model.ColumnRoles, charges Charges) model.Report {
	dateIdx := table.ColumnIndex(roles.Date)
	techIdx := table.ColumnIndex(roles.Technician)
	feeIdx := table.ColumnIndex(roles.JobFee)

	order := columnOrder(table.Headers, dateIdx, techIdx)

	columns := make([]string, 0, len(order)+2)
	for _, idx := range order {
		columns = append(columns, table.Headers[idx])
	}
	columns = append(columns, RateColumn, AmountColumn)

	rate := decimal.NewFromFloat(finiteOrZero(profile.RatePct))
	rows := make([][]model.Value, 0, len(table.Rows))
	amounts := make([]decimal.Decimal, 0, len(table.Rows))
	jobTotal := decimal.Zero
	for _, src := range table.Rows {
		row := make([]model.Value, len(order))
		for i, idx := range order {
			row[i] = table.Cell(src, idx)
		}
		rows = append(rows, row)

		fee := decimal.NewFromFloat(CoerceNumericOrZero(table.Cell(src, feeIdx)))
		amount := fee.Mul(rate).Div(hundred)
		amounts = append(amounts, amount)
		jobTotal = jobTotal.Add(amount)
	}

	var lines []model.ChargeLine
	if profile.Truck {
		fee := charges.TruckFee(distinctDays(table, dateIdx))
		if fee.IsPositive() {
			lines = append(lines, model.ChargeLine{Kind: model.ChargeTruck, Label: TruckChargeLabel, Amount: fee})
		}
	}
	if profile.Meter {
		lines = append(lines, model.ChargeLine{Kind: model.ChargeMeter, Label: MeterFeeLabel, Amount: charges.MeterFee})
	}
	lines = append(lines, model.ChargeLine{Kind: model.ChargeFixedFee, Label: charges.serviceLabel(), Amount: charges.ServiceFee})

	total := jobTotal
	for _, line := range lines {
		total = total.Add(line.Amount)
	}

	return model.Report{
		SheetName:  SheetName(profile.Name),
		Technician: profile,
		Columns:    columns,
		Rows:       rows,
		Amounts:    amounts,
		Charges:    lines,
		JobTotal:   jobTotal,
		Total:      total,
	}
}

// columnOrder puts the date and technician columns first and keeps the rest
// in their original order. Input columns that clash with the computed
// rate/amount columns are dropped.
func columnOrder(headers []string, dateIdx, techIdx int) []int {
	order := make([]int, 0, len(headers))
	if dateIdx >= 0 {
		order = append(order, dateIdx)
	}
	if techIdx >= 0 && techIdx != dateIdx {
		order = append(order, techIdx)
	}
	for i, h := range headers {
		if i == dateIdx || i == techIdx || h == RateColumn || h == AmountColumn {
			continue
		}
		order = append(order, i)
	}
	return order
}

func finiteOrZero(n float64) float64 {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return n
}

func distinctDays(table model.Table, dateIdx int) int {
	if dateIdx < 0 {
		return 0
	}
	days := make(map[string]struct{})
	for _, row := range table.Rows {
		t, ok := ParseDate(table.Cell(row, dateIdx))
		if !ok {
			continue
		}
		days[dateOnly(t).Format("2006-01-02")] = struct{}{}
	}
	return len(days)
}

var sheetNameReplacer = strings.NewReplacer(
	"[", "-",
	"]", "-",
	":", "-",
	"*", "-",
	"?", "-",
	"/", "-",
	"\\", "-",
)

// SheetName makes a technician name usable as a worksheet name: characters
// Excel rejects are replaced and the result is cut to 31 characters.
func SheetName(name string) string {
	value := sheetNameReplacer.Replace(strings.TrimSpace(name))
	value = strings.Trim(value, "'")
	if utf8.RuneCountInString(value) > MaxSheetNameLength {
		value = strings.Trim(string([]rune(value)[:MaxSheetNameLength]), "'")
	}
	if strings.TrimSpace(value) == "" {
		return "Sheet1"
	}
	return value
}
