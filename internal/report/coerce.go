package report

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/nurpe/payroll-breakdowns/internal/model"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"1/2/2006",
	"01/02/2006",
	"1/2/06",
	"01/02/06",
	"1-2-2006",
	"01-02-2006",
	"1-2-06",
	"01-02-06",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"1/2/2006 3:04 PM",
	"01/02/2006 03:04 PM",
	"1/2/2006 15:04",
	"01/02/2006 15:04",
	"1/2/2006 15:04:05",
	"01/02/2006 15:04:05",
	"1/2/06 15:04",
	"01-02-06 15:04",
}

// CoerceNumericOrZero is the job-fee policy: numbers pass through, numeric
// strings are parsed, and everything else counts as zero.
func CoerceNumericOrZero(v model.Value) float64 {
	var n float64
	switch v.Kind {
	case model.ValueNumber:
		n = v.Num
	case model.ValueString:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0
		}
		n = parsed
	default:
		return 0
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return n
}

// ParseDate is the date policy for day counting. Numbers are read as Excel
// serial dates; strings are tried against a fixed list of layouts.
func ParseDate(v model.Value) (time.Time, bool) {
	switch v.Kind {
	case model.ValueTime:
		return v.Time, !v.Time.IsZero()
	case model.ValueNumber:
		if v.Num <= 0 || math.IsNaN(v.Num) || math.IsInf(v.Num, 0) {
			return time.Time{}, false
		}
		t, err := excelize.ExcelDateToTime(v.Num, false)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	case model.ValueString:
		raw := strings.TrimSpace(v.Str)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
