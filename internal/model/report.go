package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type ChargeKind string

const (
	ChargeTruck    ChargeKind = "TRUCK_CHARGE"
	ChargeMeter    ChargeKind = "METER_FEE"
	ChargeFixedFee ChargeKind = "FIXED_SERVICE_FEE"
)

type ChargeLine struct {
	Kind   ChargeKind
	Label  string
	Amount decimal.Decimal
}

// Report is one technician's computed breakdown. Columns ends with the rate
// and amount columns; Rows holds the copied input values for the other columns.
type Report struct {
	SheetName  string
	Technician TechnicianProfile
	Columns    []string
	Rows       [][]Value
	Amounts    []decimal.Decimal
	Charges    []ChargeLine
	JobTotal   decimal.Decimal
	Total      decimal.Decimal
}

type SummaryLine struct {
	Technician string
	Jobs       int
	JobAmount  decimal.Decimal
	Charges    decimal.Decimal
	Total      decimal.Decimal
}

type Summary struct {
	Date                time.Time
	Lines               []SummaryLine
	GrandTotal          decimal.Decimal
	UnmatchedInFile     []string
	UnmatchedInRegistry []string
}
