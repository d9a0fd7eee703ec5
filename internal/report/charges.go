package report

import "github.com/shopspring/decimal"

const (
	TruckChargeLabel = "Truck Charge"
	MeterFeeLabel    = "Meter Fee"
	TotalLabel       = "Total:"

	DefaultServiceFeeLabel = "Penguin Data Fee"
	DefaultTruckMaxDays    = 3
)

var (
	DefaultTruckPerDay = decimal.NewFromInt(50)
	DefaultMeterFee    = decimal.NewFromInt(25)
	DefaultServiceFee  = decimal.RequireFromString("6.25")
)

// Charges holds the fixed fee schedule applied on top of a technician's jobs.
type Charges struct {
	TruckPerDay     decimal.Decimal
	TruckMaxDays    int
	MeterFee        decimal.Decimal
	ServiceFee      decimal.Decimal
	ServiceFeeLabel string
}

func DefaultCharges() Charges {
	return Charges{
		TruckPerDay:     DefaultTruckPerDay,
		TruckMaxDays:    DefaultTruckMaxDays,
		MeterFee:        DefaultMeterFee,
		ServiceFee:      DefaultServiceFee,
		ServiceFeeLabel: DefaultServiceFeeLabel,
	}
}

// TruckFee is TruckPerDay times the distinct day count, capped at TruckMaxDays.
func (c Charges) TruckFee(days int) decimal.Decimal {
	if days > c.TruckMaxDays {
		days = c.TruckMaxDays
	}
	if days < 0 {
		days = 0
	}
	return c.TruckPerDay.Mul(decimal.NewFromInt(int64(days)))
}

func (c Charges) serviceLabel() string {
	if c.ServiceFeeLabel == "" {
		return DefaultServiceFeeLabel
	}
	return c.ServiceFeeLabel
}
