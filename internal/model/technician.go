package model

type TechnicianProfile struct {
	Name    string  `json:"name" yaml:"name"`
	RatePct float64 `json:"rate_pct" yaml:"rate_pct"`
	Truck   bool    `json:"truck" yaml:"truck"`
	Meter   bool    `json:"meter" yaml:"meter"`
}
