package report

import (
	"errors"
	"fmt"

	"github.com/nurpe/payroll-breakdowns/internal/model"
)

const MinColumns = 3

var ErrUnknownColumn = errors.New("unknown column")

var technicianHeaderGuesses = []string{"Technician", "Tech", "Worker", "Employee", "Name"}

// DefaultRoles picks the first column as date, a technician-looking header
// (or the second column) as technician, and the last column as job fee.
func DefaultRoles(headers []string) model.ColumnRoles {
	if len(headers) == 0 {
		return model.ColumnRoles{}
	}
	roles := model.ColumnRoles{
		Date:   headers[0],
		JobFee: headers[len(headers)-1],
	}
	for _, guess := range technicianHeaderGuesses {
		for _, h := range headers {
			if h == guess {
				roles.Technician = h
				return roles
			}
		}
	}
	if len(headers) > 1 {
		roles.Technician = headers[1]
	}
	return roles
}

// ResolveRoles fills empty roles from DefaultRoles and checks that every role
// names a header of the table.
func ResolveRoles(table model.Table, roles model.ColumnRoles) (model.ColumnRoles, error) {
	defaults := DefaultRoles(table.Headers)
	if roles.Date == "" {
		roles.Date = defaults.Date
	}
	if roles.Technician == "" {
		roles.Technician = defaults.Technician
	}
	if roles.JobFee == "" {
		roles.JobFee = defaults.JobFee
	}

	checks := []struct {
		role   string
		column string
	}{
		{"date", roles.Date},
		{"technician", roles.Technician},
		{"job fee", roles.JobFee},
	}
	for _, c := range checks {
		if table.ColumnIndex(c.column) < 0 {
			return roles, fmt.Errorf("%w: %s column %q", ErrUnknownColumn, c.role, c.column)
		}
	}
	return roles, nil
}
