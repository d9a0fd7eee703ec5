package registry

import (
	"fmt"
	"math"
	"strings"

	"github.com/nurpe/payroll-breakdowns/internal/model"
)

const DefaultRatePct = 25.0

var seedNames = []string{
	"John Doe",
	"Nathan Stevens",
	"Spencer Monahan",
	"Mikal Segall",
	"Jonathan Moss",
	"Bob Rhyss",
	"Clyde Owen",
}

// Registry holds the technician profiles of one session. It is not safe for
// concurrent use; the owning session serialises access.
type Registry struct {
	profiles []model.TechnicianProfile
	index    map[string]int
}

// New returns a registry pre-seeded with the starter technicians.
func New() *Registry {
	r := NewEmpty()
	for _, name := range seedNames {
		r.Ensure(name, DefaultRatePct, false, false)
	}
	return r
}

func NewEmpty() *Registry {
	return &Registry{index: make(map[string]int)}
}

func (r *Registry) Lookup(name string) (model.TechnicianProfile, bool) {
	pos, ok := r.index[name]
	if !ok {
		return model.TechnicianProfile{}, false
	}
	return r.profiles[pos], true
}

// Ensure creates a profile for the trimmed name unless one already exists.
// It reports whether a profile was created.
func (r *Registry) Ensure(name string, ratePct float64, truck, meter bool) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	if _, ok := r.index[name]; ok {
		return false
	}
	r.profiles = append(r.profiles, model.TechnicianProfile{
		Name:    name,
		RatePct: ratePct,
		Truck:   truck,
		Meter:   meter,
	})
	r.index[name] = len(r.profiles) - 1
	return true
}

// UpsertFields replaces the rate and flags of an existing profile. Unknown
// names are left alone and reported as false.
func (r *Registry) UpsertFields(name string, ratePct float64, truck, meter bool) bool {
	pos, ok := r.index[name]
	if !ok {
		return false
	}
	p := &r.profiles[pos]
	p.RatePct = ratePct
	p.Truck = truck
	p.Meter = meter
	return true
}

// List returns a copy of the profiles in insertion order.
func (r *Registry) List() []model.TechnicianProfile {
	out := make([]model.TechnicianProfile, len(r.profiles))
	copy(out, r.profiles)
	return out
}

func (r *Registry) Names() map[string]struct{} {
	names := make(map[string]struct{}, len(r.index))
	for name := range r.index {
		names[name] = struct{}{}
	}
	return names
}

func (r *Registry) Len() int {
	return len(r.profiles)
}

// ValidateRate checks a rate against the non-negative lower bound and the
// configured upper cap. A cap of zero or less disables the upper check.
func ValidateRate(ratePct, maxPct float64) error {
	if math.IsNaN(ratePct) || math.IsInf(ratePct, 0) {
		return fmt.Errorf("rate_pct must be a finite number")
	}
	if ratePct < 0 {
		return fmt.Errorf("rate_pct must not be negative")
	}
	if maxPct > 0 && ratePct > maxPct {
		return fmt.Errorf("rate_pct must not exceed %g", maxPct)
	}
	return nil
}
