package registry

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nurpe/payroll-breakdowns/internal/model"
)

type profileFile struct {
	Technicians []profileEntry `yaml:"technicians"`
}

type profileEntry struct {
	Name    string   `yaml:"name"`
	RatePct *float64 `yaml:"rate_pct"`
	Truck   bool     `yaml:"truck"`
	Meter   bool     `yaml:"meter"`
}

// LoadProfiles reads a YAML document of the form
//
//	technicians:
//	  - name: Ann
//	    rate_pct: 30
//	    truck: true
//
// Entries without rate_pct get DefaultRatePct.
func LoadProfiles(r io.Reader) ([]model.TechnicianProfile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}

	var pf profileFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse profiles: %w", err)
	}

	profiles := make([]model.TechnicianProfile, 0, len(pf.Technicians))
	for i, entry := range pf.Technicians {
		if strings.TrimSpace(entry.Name) == "" {
			return nil, fmt.Errorf("technician %d: name is required", i+1)
		}
		rate := DefaultRatePct
		if entry.RatePct != nil {
			rate = *entry.RatePct
		}
		if err := ValidateRate(rate, 0); err != nil {
			return nil, fmt.Errorf("technician %q: %w", entry.Name, err)
		}
		profiles = append(profiles, model.TechnicianProfile{
			Name:    entry.Name,
			RatePct: rate,
			Truck:   entry.Truck,
			Meter:   entry.Meter,
		})
	}
	return profiles, nil
}

func LoadProfilesFile(path string) ([]model.TechnicianProfile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadProfiles(f)
}

// Apply adds every profile and then overwrites its fields, so values from a
// file replace the seeded defaults for names that already exist.
func (r *Registry) Apply(profiles []model.TechnicianProfile) {
	for _, p := range profiles {
		name := strings.TrimSpace(p.Name)
		r.Ensure(name, p.RatePct, p.Truck, p.Meter)
		r.UpsertFields(name, p.RatePct, p.Truck, p.Meter)
	}
}
