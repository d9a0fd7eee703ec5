package registry

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/payroll-breakdowns/internal/model"
)

func TestNewSeedsStarterTechnicians(t *testing.T) {
	r := New()

	require.Equal(t, len(seedNames), r.Len())
	for _, name := range seedNames {
		p, ok := r.Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, model.TechnicianProfile{Name: name, RatePct: 25}, p)
	}
	assert.Equal(t, "John Doe", r.List()[0].Name)
}

func TestLookupIsExactMatch(t *testing.T) {
	r := New()

	_, ok := r.Lookup("john doe")
	assert.False(t, ok)
	_, ok = r.Lookup(" John Doe")
	assert.False(t, ok)
	_, ok = r.Lookup("John Doe")
	assert.True(t, ok)
}

func TestEnsureIsIdempotent(t *testing.T) {
	r := NewEmpty()

	require.True(t, r.Ensure("Ann", 25, true, false))
	require.False(t, r.Ensure("Ann", 40, false, true))

	p, ok := r.Lookup("Ann")
	require.True(t, ok)
	assert.Equal(t, model.TechnicianProfile{Name: "Ann", RatePct: 25, Truck: true}, p)
	assert.Equal(t, 1, r.Len())
}

func TestEnsureTrimsName(t *testing.T) {
	r := NewEmpty()

	require.True(t, r.Ensure("  Ann  ", 30, false, false))
	require.False(t, r.Ensure("Ann", 10, false, false))
	require.False(t, r.Ensure("   ", 10, false, false))

	p, ok := r.Lookup("Ann")
	require.True(t, ok)
	assert.Equal(t, 30.0, p.RatePct)
	assert.Equal(t, 1, r.Len())
}

func TestUpsertFields(t *testing.T) {
	r := New()

	require.True(t, r.UpsertFields("Clyde Owen", 40, true, true))
	p, _ := r.Lookup("Clyde Owen")
	assert.Equal(t, model.TechnicianProfile{Name: "Clyde Owen", RatePct: 40, Truck: true, Meter: true}, p)

	before := r.List()
	assert.False(t, r.UpsertFields("Nobody", 10, true, true))
	assert.Equal(t, before, r.List())
}

func TestListReturnsCopy(t *testing.T) {
	r := New()

	list := r.List()
	list[0].RatePct = 99

	p, _ := r.Lookup(list[0].Name)
	assert.Equal(t, DefaultRatePct, p.RatePct)
}

func TestValidateRate(t *testing.T) {
	tests := []struct {
		name    string
		rate    float64
		max     float64
		wantErr bool
	}{
		{name: "zero", rate: 0, max: 1000},
		{name: "typical", rate: 25, max: 1000},
		{name: "at cap", rate: 1000, max: 1000},
		{name: "above cap", rate: 1000.5, max: 1000, wantErr: true},
		{name: "negative", rate: -1, max: 1000, wantErr: true},
		{name: "no cap", rate: 5000, max: 0},
		{name: "nan", rate: math.NaN(), max: 0, wantErr: true},
		{name: "inf", rate: math.Inf(1), max: 1000, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRate(tt.rate, tt.max)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLoadProfilesAndApply(t *testing.T) {
	doc := `
technicians:
  - name: Ann
    rate_pct: 30
    truck: true
  - name: John Doe
    rate_pct: 35
    meter: true
  - name: Bea
`
	profiles, err := LoadProfiles(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, profiles, 3)
	assert.Equal(t, DefaultRatePct, profiles[2].RatePct)

	r := New()
	r.Apply(profiles)

	ann, ok := r.Lookup("Ann")
	require.True(t, ok)
	assert.Equal(t, model.TechnicianProfile{Name: "Ann", RatePct: 30, Truck: true}, ann)

	john, _ := r.Lookup("John Doe")
	assert.Equal(t, model.TechnicianProfile{Name: "John Doe", RatePct: 35, Meter: true}, john)
	assert.Equal(t, len(seedNames)+2, r.Len())
}

func TestLoadProfilesRejectsBadEntries(t *testing.T) {
	_, err := LoadProfiles(strings.NewReader("technicians:\n  - rate_pct: 10\n"))
	require.Error(t, err)

	_, err = LoadProfiles(strings.NewReader("technicians:\n  - name: Ann\n    rate_pct: -5\n"))
	require.Error(t, err)

	for _, rate := range []string{".nan", ".inf", "-.inf"} {
		_, err = LoadProfiles(strings.NewReader("technicians:\n  - name: Ann\n    rate_pct: " + rate + "\n"))
		assert.Error(t, err, rate)
	}

	_, err = LoadProfiles(strings.NewReader("technicians: [\n"))
	require.Error(t, err)
}
