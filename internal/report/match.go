package report

import (
	"sort"

	"github.com/nurpe/payroll-breakdowns/internal/model"
)

type MatchResult struct {
	Matched             []string `json:"matched"`
	UnmatchedInFile     []string `json:"unmatched_in_file"`
	UnmatchedInRegistry []string `json:"unmatched_in_registry"`
}

// Match intersects the distinct technician names of the file with the
// registry by exact string equality. File names come back sorted; registry
// leftovers keep registry order.
func Match(table model.Table, techColumn string, profiles []model.TechnicianProfile) MatchResult {
	registered := make(map[string]struct{}, len(profiles))
	for _, p := range profiles {
		registered[p.Name] = struct{}{}
	}

	inFile := FileTechnicians(table, techColumn)
	seen := make(map[string]struct{}, len(inFile))

	result := MatchResult{Matched: []string{}, UnmatchedInFile: []string{}, UnmatchedInRegistry: []string{}}
	for _, name := range inFile {
		seen[name] = struct{}{}
		if _, ok := registered[name]; ok {
			result.Matched = append(result.Matched, name)
		} else {
			result.UnmatchedInFile = append(result.UnmatchedInFile, name)
		}
	}
	for _, p := range profiles {
		if _, ok := seen[p.Name]; !ok {
			result.UnmatchedInRegistry = append(result.UnmatchedInRegistry, p.Name)
		}
	}
	return result
}

// FileTechnicians returns the sorted distinct non-empty values of the
// technician column.
func FileTechnicians(table model.Table, techColumn string) []string {
	idx := table.ColumnIndex(techColumn)
	if idx < 0 {
		return nil
	}
	set := make(map[string]struct{})
	for _, row := range table.Rows {
		v := table.Cell(row, idx)
		if v.IsEmpty() {
			continue
		}
		set[v.Text()] = struct{}{}
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RowsFor returns a table with the same headers holding only the rows whose
// technician column equals name.
func RowsFor(table model.Table, techColumn, name string) model.Table {
	idx := table.ColumnIndex(techColumn)
	subset := model.Table{Headers: table.Headers}
	if idx < 0 {
		return subset
	}
	for _, row := range table.Rows {
		v := table.Cell(row, idx)
		if !v.IsEmpty() && v.Text() == name {
			subset.Rows = append(subset.Rows, row)
		}
	}
	return subset
}
