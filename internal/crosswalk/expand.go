package crosswalk

import (
	"sort"
	"strings"

	"github.com/sells-group/choropleth/internal/table"
)

// Suffix marks crosswalk columns that collide with caller columns.
const Suffix = "_omb"

// Expansion is the result of Expand.
type Expansion struct {
	// Table has one row per (input row, member county).
	Table *table.Table
	// FIPSColumn names the member county code column: "fips", or "fips_omb"
	// when the caller already has a fips column.
	FIPSColumn string
	// Unmatched holds the distinct, sorted CBSA codes with no crosswalk entry.
	Unmatched []string
	// Blank counts input rows with an empty CBSA code. They are dropped.
	Blank int
}

// Expand inner-joins attrs against the crosswalk on cbsaColumn. Output
// columns are cbsa, cbsa_name, county_name, fips followed by the caller's
// columns; the caller's names win collisions and the crosswalk duplicate
// gets Suffix, repeated until the name is free. When cbsaColumn is itself "cbsa" it is emitted once. Neither
// input is modified.
func Expand(cw *Table, attrs *table.Table, cbsaColumn string) (*Expansion, error) {
	keyIdx, err := attrs.MustIndex(cbsaColumn)
	if err != nil {
		return nil, err
	}

	// Crosswalk columns whose value is already carried by the caller's key.
	var cwCols []string
	var cwPick []int
	fipsCol := ColFIPS
	taken := make(map[string]bool, len(Columns)+len(attrs.Columns))
	for _, c := range Columns {
		taken[c] = true
	}
	for _, c := range attrs.Columns {
		taken[c] = true
	}
	for i, c := range Columns {
		if c == ColCBSA && cbsaColumn == ColCBSA {
			continue
		}
		name := c
		if attrs.Has(c) {
			name = c + Suffix
			for taken[name] {
				name += Suffix
			}
			taken[name] = true
		}
		if c == ColFIPS {
			fipsCol = name
		}
		cwCols = append(cwCols, name)
		cwPick = append(cwPick, i)
	}

	cols := make([]string, 0, len(cwCols)+len(attrs.Columns))
	if cbsaColumn == ColCBSA {
		cols = append(cols, ColCBSA)
	}
	cols = append(cols, cwCols...)
	cols = append(cols, attrs.Columns...)
	if cbsaColumn == ColCBSA {
		// The caller's cbsa column is already first; drop its second copy.
		cols = removeAt(cols, len(cwCols)+1+keyIdx)
	}

	var rows [][]string
	unmatched := make(map[string]bool)
	blank := 0
	for _, r := range attrs.Rows {
		code := strings.TrimSpace(r[keyIdx])
		if code == "" {
			blank++
			continue
		}
		members := cw.Members(code)
		if len(members) == 0 {
			unmatched[code] = true
			continue
		}
		for _, m := range members {
			vals := m.values()
			row := make([]string, 0, len(cols))
			if cbsaColumn == ColCBSA {
				row = append(row, r[keyIdx])
			}
			for _, i := range cwPick {
				row = append(row, vals[i])
			}
			for j, v := range r {
				if cbsaColumn == ColCBSA && j == keyIdx {
					continue
				}
				row = append(row, v)
			}
			rows = append(rows, row)
		}
	}

	out, err := table.New(cols, rows)
	if err != nil {
		return nil, err
	}
	exp := &Expansion{Table: out, FIPSColumn: fipsCol, Blank: blank, Unmatched: make([]string, 0, len(unmatched))}
	for c := range unmatched {
		exp.Unmatched = append(exp.Unmatched, c)
	}
	sort.Strings(exp.Unmatched)
	return exp, nil
}

func removeAt(s []string, i int) []string {
	out := make([]string, 0, len(s)-1)
	out = append(out, s[:i]...)
	return append(out, s[i+1:]...)
}
