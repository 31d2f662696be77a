// Package table holds caller-supplied attribute tables: ordered string
// columns so identifiers such as FIPS codes keep their leading zeros.
package table

import (
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/choropleth/internal/geoerr"
)

// Table is an ordered set of string rows sharing one column list.
type Table struct {
	Columns []string
	Rows    [][]string
}

// New builds a table, padding short rows and truncating long ones to the
// column count. Duplicate or empty column names are rejected.
func New(columns []string, rows [][]string) (*Table, error) {
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if c == "" {
			return nil, eris.New("table: empty column name")
		}
		if seen[c] {
			return nil, eris.Errorf("table: duplicate column %q", c)
		}
		seen[c] = true
	}

	t := &Table{
		Columns: append([]string(nil), columns...),
		Rows:    make([][]string, 0, len(rows)),
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, fit(r, len(columns)))
	}
	return t, nil
}

// FromMaps builds a table from keyed rows; missing keys become "".
func FromMaps(columns []string, rows []map[string]string) (*Table, error) {
	out := make([][]string, 0, len(rows))
	for _, m := range rows {
		r := make([]string, len(columns))
		for i, c := range columns {
			r[i] = m[c]
		}
		out = append(out, r)
	}
	return New(columns, out)
}

func fit(r []string, n int) []string {
	out := make([]string, n)
	copy(out, r)
	return out
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Index returns the position of col, or -1.
func (t *Table) Index(col string) int {
	for i, c := range t.Columns {
		if c == col {
			return i
		}
	}
	return -1
}

// Has reports whether the table has col.
func (t *Table) Has(col string) bool { return t.Index(col) >= 0 }

// MustIndex returns the position of col or a MissingColumn error.
func (t *Table) MustIndex(col string) (int, error) {
	i := t.Index(col)
	if i < 0 {
		return -1, geoerr.New(geoerr.MissingColumn, col)
	}
	return i, nil
}

// Column returns a copy of the values of col.
func (t *Table) Column(col string) ([]string, error) {
	i, err := t.MustIndex(col)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = row[i]
	}
	return out, nil
}

// Floats parses col as numbers. Missing or unparseable cells become NaN.
func (t *Table) Floats(col string) ([]float64, error) {
	vals, err := t.Column(col)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i] = ParseFloat(v)
	}
	return out, nil
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	c := &Table{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([][]string, len(t.Rows)),
	}
	for i, r := range t.Rows {
		c.Rows[i] = append([]string(nil), r...)
	}
	return c
}

// Map returns a copy of the table with fn applied to every cell of col.
func (t *Table) Map(col string, fn func(string) string) (*Table, error) {
	i, err := t.MustIndex(col)
	if err != nil {
		return nil, err
	}
	c := t.Clone()
	for _, r := range c.Rows {
		r[i] = fn(r[i])
	}
	return c, nil
}

// DropMissing returns a copy of the table without rows whose col is missing.
func (t *Table) DropMissing(col string) (*Table, error) {
	i, err := t.MustIndex(col)
	if err != nil {
		return nil, err
	}
	c := &Table{Columns: append([]string(nil), t.Columns...)}
	for _, r := range t.Rows {
		if IsMissing(r[i]) {
			continue
		}
		c.Rows = append(c.Rows, append([]string(nil), r...))
	}
	return c, nil
}

// Records returns the rows as column-keyed maps.
func (t *Table) Records() []map[string]string {
	out := make([]map[string]string, len(t.Rows))
	for i, r := range t.Rows {
		m := make(map[string]string, len(t.Columns))
		for j, c := range t.Columns {
			m[c] = r[j]
		}
		out[i] = m
	}
	return out
}

var missingTokens = map[string]bool{
	"":     true,
	"na":   true,
	"n/a":  true,
	"nan":  true,
	"null": true,
	"none": true,
}

// IsMissing reports whether a cell is an empty or null marker.
func IsMissing(s string) bool {
	return missingTokens[strings.ToLower(strings.TrimSpace(s))]
}

// ParseFloat parses a numeric cell, tolerating thousands separators.
// Missing or unparseable cells return NaN.
func ParseFloat(s string) float64 {
	if IsMissing(s) {
		return math.NaN()
	}
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}
