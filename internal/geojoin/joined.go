package geojoin

import (
	"github.com/twpayne/go-geom"

	"github.com/sells-group/choropleth/internal/geoerr"
	"github.com/sells-group/choropleth/internal/table"
)

// Row is one joined row. Geometry is nil only for right/outer rows with no
// boundary match.
type Row struct {
	Geometry *geom.MultiPolygon
	Values   []string
}

// JoinedTable is the geometry-bearing result of a join. Boundary columns
// come first, then the caller's columns.
type JoinedTable struct {
	Columns []string
	Rows    []Row
}

// Len returns the number of rows.
func (t *JoinedTable) Len() int { return len(t.Rows) }

// Index returns the position of col, or -1.
func (t *JoinedTable) Index(col string) int {
	for i, c := range t.Columns {
		if c == col {
			return i
		}
	}
	return -1
}

// Column returns the values of col.
func (t *JoinedTable) Column(col string) ([]string, error) {
	i := t.Index(col)
	if i < 0 {
		return nil, geoerr.New(geoerr.MissingColumn, col)
	}
	out := make([]string, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = row.Values[i]
	}
	return out, nil
}

// Floats parses col as numbers; missing or unparseable cells are NaN.
func (t *JoinedTable) Floats(col string) ([]float64, error) {
	vals, err := t.Column(col)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i] = table.ParseFloat(v)
	}
	return out, nil
}

// DropMissing returns a copy without rows whose col is missing. Geometries
// are shared, not copied.
func (t *JoinedTable) DropMissing(col string) (*JoinedTable, error) {
	i := t.Index(col)
	if i < 0 {
		return nil, geoerr.New(geoerr.MissingColumn, col)
	}
	out := &JoinedTable{Columns: append([]string(nil), t.Columns...)}
	for _, r := range t.Rows {
		if table.IsMissing(r.Values[i]) {
			continue
		}
		out.Rows = append(out.Rows, Row{Geometry: r.Geometry, Values: append([]string(nil), r.Values...)})
	}
	return out, nil
}

// Table returns the attribute part of the joined table, without geometry.
func (t *JoinedTable) Table() *table.Table {
	rows := make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = append([]string(nil), r.Values...)
	}
	return &table.Table{Columns: append([]string(nil), t.Columns...), Rows: rows}
}
