// Package boundary loads state and county boundary polygons and exposes
// them as immutable, join-ready record sets.
package boundary

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/choropleth/internal/geoerr"
	"github.com/sells-group/choropleth/internal/geoid"
)

// Record is one boundary polygon with its identifying properties. FIPS codes
// are zero-padded strings.
type Record struct {
	Geometry  *geom.MultiPolygon
	Name      string
	FIPS      string
	StateFIPS string
	ISOCode   string
	Extra     map[string]string
}

// Set is the boundary collection of one geography level. Sets are never
// modified after NewSet returns.
type Set struct {
	Level        geoid.Level
	Records      []Record
	ExtraColumns []string
}

// NewSet validates level and normalizes records: FIPS codes are padded to
// the level's width, the state code is derived from a county code when
// absent, and the ISO 3166-2 code is filled from the state code.
func NewSet(level geoid.Level, records []Record, extraColumns []string) (*Set, error) {
	if !level.Valid() {
		return nil, eris.Wrap(geoidLevelErr(level), "boundary: new set")
	}
	for _, c := range extraColumns {
		if isCoreColumn(c) {
			return nil, eris.Errorf("boundary: extra column %q shadows a core column", c)
		}
	}

	out := make([]Record, len(records))
	for i, r := range records {
		r.FIPS = geoid.PadFIPS(r.FIPS, level.FIPSWidth())
		r.StateFIPS = geoid.PadFIPS(r.StateFIPS, 2)
		if r.StateFIPS == "" && len(r.FIPS) >= 2 {
			r.StateFIPS = r.FIPS[:2]
		}
		if level == geoid.LevelState && r.FIPS == "" {
			r.FIPS = r.StateFIPS
		}
		if r.ISOCode == "" {
			r.ISOCode = geoid.ISOCodeForFIPS(r.StateFIPS)
		} else {
			r.ISOCode = geoid.NormalizeAbbrev(r.ISOCode)
		}
		out[i] = r
	}

	return &Set{
		Level:        level,
		Records:      out,
		ExtraColumns: append([]string(nil), extraColumns...),
	}, nil
}

// Len returns the number of records.
func (s *Set) Len() int { return len(s.Records) }

// Columns lists the columns a join sees: name, fips, fips_state,
// iso_3166_2, then the extra columns.
func (s *Set) Columns() []string {
	cols := []string{geoid.FieldName, geoid.FieldFIPS, geoid.FieldStateFIPS, geoid.FieldISO}
	return append(cols, s.ExtraColumns...)
}

// Has reports whether col is one of the set's columns.
func (s *Set) Has(col string) bool {
	if isCoreColumn(col) {
		return true
	}
	for _, c := range s.ExtraColumns {
		if c == col {
			return true
		}
	}
	return false
}

// Value returns the value of col for record i.
func (s *Set) Value(i int, col string) string {
	r := &s.Records[i]
	switch col {
	case geoid.FieldName:
		return r.Name
	case geoid.FieldFIPS:
		return r.FIPS
	case geoid.FieldStateFIPS:
		return r.StateFIPS
	case geoid.FieldISO:
		return r.ISOCode
	}
	return r.Extra[col]
}

// Values returns every column value of record i in Columns order.
func (s *Set) Values(i int) []string {
	cols := s.Columns()
	out := make([]string, len(cols))
	for j, c := range cols {
		out[j] = s.Value(i, c)
	}
	return out
}

// Simplified returns a copy of the set with every geometry simplified at
// tolerance. A zero tolerance returns s itself.
func (s *Set) Simplified(tolerance float64) *Set {
	if tolerance <= 0 {
		return s
	}
	out := &Set{
		Level:        s.Level,
		Records:      make([]Record, len(s.Records)),
		ExtraColumns: s.ExtraColumns,
	}
	for i, r := range s.Records {
		r.Geometry = Simplify(r.Geometry, tolerance)
		out.Records[i] = r
	}
	return out
}

func isCoreColumn(c string) bool {
	switch c {
	case geoid.FieldName, geoid.FieldFIPS, geoid.FieldStateFIPS, geoid.FieldISO:
		return true
	}
	return false
}

func geoidLevelErr(level geoid.Level) error {
	return geoerr.New(geoerr.UnknownGeoLevel, string(level))
}
