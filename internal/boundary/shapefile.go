package boundary

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/choropleth/internal/geoid"
)

// TIGER/Line attribute names read from state and county shapefiles.
const (
	tigerStateFP  = "statefp"
	tigerCountyFP = "countyfp"
	tigerGEOID    = "geoid"
	tigerName     = "name"
	tigerNameLSAD = "namelsad"
	tigerSTUSPS   = "stusps"
)

// ReadShapefile loads a TIGER/Line STATE or COUNTY shapefile. Records whose
// shape is not a polygon are skipped. County sets carry the full
// "namelsad" title as an extra column.
func ReadShapefile(path string, level geoid.Level) (*Set, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	log := zap.L().With(zap.String("component", "boundary.shapefile"), zap.String("path", path))

	fieldIdx := make(map[string]int)
	for i, f := range reader.Fields() {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}
	attr := func(name string) string {
		idx, ok := fieldIdx[name]
		if !ok {
			return ""
		}
		return strings.TrimSpace(strings.TrimRight(reader.Attribute(idx), "\x00"))
	}

	var extra []string
	if level == geoid.LevelCounty {
		if _, ok := fieldIdx[tigerNameLSAD]; ok {
			extra = append(extra, tigerNameLSAD)
		}
	}

	var records []Record
	skipped := 0
	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}
		mp := shapeToMultiPolygon(poly)
		if mp == nil {
			skipped++
			continue
		}

		rec := Record{
			Geometry:  mp,
			Name:      attr(tigerName),
			StateFIPS: attr(tigerStateFP),
		}
		switch level {
		case geoid.LevelCounty:
			rec.FIPS = attr(tigerGEOID)
			if rec.FIPS == "" {
				rec.FIPS = rec.StateFIPS + attr(tigerCountyFP)
			}
			if len(extra) > 0 {
				rec.Extra = map[string]string{tigerNameLSAD: attr(tigerNameLSAD)}
			}
		case geoid.LevelState:
			rec.FIPS = rec.StateFIPS
			rec.ISOCode = attr(tigerSTUSPS)
		}
		records = append(records, rec)
	}

	if skipped > 0 {
		log.Debug("skipped non-polygon records", zap.Int("skipped", skipped))
	}
	if len(records) == 0 {
		return nil, eris.Errorf("boundary: shapefile %s has no polygon records", path)
	}

	set, err := NewSet(level, records, extra)
	if err != nil {
		return nil, err
	}
	log.Info("boundaries loaded", zap.String("level", string(level)), zap.Int("records", set.Len()))
	return set, nil
}
