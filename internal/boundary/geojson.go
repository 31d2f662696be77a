package boundary

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/choropleth/internal/geoid"
)

// Property names recognized in GeoJSON features, lower-cased, in priority
// order. The first of each list is the name this repo writes.
var (
	nameProps      = []string{"name", "namelsad"}
	fipsProps      = []string{"fips", "geoid", "geo_id"}
	stateFIPSProps = []string{"fips_state", "statefp"}
	isoProps       = []string{"iso_3166_2", "stusps", "abbrev"}
)

// ReadGeoJSON loads a FeatureCollection of Polygon/MultiPolygon features.
// Recognized identifier properties fill the core columns; all remaining
// properties become extra columns in sorted order.
func ReadGeoJSON(r io.Reader, level geoid.Level) (*Set, error) {
	var fc geojson.FeatureCollection
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, eris.Wrap(err, "boundary: decode geojson")
	}

	used := make(map[string]bool)
	extraSet := make(map[string]bool)
	records := make([]Record, 0, len(fc.Features))
	skipped := 0

	for _, f := range fc.Features {
		mp, err := AsMultiPolygon(f.Geometry)
		if err != nil {
			skipped++
			continue
		}

		props := lowerKeys(f.Properties)
		rec := Record{
			Geometry:  mp,
			Name:      pick(props, nameProps, used),
			FIPS:      pick(props, fipsProps, used),
			StateFIPS: pick(props, stateFIPSProps, used),
			ISOCode:   pick(props, isoProps, used),
		}
		for k, v := range props {
			if used[k] || isCoreColumn(k) {
				continue
			}
			if rec.Extra == nil {
				rec.Extra = make(map[string]string)
			}
			rec.Extra[k] = v
			extraSet[k] = true
		}
		records = append(records, rec)
	}

	if skipped > 0 {
		zap.L().Debug("boundary: skipped non-polygon features", zap.Int("skipped", skipped))
	}

	extra := make([]string, 0, len(extraSet))
	for k := range extraSet {
		if !used[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return NewSet(level, records, extra)
}

// pick returns the first present property of names and records which key
// was consumed.
func pick(props map[string]string, names []string, used map[string]bool) string {
	for _, n := range names {
		if v, ok := props[n]; ok && v != "" {
			used[n] = true
			return v
		}
	}
	return ""
}

func lowerKeys(props map[string]any) map[string]string {
	out := make(map[string]string, len(props))
	for k, v := range props {
		out[strings.ToLower(k)] = propString(v)
	}
	return out
}

func propString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
