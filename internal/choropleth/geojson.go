package choropleth

import (
	"math"

	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/choropleth/internal/boundary"
	"github.com/sells-group/choropleth/internal/table"
)

// Feature property names added to the joined columns.
const (
	PropFillColor = "fill_color"
	PropFillAlpha = "fill_alpha"
	PropLineColor = "line_color"
	PropLineWidth = "line_width"
)

// FeatureCollection converts the result into GeoJSON features. Every joined
// column becomes a string property, the value column is numeric (null when
// missing), and fill_color carries the scale color.
func (r *Result) FeatureCollection() (*geojson.FeatureCollection, error) {
	colors, err := r.Colors()
	if err != nil {
		return nil, err
	}
	vi := r.Table.Index(r.ValueColumn)

	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, r.Table.Len())}
	for i, row := range r.Table.Rows {
		props := make(map[string]any, len(r.Table.Columns)+4)
		for j, c := range r.Table.Columns {
			props[c] = row.Values[j]
		}
		if v := table.ParseFloat(row.Values[vi]); math.IsNaN(v) {
			props[r.ValueColumn] = nil
		} else {
			props[r.ValueColumn] = v
		}
		props[PropFillColor] = colors[i]
		r.Style.apply(props)

		f := &geojson.Feature{Properties: props}
		if row.Geometry != nil {
			f.Geometry = row.Geometry
		}
		fc.Features = append(fc.Features, f)
	}
	return fc, nil
}

// Outline converts a boundary set into unfilled GeoJSON features, the
// hand-off for an empty map.
func Outline(b *boundary.Set, style Style) *geojson.FeatureCollection {
	cols := b.Columns()
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, b.Len())}
	for i, rec := range b.Records {
		props := make(map[string]any, len(cols)+4)
		for _, c := range cols {
			props[c] = b.Value(i, c)
		}
		props[PropFillColor] = nil
		style.apply(props)
		fc.Features = append(fc.Features, &geojson.Feature{Geometry: rec.Geometry, Properties: props})
	}
	return fc
}

func (s Style) apply(props map[string]any) {
	props[PropFillAlpha] = s.FillAlpha
	props[PropLineColor] = s.LineColor
	props[PropLineWidth] = s.LineWidth
}
