package boundary

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
	"github.com/twpayne/go-geom/xy"
)

// SRID of every geometry produced by the loaders (WGS 84 / NAD83 lon-lat).
const SRID = 4326

// AsMultiPolygon widens a Polygon to a MultiPolygon. Other geometry types
// are rejected.
func AsMultiPolygon(g geom.T) (*geom.MultiPolygon, error) {
	switch t := g.(type) {
	case *geom.MultiPolygon:
		return t, nil
	case *geom.Polygon:
		mp := geom.NewMultiPolygon(geom.XY).SetSRID(SRID)
		if err := mp.Push(flatten2D(t)); err != nil {
			return nil, eris.Wrap(err, "boundary: widen polygon")
		}
		return mp, nil
	case nil:
		return nil, eris.New("boundary: nil geometry")
	default:
		return nil, eris.Errorf("boundary: unsupported geometry %T", g)
	}
}

func flatten2D(p *geom.Polygon) *geom.Polygon {
	if p.Layout() == geom.XY {
		return p
	}
	out := geom.NewPolygon(geom.XY)
	for i := 0; i < p.NumLinearRings(); i++ {
		r := p.LinearRing(i)
		stride := r.Stride()
		flat := r.FlatCoords()
		xy := make([]float64, 0, len(flat)/stride*2)
		for j := 0; j+1 < len(flat); j += stride {
			xy = append(xy, flat[j], flat[j+1])
		}
		_ = out.Push(geom.NewLinearRingFlat(geom.XY, xy))
	}
	return out
}

// MarshalWKB encodes a boundary geometry as little-endian WKB.
func MarshalWKB(mp *geom.MultiPolygon) ([]byte, error) {
	data, err := wkb.Marshal(mp, wkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "boundary: encode wkb")
	}
	return data, nil
}

// UnmarshalWKB decodes WKB (Polygon or MultiPolygon) into a MultiPolygon.
func UnmarshalWKB(data []byte) (*geom.MultiPolygon, error) {
	g, err := wkb.Unmarshal(data)
	if err != nil {
		return nil, eris.Wrap(err, "boundary: decode wkb")
	}
	return AsMultiPolygon(g)
}

// shapeToMultiPolygon converts a shapefile polygon into a MultiPolygon.
// Clockwise rings start a new polygon and counter-clockwise rings are holes
// of the preceding one.
func shapeToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	var polys []*geom.Polygon
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if end-start < 4 {
			continue
		}

		flat := make([]float64, 0, (end-start)*2)
		for _, pt := range p.Points[start:end] {
			flat = append(flat, pt.X, pt.Y)
		}
		ring := geom.NewLinearRingFlat(geom.XY, flat)

		if xy.SignedArea(geom.XY, flat) < 0 && len(polys) > 0 {
			_ = polys[len(polys)-1].Push(ring)
			continue
		}
		poly := geom.NewPolygon(geom.XY)
		_ = poly.Push(ring)
		polys = append(polys, poly)
	}

	if len(polys) == 0 {
		return nil
	}
	mp := geom.NewMultiPolygon(geom.XY).SetSRID(SRID)
	for _, poly := range polys {
		if err := mp.Push(poly); err != nil {
			continue
		}
	}
	return mp
}
