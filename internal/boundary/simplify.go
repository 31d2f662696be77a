package boundary

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// Simplify returns a copy of mp with every ring reduced by Douglas-Peucker
// at tolerance (in coordinate units). A ring that would drop below four
// coordinates keeps its original shape. Nil or zero tolerance returns mp.
func Simplify(mp *geom.MultiPolygon, tolerance float64) *geom.MultiPolygon {
	if mp == nil || tolerance <= 0 {
		return mp
	}

	out := geom.NewMultiPolygon(geom.XY).SetSRID(mp.SRID())
	for i := 0; i < mp.NumPolygons(); i++ {
		src := mp.Polygon(i)
		stride := src.Stride()
		poly := geom.NewPolygon(geom.XY)
		for j := 0; j < src.NumLinearRings(); j++ {
			flat := src.LinearRing(j).FlatCoords()
			keep := xy.SimplifyFlatCoords(flat, tolerance, stride)
			if len(keep) < 4 {
				keep = allPoints(len(flat) / stride)
			}
			reduced := make([]float64, 0, len(keep)*2)
			for _, k := range keep {
				reduced = append(reduced, flat[k*stride], flat[k*stride+1])
			}
			_ = poly.Push(geom.NewLinearRingFlat(geom.XY, reduced))
		}
		_ = out.Push(poly)
	}
	return out
}

func allPoints(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
