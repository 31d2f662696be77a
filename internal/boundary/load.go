package boundary

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/choropleth/internal/fetcher"
	"github.com/sells-group/choropleth/internal/geoid"
)

// Load resolves src (local path, http(s) or ftp URL, optionally a ZIP
// archive) and reads it as a shapefile or GeoJSON by extension, then
// applies the simplification tolerance.
func Load(ctx context.Context, r *fetcher.Resolver, src string, level geoid.Level, tolerance float64) (*Set, error) {
	path, err := r.Resolve(ctx, src, ".shp", ".geojson", ".json")
	if err != nil {
		return nil, eris.Wrap(err, "boundary: resolve source")
	}

	var set *Set
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		set, err = ReadShapefile(path, level)
	case ".geojson", ".json":
		set, err = readGeoJSONFile(path, level)
	default:
		return nil, eris.Errorf("boundary: unsupported source format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	return set.Simplified(tolerance), nil
}

func readGeoJSONFile(path string, level geoid.Level) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: open %s", path)
	}
	defer f.Close() //nolint:errcheck
	return ReadGeoJSON(f, level)
}
