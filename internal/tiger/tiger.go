// Package tiger locates the Census Bureau reference files the boundary and
// crosswalk loaders read: TIGER/Line state and county shapefiles and the OMB
// CBSA delineation workbook.
package tiger

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/choropleth/internal/boundary"
	"github.com/sells-group/choropleth/internal/crosswalk"
	"github.com/sells-group/choropleth/internal/fetcher"
	"github.com/sells-group/choropleth/internal/geoerr"
	"github.com/sells-group/choropleth/internal/geoid"
)

// censusHost is the Census Bureau download host.
var censusHost = "https://www2.census.gov"

// Product describes a national TIGER/Line shapefile product.
type Product struct {
	Name  string // directory on the Census server, e.g. "COUNTY"
	File  string // file stem, e.g. "county"
	Level geoid.Level
}

// Products lists the boundary products a choropleth can be drawn on.
var Products = []Product{
	{Name: "STATE", File: "state", Level: geoid.LevelState},
	{Name: "COUNTY", File: "county", Level: geoid.LevelCounty},
}

// ProductForLevel returns the product carrying level's boundaries.
func ProductForLevel(level geoid.Level) (Product, error) {
	for _, p := range Products {
		if p.Level == level {
			return p, nil
		}
	}
	return Product{}, geoerr.New(geoerr.UnknownGeoLevel, string(level))
}

// DownloadURL builds the Census Bureau download URL for a national product:
// tl_{year}_us_{file}.zip.
func DownloadURL(product Product, year int) string {
	return fmt.Sprintf(
		"%s/geo/tiger/TIGER%d/%s/tl_%d_us_%s.zip",
		censusHost, year, product.Name, year, product.File,
	)
}

// DelineationURL builds the download URL of the OMB CBSA delineation
// workbook (list 1) for a vintage year.
func DelineationURL(year int) string {
	return fmt.Sprintf(
		"%s/programs-surveys/metro-micro/geographies/reference-files/%d/delineation-files/list1_%d.xlsx",
		censusHost, year, year,
	)
}

// FetchBoundaries downloads and reads the level's national shapefile,
// simplified at tolerance.
func FetchBoundaries(ctx context.Context, r *fetcher.Resolver, level geoid.Level, year int, tolerance float64) (*boundary.Set, error) {
	p, err := ProductForLevel(level)
	if err != nil {
		return nil, err
	}
	url := DownloadURL(p, year)
	zap.L().Info("fetching TIGER boundaries",
		zap.String("component", "tiger"),
		zap.String("product", p.Name),
		zap.Int("year", year),
		zap.String("url", url),
	)
	set, err := boundary.Load(ctx, r, url, level, tolerance)
	if err != nil {
		return nil, eris.Wrapf(err, "tiger: fetch %s %d", p.Name, year)
	}
	return set, nil
}

// FetchCrosswalk downloads and reads the OMB delineation workbook.
func FetchCrosswalk(ctx context.Context, r *fetcher.Resolver, year int) (*crosswalk.Table, error) {
	url := DelineationURL(year)
	zap.L().Info("fetching CBSA delineation",
		zap.String("component", "tiger"),
		zap.Int("year", year),
		zap.String("url", url),
	)
	path, err := r.Resolve(ctx, url, ".xlsx")
	if err != nil {
		return nil, eris.Wrapf(err, "tiger: fetch delineation %d", year)
	}
	return crosswalk.Load(ctx, path)
}
