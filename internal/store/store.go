// Package store caches loaded reference data (boundary sets and the CBSA
// crosswalk) so later commands skip re-reading shapefiles and workbooks.
package store

import (
	"context"
	"time"

	"github.com/sells-group/choropleth/internal/boundary"
	"github.com/sells-group/choropleth/internal/crosswalk"
	"github.com/sells-group/choropleth/internal/geoid"
)

// Reference kinds recorded in the load log.
const (
	KindBoundary  = "boundary"
	KindCrosswalk = "crosswalk"
)

// Load describes one cached reference load.
type Load struct {
	ID       string    `json:"id" yaml:"id"`
	Kind     string    `json:"kind" yaml:"kind"`
	Level    string    `json:"level,omitempty" yaml:"level,omitempty"`
	Source   string    `json:"source" yaml:"source"`
	Rows     int       `json:"rows" yaml:"rows"`
	LoadedAt time.Time `json:"loaded_at" yaml:"loaded_at"`
}

// Store defines the reference cache.
type Store interface {
	// Boundaries. LoadBoundaries returns nil when the level is not cached.
	SaveBoundaries(ctx context.Context, set *boundary.Set, source string) (*Load, error)
	LoadBoundaries(ctx context.Context, level geoid.Level) (*boundary.Set, error)

	// Crosswalk. LoadCrosswalk returns nil when nothing is cached.
	SaveCrosswalk(ctx context.Context, cw *crosswalk.Table, source string) (*Load, error)
	LoadCrosswalk(ctx context.Context) (*crosswalk.Table, error)

	// Load log, newest first.
	ListLoads(ctx context.Context) ([]Load, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
