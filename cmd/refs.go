package main

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/choropleth/internal/boundary"
	"github.com/sells-group/choropleth/internal/crosswalk"
	"github.com/sells-group/choropleth/internal/db"
	"github.com/sells-group/choropleth/internal/fetcher"
	"github.com/sells-group/choropleth/internal/geoid"
	"github.com/sells-group/choropleth/internal/server"
	"github.com/sells-group/choropleth/internal/store"
)

var errNoCrosswalk = eris.New("no crosswalk: set crosswalk.path, pass --crosswalk, or run 'choropleth load crosswalk'")

// refSources overrides the configured reference locations for one command.
type refSources struct {
	Boundary  string // applies to every requested level when set
	Crosswalk string
}

// openStore opens and migrates the sqlite reference cache.
func openStore(ctx context.Context) (*store.SQLiteStore, error) {
	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

func boundaryPath(level geoid.Level) string {
	if level == geoid.LevelState {
		return cfg.Boundary.StatePath
	}
	return cfg.Boundary.CountyPath
}

// loadBoundaries resolves one level: an explicit or configured source
// first, then the sqlite cache, then PostGIS.
func loadBoundaries(ctx context.Context, st store.Store, r *fetcher.Resolver, level geoid.Level, src string) (*boundary.Set, error) {
	log := zap.L().With(zap.String("component", "refs"), zap.String("level", string(level)))

	if src == "" {
		src = boundaryPath(level)
	}
	if src != "" {
		log.Debug("loading boundaries from source", zap.String("source", src))
		return boundary.Load(ctx, r, src, level, cfg.Boundary.Simplify)
	}

	if st != nil {
		set, err := st.LoadBoundaries(ctx, level)
		if err != nil {
			return nil, err
		}
		if set != nil {
			log.Debug("loaded boundaries from cache", zap.Int("records", set.Len()))
			return set.Simplified(cfg.Boundary.Simplify), nil
		}
	}

	if cfg.Boundary.PostGISURL != "" {
		pool, err := db.Connect(ctx, cfg.Boundary.PostGISURL, db.PoolConfig{})
		if err != nil {
			return nil, err
		}
		defer pool.Close()
		set, err := boundary.NewPostGISSource(pool).WithSchema(cfg.Boundary.Schema).Load(ctx, level)
		if err != nil {
			return nil, err
		}
		return set.Simplified(cfg.Boundary.Simplify), nil
	}

	return nil, eris.Errorf("no %s boundary source: set boundary.%s_path, run 'choropleth load boundaries', or set boundary.postgis_url", level, level)
}

// loadCrosswalk resolves the crosswalk from an explicit or configured
// source, then the cache. A missing crosswalk is not an error.
func loadCrosswalk(ctx context.Context, st store.Store, r *fetcher.Resolver, src string) (*crosswalk.Table, error) {
	if src == "" {
		src = cfg.Crosswalk.Path
	}
	if src != "" {
		path, err := r.Resolve(ctx, src, ".csv", ".xlsx")
		if err != nil {
			return nil, eris.Wrap(err, "crosswalk: resolve source")
		}
		return crosswalk.Load(ctx, path)
	}
	if st != nil {
		return st.LoadCrosswalk(ctx)
	}
	return nil, nil
}

// loadReferences loads the requested boundary levels and, when asked, the
// crosswalk concurrently.
func loadReferences(ctx context.Context, levels []geoid.Level, withCrosswalk bool, src refSources) (server.References, error) {
	refs := server.References{Boundaries: make(map[geoid.Level]*boundary.Set, len(levels))}

	st, err := openStore(ctx)
	if err != nil {
		zap.L().Warn("reference cache unavailable", zap.String("path", cfg.Store.Path), zap.Error(err))
		st = nil
	}
	if st != nil {
		defer st.Close() //nolint:errcheck
	}
	r := fetcher.NewResolver(cfg.Boundary.TempDir)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, level := range levels {
		level := level
		g.Go(func() error {
			set, err := loadBoundaries(gctx, storeOrNil(st), r, level, src.Boundary)
			if err != nil {
				return eris.Wrapf(err, "load %s boundaries", level)
			}
			mu.Lock()
			refs.Boundaries[level] = set
			mu.Unlock()
			return nil
		})
	}
	if withCrosswalk {
		g.Go(func() error {
			cw, err := loadCrosswalk(gctx, storeOrNil(st), r, src.Crosswalk)
			if err != nil {
				return eris.Wrap(err, "load crosswalk")
			}
			refs.Crosswalk = cw
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return server.References{}, err
	}
	return refs, nil
}

// storeOrNil keeps a nil *SQLiteStore from becoming a non-nil interface.
func storeOrNil(st *store.SQLiteStore) store.Store {
	if st == nil {
		return nil
	}
	return st
}
