package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/choropleth/internal/boundary"
	"github.com/sells-group/choropleth/internal/crosswalk"
	"github.com/sells-group/choropleth/internal/geoid"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS loads (
	id        TEXT PRIMARY KEY,
	kind      TEXT NOT NULL,
	level     TEXT NOT NULL DEFAULT '',
	source    TEXT NOT NULL,
	row_count INTEGER NOT NULL,
	loaded_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS boundary_sets (
	level         TEXT PRIMARY KEY,
	extra_columns TEXT NOT NULL DEFAULT '[]',
	load_id       TEXT NOT NULL REFERENCES loads(id)
);

CREATE TABLE IF NOT EXISTS boundaries (
	level      TEXT NOT NULL,
	seq        INTEGER NOT NULL,
	name       TEXT NOT NULL,
	fips       TEXT NOT NULL DEFAULT '',
	fips_state TEXT NOT NULL DEFAULT '',
	iso_3166_2 TEXT NOT NULL DEFAULT '',
	extra      TEXT NOT NULL DEFAULT '{}',
	geom       BLOB NOT NULL,
	PRIMARY KEY (level, seq)
);

CREATE TABLE IF NOT EXISTS crosswalk (
	seq         INTEGER PRIMARY KEY,
	cbsa        TEXT NOT NULL,
	cbsa_name   TEXT NOT NULL DEFAULT '',
	fips        TEXT NOT NULL,
	county_name TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_loads_kind ON loads(kind);
CREATE INDEX IF NOT EXISTS idx_crosswalk_cbsa ON crosswalk(cbsa);
`

// Migrate creates the cache tables.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

func insertLoad(ctx context.Context, tx *sql.Tx, kind, level, source string, rows int) (*Load, error) {
	l := &Load{
		ID:       uuid.New().String(),
		Kind:     kind,
		Level:    level,
		Source:   source,
		Rows:     rows,
		LoadedAt: time.Now().UTC(),
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO loads (id, kind, level, source, row_count, loaded_at) VALUES (?, ?, ?, ?, ?, ?)`,
		l.ID, l.Kind, l.Level, l.Source, l.Rows, l.LoadedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert load")
	}
	return l, nil
}

// SaveBoundaries replaces the cached set for the set's level.
func (s *SQLiteStore) SaveBoundaries(ctx context.Context, set *boundary.Set, source string) (*Load, error) {
	extraCols, err := json.Marshal(nonNil(set.ExtraColumns))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal extra columns")
	}

	var load *Load
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		level := string(set.Level)
		if _, err := tx.ExecContext(ctx, `DELETE FROM boundaries WHERE level = ?`, level); err != nil {
			return eris.Wrap(err, "sqlite: clear boundaries")
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM boundary_sets WHERE level = ?`, level); err != nil {
			return eris.Wrap(err, "sqlite: clear boundary set")
		}

		var err error
		load, err = insertLoad(ctx, tx, KindBoundary, level, source, set.Len())
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO boundary_sets (level, extra_columns, load_id) VALUES (?, ?, ?)`,
			level, string(extraCols), load.ID,
		); err != nil {
			return eris.Wrap(err, "sqlite: insert boundary set")
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO boundaries (level, seq, name, fips, fips_state, iso_3166_2, extra, geom)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return eris.Wrap(err, "sqlite: prepare boundary insert")
		}
		defer stmt.Close() //nolint:errcheck

		for i, r := range set.Records {
			wkb, err := boundary.MarshalWKB(r.Geometry)
			if err != nil {
				return eris.Wrapf(err, "sqlite: encode geometry of %q", r.Name)
			}
			extra, err := json.Marshal(r.Extra)
			if err != nil {
				return eris.Wrap(err, "sqlite: marshal extra")
			}
			if _, err := stmt.ExecContext(ctx, level, i, r.Name, r.FIPS, r.StateFIPS, r.ISOCode, string(extra), wkb); err != nil {
				return eris.Wrapf(err, "sqlite: insert boundary %q", r.Name)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("boundaries cached",
		zap.String("component", "store"),
		zap.String("level", string(set.Level)),
		zap.Int("records", set.Len()),
		zap.String("source", source),
	)
	return load, nil
}

// LoadBoundaries returns the cached set for level, or nil when none is cached.
func (s *SQLiteStore) LoadBoundaries(ctx context.Context, level geoid.Level) (*boundary.Set, error) {
	var extraCols string
	err := s.db.QueryRowContext(ctx,
		`SELECT extra_columns FROM boundary_sets WHERE level = ?`, string(level),
	).Scan(&extraCols)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get boundary set %s", level)
	}
	var columns []string
	if err := json.Unmarshal([]byte(extraCols), &columns); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal extra columns")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT name, fips, fips_state, iso_3166_2, extra, geom FROM boundaries WHERE level = ? ORDER BY seq`,
		string(level),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: query boundaries %s", level)
	}
	defer rows.Close() //nolint:errcheck

	var records []boundary.Record
	for rows.Next() {
		var (
			r     boundary.Record
			extra string
			wkb   []byte
		)
		if err := rows.Scan(&r.Name, &r.FIPS, &r.StateFIPS, &r.ISOCode, &extra, &wkb); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan boundary")
		}
		if err := json.Unmarshal([]byte(extra), &r.Extra); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal extra")
		}
		if r.Geometry, err = boundary.UnmarshalWKB(wkb); err != nil {
			return nil, eris.Wrapf(err, "sqlite: decode geometry of %q", r.Name)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate boundaries")
	}

	return boundary.NewSet(level, records, columns)
}

// SaveCrosswalk replaces the cached crosswalk.
func (s *SQLiteStore) SaveCrosswalk(ctx context.Context, cw *crosswalk.Table, source string) (*Load, error) {
	var load *Load
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM crosswalk`); err != nil {
			return eris.Wrap(err, "sqlite: clear crosswalk")
		}
		var err error
		load, err = insertLoad(ctx, tx, KindCrosswalk, "", source, cw.Len())
		if err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO crosswalk (seq, cbsa, cbsa_name, fips, county_name) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return eris.Wrap(err, "sqlite: prepare crosswalk insert")
		}
		defer stmt.Close() //nolint:errcheck

		for i, r := range cw.Records() {
			if _, err := stmt.ExecContext(ctx, i, r.CBSA, r.CBSAName, r.FIPS, r.CountyName); err != nil {
				return eris.Wrapf(err, "sqlite: insert crosswalk %s/%s", r.CBSA, r.FIPS)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("crosswalk cached",
		zap.String("component", "store"),
		zap.Int("records", cw.Len()),
		zap.String("source", source),
	)
	return load, nil
}

// LoadCrosswalk returns the cached crosswalk, or nil when none is cached.
func (s *SQLiteStore) LoadCrosswalk(ctx context.Context) (*crosswalk.Table, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cbsa, cbsa_name, fips, county_name FROM crosswalk ORDER BY seq`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query crosswalk")
	}
	defer rows.Close() //nolint:errcheck

	var records []crosswalk.Record
	for rows.Next() {
		var r crosswalk.Record
		if err := rows.Scan(&r.CBSA, &r.CBSAName, &r.FIPS, &r.CountyName); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan crosswalk")
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate crosswalk")
	}
	if len(records) == 0 {
		return nil, nil
	}
	return crosswalk.New(records)
}

// ListLoads returns the load log, newest first.
func (s *SQLiteStore) ListLoads(ctx context.Context) ([]Load, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, level, source, row_count, loaded_at FROM loads ORDER BY loaded_at DESC, rowid DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list loads")
	}
	defer rows.Close() //nolint:errcheck

	var out []Load
	for rows.Next() {
		var l Load
		if err := rows.Scan(&l.ID, &l.Kind, &l.Level, &l.Source, &l.Rows, &l.LoadedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan load")
		}
		out = append(out, l)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate loads")
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
