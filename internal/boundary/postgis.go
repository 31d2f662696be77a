package boundary

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/choropleth/internal/db"
	"github.com/sells-group/choropleth/internal/geoid"
)

// PostGISSource reads boundaries from TIGER tables loaded into PostGIS
// (tiger_data.state_all and tiger_data.county_all by default).
type PostGISSource struct {
	pool        db.Pool
	schema      string
	stateTable  string
	countyTable string
}

// NewPostGISSource creates a source over pool using the default TIGER
// schema.
func NewPostGISSource(pool db.Pool) *PostGISSource {
	return &PostGISSource{
		pool:        pool,
		schema:      "tiger_data",
		stateTable:  "state_all",
		countyTable: "county_all",
	}
}

// WithSchema overrides the schema holding the boundary tables.
func (s *PostGISSource) WithSchema(schema string) *PostGISSource {
	s.schema = schema
	return s
}

func (s *PostGISSource) query(level geoid.Level) (string, error) {
	switch level {
	case geoid.LevelState:
		return fmt.Sprintf(`SELECT statefp, statefp, name, stusps, ST_AsBinary(ST_Multi(the_geom))
			FROM %s ORDER BY statefp`, pgx.Identifier{s.schema, s.stateTable}.Sanitize()), nil
	case geoid.LevelCounty:
		return fmt.Sprintf(`SELECT geoid, statefp, name, '', ST_AsBinary(ST_Multi(the_geom))
			FROM %s ORDER BY geoid`, pgx.Identifier{s.schema, s.countyTable}.Sanitize()), nil
	}
	return "", geoidLevelErr(level)
}

// Load reads every boundary of level.
func (s *PostGISSource) Load(ctx context.Context, level geoid.Level) (*Set, error) {
	sql, err := s.query(level)
	if err != nil {
		return nil, eris.Wrap(err, "boundary: postgis")
	}

	rows, err := s.pool.Query(ctx, sql)
	if err != nil {
		return nil, eris.Wrap(err, "boundary: query postgis")
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec  Record
			data []byte
		)
		if err := rows.Scan(&rec.FIPS, &rec.StateFIPS, &rec.Name, &rec.ISOCode, &data); err != nil {
			return nil, eris.Wrap(err, "boundary: scan postgis row")
		}
		mp, err := UnmarshalWKB(data)
		if err != nil {
			return nil, eris.Wrapf(err, "boundary: geometry of %s", rec.FIPS)
		}
		rec.Geometry = mp
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "boundary: iterate postgis rows")
	}

	zap.L().Info("boundaries loaded from postgis",
		zap.String("level", string(level)),
		zap.Int("records", len(records)),
	)
	return NewSet(level, records, nil)
}
