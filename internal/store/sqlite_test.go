package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/choropleth/internal/boundary"
	"github.com/sells-group/choropleth/internal/crosswalk"
	"github.com/sells-group/choropleth/internal/geoid"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func square(x float64) *geom.MultiPolygon {
	ring := geom.NewLinearRingFlat(geom.XY, []float64{x, 0, x + 1, 0, x + 1, 1, x, 1, x, 0})
	poly := geom.NewPolygon(geom.XY)
	if err := poly.Push(ring); err != nil {
		panic(err)
	}
	mp := geom.NewMultiPolygon(geom.XY)
	if err := mp.Push(poly); err != nil {
		panic(err)
	}
	return mp
}

func testCounties(t *testing.T) *boundary.Set {
	t.Helper()
	set, err := boundary.NewSet(geoid.LevelCounty, []boundary.Record{
		{Geometry: square(0), Name: "Autauga", FIPS: "01001", Extra: map[string]string{"namelsad": "Autauga County"}},
		{Geometry: square(1), Name: "Orleans", FIPS: "22071", Extra: map[string]string{"namelsad": "Orleans Parish"}},
	}, []string{"namelsad"})
	require.NoError(t, err)
	return set
}

// --- Boundaries ---

func TestSQLite_Boundaries_SaveAndLoad(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	load, err := st.SaveBoundaries(ctx, testCounties(t), "tl_2023_us_county.zip")
	require.NoError(t, err)
	assert.NotEmpty(t, load.ID)
	assert.Equal(t, KindBoundary, load.Kind)
	assert.Equal(t, "county", load.Level)
	assert.Equal(t, 2, load.Rows)

	got, err := st.LoadBoundaries(ctx, geoid.LevelCounty)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, 2, got.Len())
	assert.Equal(t, geoid.LevelCounty, got.Level)
	assert.Equal(t, []string{"namelsad"}, got.ExtraColumns)

	r := got.Records[1]
	assert.Equal(t, "Orleans", r.Name)
	assert.Equal(t, "22071", r.FIPS)
	assert.Equal(t, "22", r.StateFIPS)
	assert.Equal(t, "US-LA", r.ISOCode)
	assert.Equal(t, "Orleans Parish", r.Extra["namelsad"])
	assert.Equal(t, square(1).FlatCoords(), r.Geometry.FlatCoords())
}

func TestSQLite_Boundaries_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.LoadBoundaries(context.Background(), geoid.LevelState)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_Boundaries_ReplacesLevel(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.SaveBoundaries(ctx, testCounties(t), "first")
	require.NoError(t, err)

	smaller, err := boundary.NewSet(geoid.LevelCounty, []boundary.Record{
		{Geometry: square(5), Name: "Baldwin", FIPS: "1003"},
	}, nil)
	require.NoError(t, err)
	_, err = st.SaveBoundaries(ctx, smaller, "second")
	require.NoError(t, err)

	got, err := st.LoadBoundaries(ctx, geoid.LevelCounty)
	require.NoError(t, err)
	require.Equal(t, 1, got.Len())
	assert.Equal(t, "01003", got.Records[0].FIPS)
	assert.Empty(t, got.ExtraColumns)
}

func TestSQLite_Boundaries_LevelsAreIndependent(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.SaveBoundaries(ctx, testCounties(t), "county")
	require.NoError(t, err)
	states, err := boundary.NewSet(geoid.LevelState, []boundary.Record{
		{Geometry: square(0), Name: "Alabama", StateFIPS: "01", ISOCode: "AL"},
	}, nil)
	require.NoError(t, err)
	_, err = st.SaveBoundaries(ctx, states, "state")
	require.NoError(t, err)

	c, err := st.LoadBoundaries(ctx, geoid.LevelCounty)
	require.NoError(t, err)
	s, err := st.LoadBoundaries(ctx, geoid.LevelState)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
	require.Equal(t, 1, s.Len())
	assert.Equal(t, "US-AL", s.Records[0].ISOCode)
}

// --- Crosswalk ---

func TestSQLite_Crosswalk_SaveAndLoad(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	cw, err := crosswalk.New([]crosswalk.Record{
		{CBSA: "10180", CBSAName: "Abilene, TX", FIPS: "48059", CountyName: "Callahan County"},
		{CBSA: "10180", CBSAName: "Abilene, TX", FIPS: "48253", CountyName: "Jones County"},
		{CBSA: "33860", CBSAName: "Montgomery, AL", FIPS: "1001", CountyName: "Autauga County"},
	})
	require.NoError(t, err)

	load, err := st.SaveCrosswalk(ctx, cw, "list1_2023.xlsx")
	require.NoError(t, err)
	assert.Equal(t, KindCrosswalk, load.Kind)
	assert.Equal(t, 3, load.Rows)

	got, err := st.LoadCrosswalk(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, cw.Records(), got.Records())
	assert.Len(t, got.Members("10180"), 2)
}

func TestSQLite_Crosswalk_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.LoadCrosswalk(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

// --- Load log ---

func TestSQLite_ListLoads(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.SaveBoundaries(ctx, testCounties(t), "county.zip")
	require.NoError(t, err)
	cw, err := crosswalk.New([]crosswalk.Record{{CBSA: "10180", FIPS: "48059"}})
	require.NoError(t, err)
	_, err = st.SaveCrosswalk(ctx, cw, "crosswalk.csv")
	require.NoError(t, err)

	loads, err := st.ListLoads(ctx)
	require.NoError(t, err)
	require.Len(t, loads, 2)
	kinds := []string{loads[0].Kind, loads[1].Kind}
	assert.ElementsMatch(t, []string{KindBoundary, KindCrosswalk}, kinds)
	for _, l := range loads {
		assert.False(t, l.LoadedAt.IsZero())
	}
}

func TestNewSQLite_BadPath(t *testing.T) {
	_, err := NewSQLite(filepath.Join(t.TempDir(), "missing", "dir", "test.db"))
	assert.Error(t, err)
}
