package geojoin

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/choropleth/internal/boundary"
	"github.com/sells-group/choropleth/internal/crosswalk"
	"github.com/sells-group/choropleth/internal/geoerr"
	"github.com/sells-group/choropleth/internal/geoid"
	"github.com/sells-group/choropleth/internal/table"
)

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

func counties(t *testing.T) *boundary.Set {
	t.Helper()
	set, err := boundary.NewSet(geoid.LevelCounty, []boundary.Record{
		{Geometry: square(0), Name: "Autauga", FIPS: "01001"},
		{Geometry: square(1), Name: "Baldwin", FIPS: "01003"},
		{Geometry: square(2), Name: "Barbour", FIPS: "01005"},
	}, nil)
	require.NoError(t, err)
	return set
}

func states(t *testing.T) *boundary.Set {
	t.Helper()
	set, err := boundary.NewSet(geoid.LevelState, []boundary.Record{
		{Geometry: square(0), Name: "Alabama", StateFIPS: "01", ISOCode: "AL"},
		{Geometry: square(1), Name: "Louisiana", StateFIPS: "22", ISOCode: "LA"},
		{Geometry: square(2), Name: "Texas", StateFIPS: "48", ISOCode: "TX"},
	}, nil)
	require.NoError(t, err)
	return set
}

func attrs(t *testing.T, cols []string, rows ...[]string) *table.Table {
	t.Helper()
	tbl, err := table.New(cols, rows)
	require.NoError(t, err)
	return tbl
}

func column(t *testing.T, jt *JoinedTable, col string) []string {
	t.Helper()
	vals, err := jt.Column(col)
	require.NoError(t, err)
	return vals
}

func TestJoin_ThreeCountyScenario(t *testing.T) {
	b := counties(t)
	a := attrs(t, []string{"fips", "v"}, []string{"01001", "10"}, []string{"01999", "20"}, []string{"01005", "30"})

	res, err := Join(b, a, Options{IDColumn: "fips", IDType: geoid.IDFIPS, Level: geoid.LevelCounty})
	require.NoError(t, err)

	require.Equal(t, 2, res.Table.Len())
	assert.Equal(t, []string{"01001", "01005"}, column(t, res.Table, "fips"))
	assert.Equal(t, []string{"10", "30"}, column(t, res.Table, "v"))
	assert.Equal(t, []string{"01999"}, res.Unmatched)
	for _, r := range res.Table.Rows {
		assert.NotNil(t, r.Geometry)
	}
	assert.Equal(t, []string{"name", "fips", "fips_state", "iso_3166_2", "v"}, res.Table.Columns)
}

func TestJoin_CountsBlankIdentifiers(t *testing.T) {
	b := counties(t)
	a := attrs(t, []string{"fips", "v"}, []string{"01001", "10"}, []string{"", "20"}, []string{"01999", "30"}, []string{"  ", "40"})

	res, err := Join(b, a, Options{IDColumn: "fips", IDType: geoid.IDFIPS})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Table.Len())
	assert.Equal(t, []string{"01999"}, res.Unmatched)
	assert.Equal(t, 2, res.Blank)

	outer, err := Merge(b, a, Options{IDColumn: "fips", IDType: geoid.IDFIPS, How: Outer})
	require.NoError(t, err)
	assert.Equal(t, 2, outer.Blank)
	assert.Equal(t, 3+3, outer.Table.Len())
}

func TestJoin_SuffixSkipsTakenNames(t *testing.T) {
	a := attrs(t, []string{"fips", "name", "name_shape"}, []string{"01001", "mine", "also mine"})

	res, err := Join(counties(t), a, Options{IDColumn: "fips", IDType: geoid.IDFIPS})
	require.NoError(t, err)
	assert.Equal(t, []string{"name_shape_shape", "fips", "fips_state", "iso_3166_2", "name", "name_shape"}, res.Table.Columns)
	assert.Equal(t, []string{"Autauga"}, column(t, res.Table, "name_shape_shape"))
	assert.Equal(t, []string{"also mine"}, column(t, res.Table, "name_shape"))
	_, err = table.New(res.Table.Columns, nil)
	assert.NoError(t, err)
}

func TestJoin_FIPSRejoinIsIdempotent(t *testing.T) {
	b := counties(t)
	a := attrs(t, []string{"fips", "v"}, []string{"01001", "10"}, []string{"01003", "20"})

	first, err := Join(b, a, Options{IDColumn: "fips", IDType: geoid.IDFIPS})
	require.NoError(t, err)

	second, err := Join(b, first.Table.Table(), Options{IDColumn: "fips", IDType: geoid.IDFIPS})
	require.NoError(t, err)

	assert.Equal(t, first.Table.Len(), second.Table.Len())
	assert.Equal(t, column(t, first.Table, "fips"), column(t, second.Table, "fips"))
	assert.Empty(t, second.Unmatched)
	assert.Contains(t, second.Table.Columns, "name_shape")
}

func TestJoin_PadsShortFIPS(t *testing.T) {
	res, err := Join(counties(t), attrs(t, []string{"county", "v"}, []string{"1001", "5"}),
		Options{IDColumn: "county", IDType: geoid.IDFIPS})
	require.NoError(t, err)
	require.Equal(t, 1, res.Table.Len())
	assert.Equal(t, []string{"01001"}, column(t, res.Table, "county"))
	assert.Equal(t, []string{"01001"}, column(t, res.Table, "fips"))
}

func TestJoin_ByName(t *testing.T) {
	a := attrs(t, []string{"county", "v"},
		[]string{"Baldwin County", "1"},
		[]string{"Autauga", "2"},
		[]string{"Nowhere Parish", "3"},
	)
	res, err := Join(counties(t), a, Options{IDColumn: "county", IDType: geoid.IDName})
	require.NoError(t, err)

	assert.Equal(t, []string{"Autauga", "Baldwin"}, column(t, res.Table, "county"))
	assert.Equal(t, []string{"2", "1"}, column(t, res.Table, "v"))
	assert.Equal(t, []string{"Nowhere"}, res.Unmatched)
	assert.Equal(t, "Baldwin County", a.Rows[0][0])
}

func TestJoin_StateByAbbrev(t *testing.T) {
	a := attrs(t, []string{"st", "v"}, []string{"tx", "1"}, []string{"US-AL", "2"}, []string{"ZZ", "3"})
	res, err := Join(states(t), a, Options{IDColumn: "st", IDType: geoid.IDAbbrev, Level: geoid.LevelState})
	require.NoError(t, err)

	assert.Equal(t, []string{"Alabama", "Texas"}, column(t, res.Table, "name"))
	assert.Equal(t, []string{"US-ZZ"}, res.Unmatched)
}

func TestJoin_StateByFIPS(t *testing.T) {
	a := attrs(t, []string{"state", "v"}, []string{"22", "1"}, []string{"1", "2"})
	res, err := Join(states(t), a, Options{IDColumn: "state", IDType: geoid.IDFIPS, Level: geoid.LevelState})
	require.NoError(t, err)
	assert.Equal(t, []string{"01", "22"}, column(t, res.Table, "fips_state"))
}

func TestJoin_CBSA(t *testing.T) {
	cw, err := crosswalk.New([]crosswalk.Record{
		{CBSA: "33860", CBSAName: "Montgomery, AL", FIPS: "01001", CountyName: "Autauga County"},
		{CBSA: "19300", CBSAName: "Daphne-Fairhope-Foley, AL", FIPS: "01003", CountyName: "Baldwin County"},
		{CBSA: "19300", CBSAName: "Daphne-Fairhope-Foley, AL", FIPS: "01097", CountyName: "Mobile County"},
	})
	require.NoError(t, err)

	a := attrs(t, []string{"msa", "name", "v"},
		[]string{"33860", "Montgomery metro", "7"},
		[]string{"19300", "Baldwin metro", "9"},
		[]string{"00000", "Unknown", "1"},
	)
	res, err := Join(counties(t), a, Options{IDColumn: "msa", IDType: geoid.IDCBSA, Crosswalk: cw})
	require.NoError(t, err)

	assert.Equal(t, "fips", res.IDColumn)
	assert.Equal(t, []string{"01001", "01003"}, column(t, res.Table, "fips"))
	assert.Equal(t, []string{"Montgomery metro", "Baldwin metro"}, column(t, res.Table, "name"))
	assert.Equal(t, []string{"Autauga", "Baldwin"}, column(t, res.Table, "name_shape"))
	assert.Equal(t, []string{"01097"}, res.Unmatched)
	assert.Equal(t, []string{"00000"}, res.UnmatchedCBSA)
	assert.Zero(t, res.Blank)

	blank := attrs(t, []string{"msa", "v"}, []string{"33860", "7"}, []string{"", "8"})
	res, err = Join(counties(t), blank, Options{IDColumn: "msa", IDType: geoid.IDCBSA, Crosswalk: cw})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Blank)
	assert.Empty(t, res.UnmatchedCBSA)
}

func TestJoin_CBSARequiresCrosswalk(t *testing.T) {
	a := attrs(t, []string{"msa"}, []string{"33860"})
	_, err := Join(counties(t), a, Options{IDColumn: "msa", IDType: geoid.IDCBSA})
	assert.True(t, errors.Is(err, geoerr.ErrUnsupportedCombination))
}

func TestMerge_Modes(t *testing.T) {
	b := counties(t)
	a := attrs(t, []string{"fips", "v"}, []string{"01005", "20"}, []string{"01999", "30"}, []string{"01001", "10"})

	tests := []struct {
		name     string
		how      How
		wantFIPS []string
		wantV    []string
		nilGeom  int
	}{
		{name: "inner", how: Inner, wantFIPS: []string{"01001", "01005"}, wantV: []string{"10", "20"}},
		{name: "left", how: Left, wantFIPS: []string{"01001", "01003", "01005"}, wantV: []string{"10", "", "20"}},
		{name: "right", how: Right, wantFIPS: []string{"01005", "01999", "01001"}, wantV: []string{"20", "30", "10"}, nilGeom: 1},
		{name: "outer", how: Outer, wantFIPS: []string{"01001", "01003", "01005", "01999"}, wantV: []string{"10", "", "20", "30"}, nilGeom: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Merge(b, a, Options{IDColumn: "fips", IDType: geoid.IDFIPS, How: tt.how})
			require.NoError(t, err)
			assert.Equal(t, tt.wantFIPS, column(t, res.Table, "fips"))
			assert.Equal(t, tt.wantV, column(t, res.Table, "v"))

			nils := 0
			for _, r := range res.Table.Rows {
				if r.Geometry == nil {
					nils++
				}
			}
			assert.Equal(t, tt.nilGeom, nils)
			assert.Equal(t, []string{"01999"}, res.Unmatched)
		})
	}
}

func TestMerge_DuplicateAttributeRows(t *testing.T) {
	a := attrs(t, []string{"fips", "v"}, []string{"01003", "1"}, []string{"01003", "2"})
	res, err := Merge(counties(t), a, Options{IDColumn: "fips", IDType: geoid.IDFIPS, How: Inner})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, column(t, res.Table, "v"))
}

func TestMerge_RequiresMode(t *testing.T) {
	a := attrs(t, []string{"fips"}, []string{"01001"})
	_, err := Merge(counties(t), a, Options{IDColumn: "fips", IDType: geoid.IDFIPS})
	assert.True(t, errors.Is(err, geoerr.ErrUnknownJoinMode))

	_, err = Merge(counties(t), a, Options{IDColumn: "fips", IDType: geoid.IDFIPS, How: "cross"})
	assert.True(t, errors.Is(err, geoerr.ErrUnknownJoinMode))
}

func TestJoin_Errors(t *testing.T) {
	a := attrs(t, []string{"fips", "st"}, []string{"01001", "AL"})

	tests := []struct {
		name string
		b    *boundary.Set
		opts Options
		want error
	}{
		{"missing column", counties(t), Options{IDColumn: "geoid", IDType: geoid.IDFIPS}, geoerr.ErrMissingColumn},
		{"unknown id type", counties(t), Options{IDColumn: "fips", IDType: "zip"}, geoerr.ErrUnknownIdentifierType},
		{"unknown level", counties(t), Options{IDColumn: "fips", IDType: geoid.IDFIPS, Level: "tract"}, geoerr.ErrUnknownGeoLevel},
		{"county abbrev", counties(t), Options{IDColumn: "st", IDType: geoid.IDAbbrev}, geoerr.ErrUnsupportedCombination},
		{"level mismatch", counties(t), Options{IDColumn: "fips", IDType: geoid.IDFIPS, Level: geoid.LevelState}, geoerr.ErrUnsupportedCombination},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Join(tt.b, a, tt.opts)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), err.Error())
		})
	}
}

func TestJoin_DoesNotMutateBoundaries(t *testing.T) {
	b := counties(t)
	before := make([]boundary.Record, len(b.Records))
	copy(before, b.Records)

	a := attrs(t, []string{"name", "v"}, []string{"Autauga County", "1"})
	_, err := Join(b, a, Options{IDColumn: "name", IDType: geoid.IDName})
	require.NoError(t, err)

	assert.Equal(t, before, b.Records)
	assert.Equal(t, "Autauga County", a.Rows[0][0])
}

func TestJoinedTable_DropMissingAndFloats(t *testing.T) {
	a := attrs(t, []string{"fips", "v"}, []string{"01001", "1.5"}, []string{"01003", ""})
	res, err := Join(counties(t), a, Options{IDColumn: "fips", IDType: geoid.IDFIPS})
	require.NoError(t, err)

	dropped, err := res.Table.DropMissing("v")
	require.NoError(t, err)
	assert.Equal(t, 1, dropped.Len())
	assert.Equal(t, 2, res.Table.Len())

	vals, err := dropped.Floats("v")
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5}, vals)

	_, err = res.Table.Floats("missing")
	assert.True(t, errors.Is(err, geoerr.ErrMissingColumn))
}

func TestParseHow(t *testing.T) {
	h, err := ParseHow(" Left ")
	require.NoError(t, err)
	assert.Equal(t, Left, h)

	_, err = ParseHow("")
	assert.Error(t, err)
}
