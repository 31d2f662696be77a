package table

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/choropleth/internal/geoerr"
)

func TestNew_PadsAndTruncates(t *testing.T) {
	tbl, err := New([]string{"fips", "v"}, [][]string{{"01001"}, {"01003", "2", "extra"}})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"01001", ""}, {"01003", "2"}}, tbl.Rows)
	assert.Equal(t, 2, tbl.Len())
}

func TestNew_RejectsBadColumns(t *testing.T) {
	_, err := New([]string{"a", "a"}, nil)
	assert.Error(t, err)

	_, err = New([]string{"a", ""}, nil)
	assert.Error(t, err)
}

func TestColumn_Missing(t *testing.T) {
	tbl, err := New([]string{"fips"}, nil)
	require.NoError(t, err)

	_, err = tbl.Column("name")
	assert.True(t, errors.Is(err, geoerr.ErrMissingColumn))
}

func TestFloats(t *testing.T) {
	tbl, err := New([]string{"v"}, [][]string{{"10"}, {""}, {"1,250.5"}, {"NA"}, {"abc"}, {"-3e2"}})
	require.NoError(t, err)

	vals, err := tbl.Floats("v")
	require.NoError(t, err)
	require.Len(t, vals, 6)
	assert.Equal(t, 10.0, vals[0])
	assert.True(t, math.IsNaN(vals[1]))
	assert.Equal(t, 1250.5, vals[2])
	assert.True(t, math.IsNaN(vals[3]))
	assert.True(t, math.IsNaN(vals[4]))
	assert.Equal(t, -300.0, vals[5])
}

func TestMap_DoesNotMutateSource(t *testing.T) {
	tbl, err := New([]string{"name"}, [][]string{{"Cook County"}})
	require.NoError(t, err)

	out, err := tbl.Map("name", strings.ToUpper)
	require.NoError(t, err)
	assert.Equal(t, "COOK COUNTY", out.Rows[0][0])
	assert.Equal(t, "Cook County", tbl.Rows[0][0])
}

func TestDropMissing(t *testing.T) {
	tbl, err := New([]string{"fips", "v"}, [][]string{{"01001", "1"}, {"01003", ""}, {"01005", "nan"}, {"01007", "0"}})
	require.NoError(t, err)

	out, err := tbl.DropMissing("v")
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())
	assert.Equal(t, "01001", out.Rows[0][0])
	assert.Equal(t, "01007", out.Rows[1][0])
	assert.Equal(t, 4, tbl.Len())
}

func TestRecordsAndFromMaps(t *testing.T) {
	tbl, err := FromMaps([]string{"fips", "v"}, []map[string]string{
		{"fips": "01001", "v": "10"},
		{"fips": "01003"},
	})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"01001", "10"}, {"01003", ""}}, tbl.Rows)

	recs := tbl.Records()
	assert.Equal(t, "10", recs[0]["v"])
	assert.Equal(t, "", recs[1]["v"])
}

func TestReadCSV_KeepsLeadingZeros(t *testing.T) {
	input := "\ufefffips,value\n01001, 10\n06037,20\n"
	tbl, err := ReadCSV(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"fips", "value"}, tbl.Columns)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, "01001", tbl.Rows[0][0])
	assert.Equal(t, "10", tbl.Rows[0][1])
	assert.Equal(t, "06037", tbl.Rows[1][0])
}

func TestReadCSV_Empty(t *testing.T) {
	_, err := ReadCSV(context.Background(), strings.NewReader(""))
	assert.Error(t, err)
}

func TestReadJSON(t *testing.T) {
	input := `[{"fips":"01001","v":10.5,"ok":true},{"fips":"01003","v":null}]`
	tbl, err := ReadJSON(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"fips", "ok", "v"}, tbl.Columns)
	assert.Equal(t, []string{"01001", "true", "10.5"}, tbl.Rows[0])
	assert.Equal(t, []string{"01003", "", ""}, tbl.Rows[1])
}

func TestReadXLSX(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("data")
	require.NoError(t, err)
	for _, r := range [][]string{{"fips", "v", ""}, {"01001", "1"}, {"01003", "2"}} {
		row := sheet.AddRow()
		for _, c := range r {
			row.AddCell().SetString(c)
		}
	}
	path := filepath.Join(t.TempDir(), "data.xlsx")
	require.NoError(t, f.Save(path))

	tbl, err := ReadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"fips", "v"}, tbl.Columns)
	assert.Equal(t, [][]string{{"01001", "1"}, {"01003", "2"}}, tbl.Rows)
}

func TestReadFile_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("cbsa,v\n12060,1\n"), 0o644))

	tbl, err := ReadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "12060", tbl.Rows[0][0])
}

func TestReadFile_NotFound(t *testing.T) {
	_, err := ReadFile(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
