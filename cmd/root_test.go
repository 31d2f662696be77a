package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/choropleth/internal/colorscale"
	"github.com/sells-group/choropleth/internal/geoerr"
	"github.com/sells-group/choropleth/internal/geoid"
	"github.com/sells-group/choropleth/internal/geojoin"
	"github.com/sells-group/choropleth/internal/store"
	"github.com/sells-group/choropleth/internal/table"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	expected := []string{"join", "scale", "render", "empty", "palettes", "normalize", "expand", "load", "serve"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "choropleth", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestLoadCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range loadCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"boundaries", "crosswalk", "status"} {
		assert.True(t, names[name], "load should have subcommand %q", name)
	}
}

func TestJoinCommand_Flags(t *testing.T) {
	for _, name := range []string{"input", "id-column", "id-type", "level", "how", "suffix", "boundary", "crosswalk", "out"} {
		assert.NotNil(t, joinCmd.Flags().Lookup(name), "join should have --%s flag", name)
	}
	assert.Equal(t, "county", joinCmd.Flags().Lookup("level").DefValue)
	assert.Equal(t, "fips", joinCmd.Flags().Lookup("id-type").DefValue)
}

func TestRenderCommand_FormatFlags(t *testing.T) {
	for _, name := range []string{"value", "kind", "palette", "ncolors", "mapping", "cbar-min", "cbar-max", "nan-color", "dropna", "title"} {
		assert.NotNil(t, renderCmd.Flags().Lookup(name), "render should have --%s flag", name)
	}
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag)
	assert.Equal(t, "0", flag.DefValue)
}

func TestJoinFlags_Options(t *testing.T) {
	f := joinFlags{idColumn: "code", idType: "abbrev", level: "state", how: "left"}
	opts, err := f.options()
	require.NoError(t, err)
	assert.Equal(t, geojoin.Options{IDColumn: "code", IDType: geoid.IDAbbrev, Level: geoid.LevelState, How: geojoin.Left}, opts)

	f.level = "tract"
	_, err = f.options()
	assert.Equal(t, geoerr.UnknownGeoLevel, geoerr.KindOf(err))

	f.level = "county"
	f.idType = "zip"
	_, err = f.options()
	assert.Equal(t, geoerr.UnknownIdentifierType, geoerr.KindOf(err))

	f.idType = "fips"
	f.how = "cross"
	_, err = f.options()
	assert.Equal(t, geoerr.UnknownJoinMode, geoerr.KindOf(err))
}

func TestFormatOverrides_OnlyChanged(t *testing.T) {
	cmd := &cobra.Command{Use: "x"}
	addFormatFlags(cmd)
	require.NoError(t, cmd.Flags().Set("palette", "Blues"))
	require.NoError(t, cmd.Flags().Set("ncolors", "5"))
	require.NoError(t, cmd.Flags().Set("cbar-min", "0"))
	require.NoError(t, cmd.Flags().Set("dropna", "false"))

	o := formatOverrides(cmd)
	require.NotNil(t, o.Palette)
	assert.Equal(t, "Blues", *o.Palette)
	require.NotNil(t, o.NColors)
	assert.Equal(t, 5, *o.NColors)
	require.NotNil(t, o.CbarMin)
	assert.Equal(t, 0.0, *o.CbarMin)
	require.NotNil(t, o.DropNA)
	assert.False(t, *o.DropNA)

	assert.Nil(t, o.Kind)
	assert.Nil(t, o.CbarMax)
	assert.Nil(t, o.Mapping)
	assert.Nil(t, o.FillAlpha)
}

func TestWriteCSV(t *testing.T) {
	tbl, err := table.New([]string{"fips", "name"}, [][]string{{"01001", "Autauga"}, {"01003", "Baldwin, AL"}})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, writeCSV(&buf, tbl))
	assert.Equal(t, "fips,name\n01001,Autauga\n01003,\"Baldwin, AL\"\n", buf.String())
}

func TestWriteEncoded(t *testing.T) {
	v := colorscale.Family{Kind: colorscale.Sequential, Name: "RdPu", Rank: 1, MinColors: 3, MaxColors: 9}

	var buf bytes.Buffer
	require.NoError(t, writeEncoded(&buf, "yaml", v))
	assert.Contains(t, buf.String(), "name: RdPu")
	assert.Contains(t, buf.String(), "max_colors: 9")

	buf.Reset()
	require.NoError(t, writeEncoded(&buf, "json", v))
	var got colorscale.Family
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, v, got)

	assert.Error(t, writeEncoded(&buf, "xml", v))
}

func TestFormatFamilies(t *testing.T) {
	var buf bytes.Buffer
	formatFamilies(&buf, []colorscale.Family{
		{Kind: colorscale.Divergent, Name: "RdBu", Rank: 2, MinColors: 3, MaxColors: 11},
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "KIND")
	assert.Contains(t, lines[0], "COLORS")
	assert.Contains(t, lines[2], "divergent")
	assert.Contains(t, lines[2], "RdBu")
	assert.Contains(t, lines[2], "3-11")
}

func TestFormatLoads(t *testing.T) {
	var buf bytes.Buffer
	formatLoads(&buf, []store.Load{
		{Kind: store.KindBoundary, Level: "county", Rows: 3234, Source: "tl_2023_us_county.zip", LoadedAt: time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)},
		{Kind: store.KindCrosswalk, Rows: 1915, Source: strings.Repeat("x", 80), LoadedAt: time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)},
	})

	out := buf.String()
	assert.Contains(t, out, "LEVEL")
	assert.Contains(t, out, "3234")
	assert.Contains(t, out, "2024-03-01 09:30")
	assert.Contains(t, out, "...")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[3], " - ")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}

const testCounties = `{"type":"FeatureCollection","features":[
	{"type":"Feature","properties":{"GEOID":"01001","NAME":"Autauga"},
	 "geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}},
	{"type":"Feature","properties":{"GEOID":"01003","NAME":"Baldwin"},
	 "geometry":{"type":"Polygon","coordinates":[[[1,0],[2,0],[2,1],[1,1],[1,0]]]}}
]}`

// execute runs the root command with args in an isolated workspace.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CHOROPLETH_STORE_PATH", filepath.Join(dir, "cache.db"))
	t.Setenv("CHOROPLETH_BOUNDARY_TEMP_DIR", filepath.Join(dir, "tmp"))

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestExecute_Palettes(t *testing.T) {
	out, err := execute(t, "palettes", "--kind", "divergent", "--format", "json")
	require.NoError(t, err)

	var families []colorscale.Family
	require.NoError(t, json.Unmarshal([]byte(out), &families))
	require.Len(t, families, 3)
	assert.Equal(t, "BrBG", families[0].Name)
	assert.Equal(t, 11, families[0].MaxColors)
}

func TestExecute_Normalize(t *testing.T) {
	out, err := execute(t, "normalize", "Cook County", "Orleans Parish", "Carson City")
	require.NoError(t, err)
	assert.Equal(t, "Cook\nOrleans\nCarson\n", out)
}

func TestExecute_Join(t *testing.T) {
	dir := t.TempDir()
	boundaries := filepath.Join(dir, "counties.geojson")
	require.NoError(t, os.WriteFile(boundaries, []byte(testCounties), 0o644))
	input := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(input, []byte("fips,rate\n1001,12.5\n99999,3\n"), 0o644))
	output := filepath.Join(dir, "joined.csv")

	_, err := execute(t, "join",
		"--input", input, "--id-column", "fips", "--id-type", "fips",
		"--level", "county", "--how", "inner", "--boundary", boundaries, "--out", output)
	require.NoError(t, err)

	raw, err := os.ReadFile(output)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "rate")
	assert.Contains(t, lines[1], "01001")
	assert.Contains(t, lines[1], "12.5")
}
