package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/choropleth/internal/colorscale"
	"github.com/sells-group/choropleth/internal/geojoin"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.InDelta(t, 0.028, cfg.Boundary.Simplify, 1e-9)
	assert.Equal(t, "/tmp/choropleth", cfg.Boundary.TempDir)
	assert.Equal(t, "tiger_data", cfg.Boundary.Schema)
	assert.Equal(t, 2023, cfg.Boundary.TigerYear)
	assert.Equal(t, "choropleth.db", cfg.Store.Path)
	assert.Empty(t, cfg.Crosswalk.Path)

	assert.Equal(t, DefaultFormat().Kind, cfg.Format.Kind)
	assert.Equal(t, "lin", cfg.Format.Mapping)
	assert.Equal(t, 7, cfg.Format.NColors)
	assert.Equal(t, "1", cfg.Format.Palette)
	assert.True(t, cfg.Format.DropNA)
	assert.Equal(t, "#808080", cfg.Format.NaNColor)
	assert.Equal(t, "inner", cfg.Format.How)
	assert.InDelta(t, 0.8, cfg.Format.FillAlpha, 1e-9)
	assert.Equal(t, "#d3d3d3", cfg.Format.LineColor)
	assert.Nil(t, cfg.Format.CbarMin)
	assert.Nil(t, cfg.Format.CbarMax)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
  format: console
server:
  port: 9090
boundary:
  county_path: /data/tl_2023_us_county.zip
  simplify: 0
format:
  palette: Blues
  ncolors: 5
  cbar_min: 0
  cbar_max: 100
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/data/tl_2023_us_county.zip", cfg.Boundary.CountyPath)
	assert.Zero(t, cfg.Boundary.Simplify)
	assert.Equal(t, "Blues", cfg.Format.Palette)
	assert.Equal(t, 5, cfg.Format.NColors)
	require.NotNil(t, cfg.Format.CbarMin)
	require.NotNil(t, cfg.Format.CbarMax)
	assert.Zero(t, *cfg.Format.CbarMin)
	assert.Equal(t, 100.0, *cfg.Format.CbarMax)
	// Defaults still apply for unset values
	assert.Equal(t, "choropleth.db", cfg.Store.Path)
	assert.Equal(t, "lin", cfg.Format.Mapping)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  path: file.db
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("CHOROPLETH_STORE_PATH", "env.db")
	t.Setenv("CHOROPLETH_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "env.db", cfg.Store.Path)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("CHOROPLETH_SERVER_PORT", "3000")
	t.Setenv("CHOROPLETH_FORMAT_NCOLORS", "9")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 9, cfg.Format.NColors)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log: [unclosed"), 0o644))

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

func validDefaults() *Config {
	return &Config{
		Store:  StoreConfig{Path: "choropleth.db"},
		Server: ServerConfig{Port: 8080},
		Format: DefaultFormat(),
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "join defaults", mode: "join"},
		{name: "serve defaults", mode: "serve"},
		{name: "load defaults", mode: "load"},
		{name: "bad port", mode: "serve", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: "server.port"},
		{name: "no store", mode: "load", mutate: func(c *Config) { c.Store.Path = "" }, wantErr: "store.path is required"},
		{name: "negative simplify", mode: "join", mutate: func(c *Config) { c.Boundary.Simplify = -1 }, wantErr: "boundary.simplify"},
		{name: "alpha out of range", mode: "join", mutate: func(c *Config) { c.Format.FillAlpha = 2 }, wantErr: "fill_alpha"},
		{name: "unknown mode", mode: "unknown", wantErr: "unknown mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			err := cfg.Validate(tt.mode)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = -1
	cfg.Format.NColors = -3
	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
	assert.Contains(t, err.Error(), "format.ncolors")
}

func TestMerge(t *testing.T) {
	base := DefaultFormat()
	base.CbarMin = floatPtr(1)

	kind := "divergent"
	n := 5
	dropna := false
	high := 50.0
	merged := Merge(base, FormatOverrides{Kind: &kind, NColors: &n, DropNA: &dropna, CbarMax: &high})

	assert.Equal(t, "divergent", merged.Kind)
	assert.Equal(t, 5, merged.NColors)
	assert.False(t, merged.DropNA)
	require.NotNil(t, merged.CbarMax)
	assert.Equal(t, 50.0, *merged.CbarMax)
	require.NotNil(t, merged.CbarMin)
	assert.Equal(t, 1.0, *merged.CbarMin)
	assert.Equal(t, base.LineColor, merged.LineColor)

	// base is untouched, including the shared bound pointer
	*merged.CbarMin = 99
	assert.Equal(t, 1.0, *base.CbarMin)
	assert.Equal(t, "sequential", base.Kind)
	assert.True(t, base.DropNA)
}

func TestMerge_NoOverrides(t *testing.T) {
	base := DefaultFormat()
	assert.Equal(t, base, Merge(base, FormatOverrides{}))
}

func TestFormat_Options(t *testing.T) {
	f := DefaultFormat()
	f.Palette = "Blues"
	f.CbarMax = floatPtr(10)

	so := f.ScaleOptions()
	assert.Equal(t, colorscale.Sequential, so.Kind)
	assert.Equal(t, colorscale.ByName("Blues"), so.Palette)
	assert.Equal(t, 7, so.NColors)
	assert.Nil(t, so.Low)
	require.NotNil(t, so.High)
	assert.Equal(t, 10.0, *so.High)

	co := f.ChoroplethOptions(geojoin.Options{IDColumn: "fips"}, "v")
	assert.Equal(t, geojoin.Inner, co.Join.How)
	assert.Equal(t, "v", co.ValueColumn)
	assert.True(t, co.DropNA)
	assert.Equal(t, "#d3d3d3", co.Style.LineColor)

	co = f.ChoroplethOptions(geojoin.Options{IDColumn: "fips", How: geojoin.Outer}, "v")
	assert.Equal(t, geojoin.Outer, co.Join.How)
}
