package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/choropleth/internal/colorscale"
	"github.com/sells-group/choropleth/internal/config"
	"github.com/sells-group/choropleth/internal/store"
	"github.com/sells-group/choropleth/internal/table"
)

// openOutput returns stdout for "" or "-", else a created file.
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, eris.Wrapf(err, "create %s", path)
	}
	return f, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// readInput reads the attribute table from a file, or CSV on stdin for "-".
func readInput(ctx context.Context, path string) (*table.Table, error) {
	if path == "" {
		return nil, eris.New("--input is required")
	}
	if path == "-" {
		return table.ReadCSV(ctx, os.Stdin)
	}
	return table.ReadFile(ctx, path)
}

// writeEncoded writes v as indented JSON or YAML.
func writeEncoded(w io.Writer, format string, v any) error {
	switch strings.ToLower(format) {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(v), "encode json")
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return eris.Wrap(enc.Close(), "encode yaml")
	}
	return eris.Errorf("unknown output format %q (want json or yaml)", format)
}

// writeCSV writes a table with its header row.
func writeCSV(w io.Writer, t *table.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return eris.Wrap(err, "write csv header")
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return eris.Wrap(err, "write csv rows")
	}
	return nil
}

// formatFamilies writes a tabular palette listing to w.
func formatFamilies(out io.Writer, families []colorscale.Family) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "KIND\tRANK\tNAME\tCOLORS")
	_, _ = fmt.Fprintln(w, "----\t----\t----\t------")
	for _, f := range families {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t%d-%d\n", f.Kind, f.Rank, f.Name, f.MinColors, f.MaxColors)
	}
	_ = w.Flush()
}

// formatLoads writes a tabular representation of cached loads to w.
func formatLoads(out io.Writer, loads []store.Load) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "KIND\tLEVEL\tROWS\tLOADED\tSOURCE")
	_, _ = fmt.Fprintln(w, "----\t-----\t----\t------\t------")
	for _, l := range loads {
		level := l.Level
		if level == "" {
			level = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			l.Kind, level, l.Rows, l.LoadedAt.Format("2006-01-02 15:04"), truncate(l.Source, 60))
	}
	_ = w.Flush()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// addFormatFlags registers the per-call format overrides.
func addFormatFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("kind", "", "scale kind: sequential, sequential_single, divergent, categorical")
	f.String("palette", "", "palette name or 1-based rank")
	f.Int("ncolors", 0, "palette size")
	f.String("mapping", "", "value mapping: lin or log")
	f.Float64("cbar-min", 0, "lower scale bound (default: data minimum)")
	f.Float64("cbar-max", 0, "upper scale bound (default: data maximum)")
	f.String("nan-color", "", "color for missing values")
	f.Bool("dropna", true, "drop rows with a missing value before scaling")
	f.String("title", "", "map title passed to the renderer")
	f.Float64("fill-alpha", 0, "fill opacity passed to the renderer")
	f.String("line-color", "", "outline color passed to the renderer")
	f.Float64("line-width", 0, "outline width passed to the renderer")
}

// formatOverrides collects the flags the user actually set.
func formatOverrides(cmd *cobra.Command) config.FormatOverrides {
	f := cmd.Flags()
	var o config.FormatOverrides
	str := func(name string) *string {
		if !f.Changed(name) {
			return nil
		}
		v, _ := f.GetString(name)
		return &v
	}
	num := func(name string) *float64 {
		if !f.Changed(name) {
			return nil
		}
		v, _ := f.GetFloat64(name)
		return &v
	}
	o.Kind = str("kind")
	o.Palette = str("palette")
	o.Mapping = str("mapping")
	o.NaNColor = str("nan-color")
	o.Title = str("title")
	o.LineColor = str("line-color")
	o.CbarMin = num("cbar-min")
	o.CbarMax = num("cbar-max")
	o.FillAlpha = num("fill-alpha")
	o.LineWidth = num("line-width")
	if f.Changed("ncolors") {
		v, _ := f.GetInt("ncolors")
		o.NColors = &v
	}
	if f.Changed("dropna") {
		v, _ := f.GetBool("dropna")
		o.DropNA = &v
	}
	return o
}
