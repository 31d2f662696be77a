package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/choropleth/internal/choropleth"
	"github.com/sells-group/choropleth/internal/config"
	"github.com/sells-group/choropleth/internal/geoid"
)

var (
	emptyLevel    string
	emptyBoundary string
	emptyOut      string
)

var emptyCmd = &cobra.Command{
	Use:   "empty",
	Short: "Write an uncolored outline map of every boundary at a level",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		level, err := geoid.ParseLevel(emptyLevel)
		if err != nil {
			return err
		}
		refs, err := loadReferences(ctx, []geoid.Level{level}, false, refSources{Boundary: emptyBoundary})
		if err != nil {
			return err
		}

		out, err := openOutput(emptyOut)
		if err != nil {
			return err
		}
		defer out.Close() //nolint:errcheck

		format := config.Merge(cfg.Format, formatOverrides(cmd))
		return writeEncoded(out, "json", choropleth.Outline(refs.Boundaries[level], format.Style()))
	},
}

func init() {
	emptyCmd.Flags().StringVar(&emptyLevel, "level", "county", "geography level: county or state")
	emptyCmd.Flags().StringVar(&emptyBoundary, "boundary", "", "boundary source path or URL (default: config)")
	emptyCmd.Flags().StringVarP(&emptyOut, "out", "o", "", "output GeoJSON path (default: stdout)")
	addFormatFlags(emptyCmd)
	rootCmd.AddCommand(emptyCmd)
}
