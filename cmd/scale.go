package main

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/choropleth/internal/colorscale"
	"github.com/sells-group/choropleth/internal/config"
)

type scaleReport struct {
	Scale   *colorscale.Scale `json:"scale" yaml:"scale"`
	Ticks   []float64         `json:"ticks" yaml:"ticks"`
	Values  int               `json:"values" yaml:"values"`
	Missing int               `json:"missing" yaml:"missing"`
}

var (
	scaleInput  string
	scaleColumn string
	scaleFormat string
)

var scaleCmd = &cobra.Command{
	Use:   "scale",
	Short: "Build the color scale of a value column",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("join"); err != nil {
			return err
		}

		t, err := readInput(ctx, scaleInput)
		if err != nil {
			return err
		}
		values, err := t.Floats(scaleColumn)
		if err != nil {
			return err
		}
		missing := 0
		for _, v := range values {
			if math.IsNaN(v) {
				missing++
			}
		}

		format := config.Merge(cfg.Format, formatOverrides(cmd))
		scale, err := colorscale.Build(values, format.ScaleOptions())
		if err != nil {
			return eris.Wrap(err, "scale")
		}

		return writeEncoded(cmd.OutOrStdout(), scaleFormat, scaleReport{
			Scale:   scale,
			Ticks:   scale.Ticks(),
			Values:  len(values),
			Missing: missing,
		})
	},
}

func init() {
	scaleCmd.Flags().StringVar(&scaleInput, "input", "", "attribute table (.csv, .xlsx, .json, or - for CSV on stdin)")
	scaleCmd.Flags().StringVar(&scaleColumn, "column", "", "value column")
	scaleCmd.Flags().StringVar(&scaleFormat, "format", "json", "output format: json or yaml")
	_ = scaleCmd.MarkFlagRequired("input")
	_ = scaleCmd.MarkFlagRequired("column")
	addFormatFlags(scaleCmd)
	rootCmd.AddCommand(scaleCmd)
}
