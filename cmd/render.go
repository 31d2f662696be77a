package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/choropleth/internal/choropleth"
	"github.com/sells-group/choropleth/internal/colorscale"
	"github.com/sells-group/choropleth/internal/config"
)

// renderDocument is the renderer hand-off: colored features plus the scale
// that colored them.
type renderDocument struct {
	Type          string             `json:"type"`
	Features      []*geojson.Feature `json:"features"`
	Scale         *colorscale.Scale  `json:"colorscale"`
	Ticks         []float64          `json:"ticks"`
	Style         choropleth.Style   `json:"style"`
	Unmatched     []string           `json:"unmatched,omitempty"`
	UnmatchedCBSA []string           `json:"unmatched_cbsa,omitempty"`
	Blank         int                `json:"blank_ids,omitempty"`
}

func newRenderDocument(res *choropleth.Result) (*renderDocument, error) {
	fc, err := res.FeatureCollection()
	if err != nil {
		return nil, err
	}
	return &renderDocument{
		Type:          "FeatureCollection",
		Features:      fc.Features,
		Scale:         res.Scale,
		Ticks:         res.Scale.Ticks(),
		Style:         res.Style,
		Unmatched:     res.Unmatched,
		UnmatchedCBSA: res.UnmatchedCBSA,
		Blank:         res.Blank,
	}, nil
}

var (
	renderArgs  joinFlags
	renderValue string
	renderOut   string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Join, color, and write a GeoJSON choropleth document",
	Long: `Joins the input onto boundaries, builds the color scale of --value, and writes
a GeoJSON FeatureCollection whose features carry fill_color and the styling
properties, with the scale attached as "colorscale".`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("join"); err != nil {
			return err
		}

		joinOpts, err := renderArgs.options()
		if err != nil {
			return err
		}
		attrs, err := readInput(ctx, renderArgs.input)
		if err != nil {
			return err
		}
		refs, err := renderArgs.references(ctx, joinOpts)
		if err != nil {
			return err
		}
		joinOpts.Crosswalk = refs.Crosswalk

		format := config.Merge(cfg.Format, formatOverrides(cmd))
		res, err := choropleth.Build(refs.Boundaries[joinOpts.Level], attrs, format.ChoroplethOptions(joinOpts, renderValue))
		if err != nil {
			return eris.Wrap(err, "render")
		}
		doc, err := newRenderDocument(res)
		if err != nil {
			return err
		}

		out, err := openOutput(renderOut)
		if err != nil {
			return err
		}
		defer out.Close() //nolint:errcheck

		zap.L().Info("choropleth rendered",
			zap.Int("features", len(doc.Features)),
			zap.Int("dropped", res.Dropped),
			zap.String("palette", res.Scale.Palette),
		)
		return writeEncoded(out, "json", doc)
	},
}

func init() {
	renderArgs.register(renderCmd)
	renderCmd.Flags().StringVar(&renderValue, "value", "", "value column to color by")
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "", "output GeoJSON path (default: stdout)")
	_ = renderCmd.MarkFlagRequired("value")
	addFormatFlags(renderCmd)
	rootCmd.AddCommand(renderCmd)
}
