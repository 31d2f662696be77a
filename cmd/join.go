package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/choropleth/internal/geoid"
	"github.com/sells-group/choropleth/internal/geojoin"
	"github.com/sells-group/choropleth/internal/server"
)

// joinFlags are shared by join and render.
type joinFlags struct {
	input     string
	idColumn  string
	idType    string
	level     string
	how       string
	suffix    string
	boundary  string
	crosswalk string
}

func (f *joinFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.input, "input", "", "attribute table (.csv, .xlsx, .json, or - for CSV on stdin)")
	cmd.Flags().StringVar(&f.idColumn, "id-column", "", "identifier column of the input")
	cmd.Flags().StringVar(&f.idType, "id-type", "fips", "identifier type: fips, name, abbrev, cbsa")
	cmd.Flags().StringVar(&f.level, "level", "county", "geography level: county or state")
	cmd.Flags().StringVar(&f.how, "how", "", "join mode: inner, left, right, outer (default: format.how)")
	cmd.Flags().StringVar(&f.suffix, "suffix", "", "suffix for boundary columns that collide with input columns")
	cmd.Flags().StringVar(&f.boundary, "boundary", "", "boundary source path or URL (default: config)")
	cmd.Flags().StringVar(&f.crosswalk, "crosswalk", "", "CBSA crosswalk path or URL (default: config)")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("id-column")
}

// options validates the flags into join options.
func (f *joinFlags) options() (geojoin.Options, error) {
	level, err := geoid.ParseLevel(f.level)
	if err != nil {
		return geojoin.Options{}, err
	}
	idType, err := geoid.ParseIDType(f.idType)
	if err != nil {
		return geojoin.Options{}, err
	}
	opts := geojoin.Options{
		IDColumn: f.idColumn,
		IDType:   idType,
		Level:    level,
		Suffix:   f.suffix,
	}
	if f.how != "" {
		how, err := geojoin.ParseHow(f.how)
		if err != nil {
			return geojoin.Options{}, err
		}
		opts.How = how
	}
	return opts, nil
}

// references loads the boundary set the join needs and, for CBSA
// identifiers, the crosswalk.
func (f *joinFlags) references(ctx context.Context, opts geojoin.Options) (server.References, error) {
	return loadReferences(ctx, []geoid.Level{opts.Level}, opts.IDType == geoid.IDCBSA,
		refSources{Boundary: f.boundary, Crosswalk: f.crosswalk})
}

var joinArgs joinFlags
var joinOut string

var joinCmd = &cobra.Command{
	Use:   "join",
	Short: "Join an attribute table onto boundaries and write the joined table as CSV",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("join"); err != nil {
			return err
		}

		opts, err := joinArgs.options()
		if err != nil {
			return err
		}
		if opts.How == "" {
			opts.How = geojoin.How(cfg.Format.How)
		}
		attrs, err := readInput(ctx, joinArgs.input)
		if err != nil {
			return err
		}
		refs, err := joinArgs.references(ctx, opts)
		if err != nil {
			return err
		}
		opts.Crosswalk = refs.Crosswalk

		res, err := geojoin.Merge(refs.Boundaries[opts.Level], attrs, opts)
		if err != nil {
			return eris.Wrap(err, "join")
		}

		out, err := openOutput(joinOut)
		if err != nil {
			return err
		}
		defer out.Close() //nolint:errcheck

		zap.L().Info("join complete",
			zap.Int("rows", res.Table.Len()),
			zap.Int("unmatched", len(res.Unmatched)),
			zap.Int("unmatched_cbsa", len(res.UnmatchedCBSA)),
			zap.Int("blank_ids", res.Blank),
		)
		return writeCSV(out, res.Table.Table())
	},
}

func init() {
	joinArgs.register(joinCmd)
	joinCmd.Flags().StringVarP(&joinOut, "out", "o", "", "output CSV path (default: stdout)")
	rootCmd.AddCommand(joinCmd)
}
