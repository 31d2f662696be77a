package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/choropleth/internal/crosswalk"
)

var (
	expandInput     string
	expandColumn    string
	expandCrosswalk string
	expandOut       string
)

var expandCmd = &cobra.Command{
	Use:   "expand",
	Short: "Expand CBSA-keyed rows into one row per member county",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		attrs, err := readInput(ctx, expandInput)
		if err != nil {
			return err
		}
		refs, err := loadReferences(ctx, nil, true, refSources{Crosswalk: expandCrosswalk})
		if err != nil {
			return err
		}
		if refs.Crosswalk == nil {
			return errNoCrosswalk
		}

		exp, err := crosswalk.Expand(refs.Crosswalk, attrs, expandColumn)
		if err != nil {
			return err
		}
		if len(exp.Unmatched) > 0 {
			zap.L().Warn("cbsa codes not in crosswalk", zap.Strings("cbsa", exp.Unmatched))
		}
		if exp.Blank > 0 {
			zap.L().Warn("rows with a blank cbsa code dropped", zap.Int("count", exp.Blank))
		}

		out, err := openOutput(expandOut)
		if err != nil {
			return err
		}
		defer out.Close() //nolint:errcheck
		return writeCSV(out, exp.Table)
	},
}

func init() {
	expandCmd.Flags().StringVar(&expandInput, "input", "", "attribute table (.csv, .xlsx, .json, or - for CSV on stdin)")
	expandCmd.Flags().StringVar(&expandColumn, "cbsa-column", "cbsa", "column holding CBSA codes")
	expandCmd.Flags().StringVar(&expandCrosswalk, "crosswalk", "", "CBSA crosswalk path or URL (default: config)")
	expandCmd.Flags().StringVarP(&expandOut, "out", "o", "", "output CSV path (default: stdout)")
	_ = expandCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(expandCmd)
}
