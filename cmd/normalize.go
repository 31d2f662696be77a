package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/choropleth/internal/geoid"
)

var normalizeSuffixes []string

var normalizeCmd = &cobra.Command{
	Use:   "normalize NAME...",
	Short: "Print the join form of place names",
	Long: `Prints each name with a trailing legal/statistical descriptor such as
"County" or "Parish" dropped, the form name joins compare against.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var suffixes geoid.SuffixSet
		if len(normalizeSuffixes) > 0 {
			suffixes = geoid.NewSuffixSet(normalizeSuffixes...)
		}
		for _, name := range args {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), geoid.NormalizeName(name, suffixes))
		}
		return nil
	},
}

func init() {
	normalizeCmd.Flags().StringSliceVar(&normalizeSuffixes, "suffixes", nil, "descriptor tokens to strip (default: Census LSAD set)")
	rootCmd.AddCommand(normalizeCmd)
}
