package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/choropleth/internal/colorscale"
)

var (
	palettesKind   string
	palettesFormat string
)

var palettesCmd = &cobra.Command{
	Use:   "palettes",
	Short: "List the selectable palette families",
	RunE: func(cmd *cobra.Command, _ []string) error {
		families := colorscale.Families()
		if palettesKind != "" {
			kind, err := colorscale.ParseKind(palettesKind)
			if err != nil {
				return err
			}
			var out []colorscale.Family
			for _, f := range families {
				if f.Kind == kind {
					out = append(out, f)
				}
			}
			families = out
		}

		if palettesFormat == "table" {
			formatFamilies(cmd.OutOrStdout(), families)
			return nil
		}
		return writeEncoded(cmd.OutOrStdout(), palettesFormat, families)
	},
}

func init() {
	palettesCmd.Flags().StringVar(&palettesKind, "kind", "", "only list palettes of this scale kind")
	palettesCmd.Flags().StringVar(&palettesFormat, "format", "table", "output format: table, json, or yaml")
	rootCmd.AddCommand(palettesCmd)
}
