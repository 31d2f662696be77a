package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/choropleth/internal/boundary"
	"github.com/sells-group/choropleth/internal/crosswalk"
	"github.com/sells-group/choropleth/internal/fetcher"
	"github.com/sells-group/choropleth/internal/geoid"
	"github.com/sells-group/choropleth/internal/tiger"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Cache reference data in the local store",
	Long:  "Download or read boundary shapefiles and the CBSA crosswalk and cache them in the sqlite store.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		return cfg.Validate("load")
	},
}

var loadBoundariesCmd = &cobra.Command{
	Use:   "boundaries",
	Short: "Load state or county boundaries into the store",
	Long: `Reads boundaries from --from (a shapefile, GeoJSON, or zip archive, local or
remote) or, without --from, downloads the Census TIGER/Line national file for
--tiger-year. Geometry is cached unsimplified.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		levelArg, _ := cmd.Flags().GetString("level")
		from, _ := cmd.Flags().GetString("from")
		year, _ := cmd.Flags().GetInt("tiger-year")
		if year == 0 {
			year = cfg.Boundary.TigerYear
		}

		levels := []geoid.Level{geoid.LevelState, geoid.LevelCounty}
		if levelArg != "all" {
			level, err := geoid.ParseLevel(levelArg)
			if err != nil {
				return err
			}
			levels = []geoid.Level{level}
		}
		if from != "" && len(levels) > 1 {
			return eris.New("--from needs a single --level")
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		r := fetcher.NewResolver(cfg.Boundary.TempDir)

		for _, level := range levels {
			var (
				set    *boundary.Set
				source = from
			)
			if from != "" {
				set, err = boundary.Load(ctx, r, from, level, 0)
			} else {
				p, perr := tiger.ProductForLevel(level)
				if perr != nil {
					return perr
				}
				source = tiger.DownloadURL(p, year)
				set, err = tiger.FetchBoundaries(ctx, r, level, year, 0)
			}
			if err != nil {
				return err
			}

			l, err := st.SaveBoundaries(ctx, set, source)
			if err != nil {
				return err
			}
			zap.L().Info("boundaries loaded",
				zap.String("level", string(level)),
				zap.Int("records", l.Rows),
				zap.String("load_id", l.ID),
			)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "loaded %d %s boundaries\n", l.Rows, level)
		}
		return nil
	},
}

var loadCrosswalkCmd = &cobra.Command{
	Use:   "crosswalk",
	Short: "Load the CBSA to county crosswalk into the store",
	Long: `Reads the crosswalk from --from (CSV or OMB delineation workbook, local or
remote) or, without --from, downloads the OMB delineation list for
--delineation-year.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		from, _ := cmd.Flags().GetString("from")
		year, _ := cmd.Flags().GetInt("delineation-year")
		if year == 0 {
			year = cfg.Boundary.TigerYear
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		r := fetcher.NewResolver(cfg.Boundary.TempDir)

		var (
			cw     *crosswalk.Table
			source = from
		)
		if from != "" {
			path, rerr := r.Resolve(ctx, from, ".csv", ".xlsx")
			if rerr != nil {
				return eris.Wrap(rerr, "crosswalk: resolve source")
			}
			cw, err = crosswalk.Load(ctx, path)
		} else {
			source = tiger.DelineationURL(year)
			cw, err = tiger.FetchCrosswalk(ctx, r, year)
		}
		if err != nil {
			return err
		}

		l, err := st.SaveCrosswalk(ctx, cw, source)
		if err != nil {
			return err
		}
		zap.L().Info("crosswalk loaded",
			zap.Int("records", l.Rows),
			zap.Int("cbsas", len(cw.CBSAs())),
			zap.String("load_id", l.ID),
		)
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "loaded %d crosswalk rows\n", l.Rows)
		return nil
	},
}

var loadStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cached reference loads",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		loads, err := st.ListLoads(ctx)
		if err != nil {
			return err
		}
		if len(loads) == 0 {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no reference data loaded")
			return nil
		}
		formatLoads(cmd.OutOrStdout(), loads)
		return nil
	},
}

func init() {
	loadBoundariesCmd.Flags().String("level", "all", "geography level: county, state, or all")
	loadBoundariesCmd.Flags().String("from", "", "boundary source path or URL (default: TIGER/Line download)")
	loadBoundariesCmd.Flags().Int("tiger-year", 0, "TIGER/Line vintage (default: boundary.tiger_year)")

	loadCrosswalkCmd.Flags().String("from", "", "crosswalk source path or URL (default: OMB delineation download)")
	loadCrosswalkCmd.Flags().Int("delineation-year", 0, "OMB delineation vintage (default: boundary.tiger_year)")

	loadCmd.AddCommand(loadBoundariesCmd, loadCrosswalkCmd, loadStatusCmd)
	rootCmd.AddCommand(loadCmd)
}
