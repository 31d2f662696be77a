package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/choropleth/internal/boundary"
	"github.com/sells-group/choropleth/internal/geoid"
	"github.com/sells-group/choropleth/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the choropleth HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cmd.Flags().Changed("port") {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		refs := server.References{Boundaries: map[geoid.Level]*boundary.Set{}}
		for _, level := range []geoid.Level{geoid.LevelState, geoid.LevelCounty} {
			r, err := loadReferences(ctx, []geoid.Level{level}, false, refSources{})
			if err != nil {
				zap.L().Warn("boundaries unavailable", zap.String("level", string(level)), zap.Error(err))
				continue
			}
			refs.Boundaries[level] = r.Boundaries[level]
		}
		cw, err := loadReferences(ctx, nil, true, refSources{})
		if err != nil {
			return err
		}
		refs.Crosswalk = cw.Crosswalk
		if refs.Crosswalk == nil {
			zap.L().Warn("no crosswalk loaded; cbsa joins will be rejected")
		}

		srv := server.New(refs, cfg.Format, server.Options{
			Port:           cfg.Server.Port,
			AllowedOrigins: cfg.Server.AllowedOrigins,
		})
		return srv.ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (default: server.port)")
	rootCmd.AddCommand(serveCmd)
}
