package main

import (
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/rohankatakam/torvalds/internal/api"
	"github.com/rohankatakam/torvalds/internal/config"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API:

  POST /api/calculate     {"username": "..."}
  GET  /api/autocomplete  ?q=prefix
  GET  /api/stats
  GET  /healthz
  GET  /metrics`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :8080)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if serveAddr != "" {
		cfg.HTTP.Addr = serveAddr
	}

	a, err := newApp(ctx, appOptions{validation: config.ValidationContextServe, withRedis: true})
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	go a.graphClient.WatchPoolHealth(ctx, 30*time.Second)

	router := api.NewRouter(api.Dependencies{
		Resolver:    a.resolver,
		Suggest:     a.suggest,
		Stats:       a.stats,
		Health:      a.store,
		Metrics:     promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}),
		StatsMaxAge: a.stats.Cache.TTL(),
		Logger:      logger,
	})
	return api.Serve(ctx, cfg.HTTP.Addr, router, cfg.Ingest.Timeout, logger)
}
