package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"orasp/internal/catalog"
	"orasp/internal/config"
	"orasp/internal/server"
	"orasp/internal/telemetry"
)

var serveBind string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve instances over HTTP",
	Long: `Starts the HTTP API:

  GET  /healthz
  GET  /v1/instances?operations=&surgeons=&rooms=&seed=&format=
  POST /v1/instances
  GET  /v1/catalog        (when a catalog is configured)
  GET  /v1/catalog/{id}
  GET  /metrics`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveBind, "bind", "", "Listen address (default: config http_bind)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	if cmd.Flags().Changed("bind") {
		cfg.HTTPBind = serveBind
		if err := config.Validate(cfg); err != nil {
			return fmt.Errorf("invalid serve flags: %w", err)
		}
	}

	var lister server.Lister
	if cfg.CatalogDSN != "" {
		cat, err := catalog.Open(cfg.CatalogDSN, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := cat.Close(); err != nil {
				logger.Error().Err(err).Msg("close catalog")
			}
		}()
		lister = cat
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg.Params, telemetry.NewMetrics(), lister, logger)
	return srv.ListenAndServe(ctx, cfg.HTTPBind)
}
