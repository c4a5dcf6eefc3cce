package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bitechdev/RecordSpec/pkg/components"
	"github.com/bitechdev/RecordSpec/pkg/config"
	"github.com/bitechdev/RecordSpec/pkg/dbmanager"
	"github.com/bitechdev/RecordSpec/pkg/errortracking"
	"github.com/bitechdev/RecordSpec/pkg/logger"
	"github.com/bitechdev/RecordSpec/pkg/metrics"
	"github.com/bitechdev/RecordSpec/pkg/recordapi"
	"github.com/bitechdev/RecordSpec/pkg/server"
	"github.com/bitechdev/RecordSpec/pkg/tracing"
)

func newServeCommand() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the RecordSpec API server.",
		Long: `serve connects every configured database, mounts the record API and the
configured components under the server prefix and listens until SIGINT or
SIGTERM, then drains in-flight requests before closing connections.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				cfg.Server.Addr = addr
			}
			return serve(cmd.Context(), cfg)
		},
	}
	serveCmd.Flags().String("addr", "", "Listen address, overriding server.addr.")
	return serveCmd
}

func initObservability(cfg *config.Config) (func(context.Context) error, error) {
	logger.Init(cfg.Logger.Dev)
	if cfg.Logger.Path != "" {
		logger.UpdateLoggerPath(cfg.Logger.Path, cfg.Logger.Dev)
	}

	tracker, err := errortracking.NewProviderFromConfig(cfg.ErrorTracking)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize error tracking: %w", err)
	}
	logger.InitErrorTracking(tracker)

	metrics.SetProvider(metrics.NewProviderFromConfig(cfg.Metrics))

	shutdownTracer, err := tracing.InitTracer(cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	return shutdownTracer, nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	shutdownTracer, err := initObservability(cfg)
	if err != nil {
		return err
	}
	logger.Info("RecordSpec server starting")

	dbMgr, err := dbmanager.NewManager(dbmanager.FromConfig(cfg.DBManager))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	if err := dbMgr.Connect(ctx); err != nil {
		_ = dbMgr.Close()
		return fmt.Errorf("failed to connect databases: %w", err)
	}

	handler := recordapi.NewHandler(dbMgr, recordapi.NewEngine(cfg.Engine))
	registry, err := components.NewRegistryFromConfig(handler, cfg.Components)
	if err != nil {
		_ = dbMgr.Close()
		return fmt.Errorf("failed to build components: %w", err)
	}

	h, stopLimiter := buildHandler(cfg, handler, registry)
	srv, err := server.NewGracefulServer(server.FromConfig(cfg.Server, h))
	if err != nil {
		stopLimiter()
		_ = dbMgr.Close()
		return err
	}

	srv.OnShutdown(func(context.Context) error {
		stopLimiter()
		return dbMgr.Close()
	})
	srv.OnShutdown(func(ctx context.Context) error {
		return shutdownTracer(ctx)
	})
	srv.OnShutdown(func(context.Context) error {
		return logger.CloseErrorTracking()
	})

	logger.Info("Serving %d components and the record API under %s on %s",
		len(registry.Components()), cfg.Server.Prefix, cfg.Server.Addr)
	if err := srv.ListenAndServe(ctx); err != nil {
		logger.Error("Server failed: %v", err)
		return err
	}
	return nil
}
