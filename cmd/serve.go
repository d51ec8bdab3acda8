package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"osint/internal/api"
	"osint/internal/api/handler/v1handler"
	"osint/internal/collector"
	"osint/internal/config"
	"osint/internal/export"
	"osint/internal/scanner"
	"osint/internal/worker"
	"osint/pkg/logger"
)

func setupServer(ctx context.Context, cfg *config.Config, s scanner.Scanner, reg *prometheus.Registry) func(ctx context.Context) {
	server, err := api.NewServer(api.Deps{
		Deps: v1handler.Deps{
			Scanner:        s,
			UploadDir:      cfg.HTTP.UploadDir,
			MaxUploadBytes: cfg.HTTP.MaxUploadBytes,
		},
		Registry: reg,
	}, api.NewOptions(cfg))
	if err != nil {
		logger.Fatal(ctx, "could not create webserver", zap.Error(err))
	}

	go func() {
		logger.Info(ctx, "starting webserver...", zap.String("addr", cfg.HTTP.Addr))
		if err := server.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				logger.Error(ctx, "could not start webserver", zap.Error(err))
			}
		}
	}()

	return func(ctx context.Context) {
		logger.Info(ctx, "stopping webserver...")
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(ctx, "could not stop webserver", zap.Error(err))
		}
	}
}

// newRegistry returns the registry served at the metrics path, carrying the
// Go runtime and process collectors like the default one does.
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return reg
}

func serveCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Starts API server and background workers",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			pgsql, closeStrg := getPostgres(ctx, cfg)
			defer closeStrg()

			graph, closeGraph := newGraphStore(ctx, cfg)
			defer closeGraph()

			reg := newRegistry()
			deps := scanner.Deps{
				Storage:   pgsql,
				Collector: collector.New(collector.NewSources(cfg), collector.NewOptions(cfg), collector.NewMetrics(reg)),
				Cache:     scanner.NewCache(cfg.Store.CacheSize, cfg.Store.CacheTTL),
				Tabular:   &export.Tabular{Sink: newArtifactSink(ctx, cfg)},
			}
			if graph != nil {
				deps.GraphStore = graph
			}
			s := scanner.New(deps, scanner.NewOptions(cfg))

			stopWebserver := setupServer(ctx, cfg, s, reg)

			riverClient, err := worker.Start(ctx, pgsql.Pool, s, worker.NewOptions(cfg))
			if err != nil {
				logger.Fatal(ctx, "could not start workers", zap.Error(err))
			}
			logger.Info(ctx, "workers started")

			// wait for interrupt
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GracefulShutdownTimeout)
			defer cancel()

			stopWebserver(shutdownCtx)

			logger.Info(ctx, "stopping workers...")
			if err := riverClient.Stop(shutdownCtx); err != nil {
				logger.Error(ctx, "could not stop workers", zap.Error(err))
			}
		},
	}

	return cmd
}
