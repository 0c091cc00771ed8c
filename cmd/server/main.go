package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vanshika/fintrace/txindex/internal/config"
	"github.com/vanshika/fintrace/txindex/internal/graph"
	"github.com/vanshika/fintrace/txindex/internal/logging"
	"github.com/vanshika/fintrace/txindex/internal/metrics"
	"github.com/vanshika/fintrace/txindex/internal/server"
	"github.com/vanshika/fintrace/txindex/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.New(registry)

	ledger := service.NewLedgerService(cfg.Index, logger, recorder)
	if cfg.Index.DatasetPath != "" {
		report, err := service.NewBulkIngestor(ledger, 0).IngestFile(ctx, cfg.Index.DatasetPath)
		if err != nil {
			logger.Error("dataset preload failed", "error", err, "path", cfg.Index.DatasetPath)
			os.Exit(1)
		}
		logger.Info("dataset preloaded", "path", cfg.Index.DatasetPath, "inserted", report.Inserted, "skipped", report.Skipped)
	}

	graphClient, err := buildGraphClient(ctx, cfg)
	switch {
	case errors.Is(err, graph.ErrMissingURI):
		logger.Info("graph export not configured")
	case err != nil:
		logger.Error("failed to create graph client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if graphClient != nil {
			if err := graphClient.Close(context.Background()); err != nil {
				logger.Warn("closing graph client failed", "error", err)
			}
		}
	}()

	health := server.HealthChecks{server.IndexHealthService{Index: ledger}}
	if graphClient != nil {
		health = append(health, server.GraphHealthService{Client: graphClient})
	}

	var metricsHandler http.Handler
	if cfg.HTTP.MetricsEnabled {
		metricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
	}

	router := server.NewRouter(logger, server.RouterDependencies{
		Health:           health,
		API:              server.NewAPIHandlers(logger, ledger),
		Metrics:          metricsHandler,
		AllowedOrigins:   server.ParseAllowedOrigins(cfg.HTTP.AllowedOriginsCSV),
		AllowCredentials: true,
	})

	srv := server.New(logger, cfg.HTTP, router)
	if err := srv.ListenAndRun(ctx); err != nil {
		logger.Error("server stopped unexpectedly", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func buildGraphClient(ctx context.Context, cfg config.Config) (graph.Client, error) {
	if cfg.Graph.URI == "" {
		return nil, graph.ErrMissingURI
	}

	opts := graph.Options{
		URI:            cfg.Graph.URI,
		Database:       cfg.Graph.Database,
		Username:       cfg.Graph.Username,
		Password:       cfg.Graph.Password,
		MaxConnections: cfg.Graph.MaxConnections,
	}
	return graph.NewNeo4jClient(ctx, opts)
}
