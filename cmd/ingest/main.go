package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vanshika/fintrace/txindex/internal/config"
	"github.com/vanshika/fintrace/txindex/internal/graph"
	"github.com/vanshika/fintrace/txindex/internal/logging"
	"github.com/vanshika/fintrace/txindex/internal/repository"
	"github.com/vanshika/fintrace/txindex/internal/service"
)

var errMissingDataset = errors.New("dataset not found")

func main() {
	var (
		dataPath = flag.String("data", "", "Path to the transactions CSV (defaults to INDEX_DATASET)")
		export   = flag.Bool("export", false, "Export the loaded index to the graph database")
		workers  = flag.Int("workers", 4, "Number of concurrent workers for graph export")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging).With("component", "ingest")

	path, err := resolveDatasetPath(*dataPath, cfg.Index.DatasetPath)
	if err != nil {
		logger.Error("dataset resolution failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ledger := service.NewLedgerService(cfg.Index, logger, nil)
	ingestor := service.NewBulkIngestor(ledger, *workers)

	start := time.Now()
	report, err := ingestor.IngestFile(ctx, path)
	if err != nil {
		logger.Error("ingestion failed", "error", err, "path", path)
		os.Exit(1)
	}
	shape := ledger.Shape()
	if err := ledger.Check(); err != nil {
		logger.Error("index invariants violated", "error", err)
		os.Exit(1)
	}
	logger.Info("ingestion complete",
		"duration", time.Since(start).String(),
		"records", shape.Records,
		"height", shape.Height,
		"duplicates", report.Duplicates,
		"skipped", report.Skipped,
		"evicted", report.Evicted,
	)

	if !*export {
		return
	}

	graphClient, err := buildGraphClient(ctx, logger, cfg)
	if err != nil {
		logger.Error("failed to create graph client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := graphClient.Close(context.Background()); err != nil {
			logger.Warn("closing graph client failed", "error", err)
		}
	}()

	repo := repository.New(graphClient)
	if err := repo.EnsureSchema(ctx); err != nil {
		logger.Error("schema setup failed", "error", err)
		os.Exit(1)
	}

	start = time.Now()
	exported, err := ingestor.ExportGraph(ctx, ledger, repo, cfg.Graph.BatchSize)
	if err != nil {
		logger.Error("graph export failed", "error", err, "exported", exported)
		os.Exit(1)
	}
	stored, err := repo.CountTransactions(ctx)
	if err != nil {
		logger.Warn("graph count failed", "error", err)
	}
	logger.Info("graph export complete", "duration", time.Since(start).String(), "exported", exported, "graphTransactions", stored)
}

func resolveDatasetPath(explicitPath, configured string) (string, error) {
	path := explicitPath
	if path == "" {
		path = configured
	}
	if path == "" {
		return "", fmt.Errorf("%w: pass -data or set INDEX_DATASET", errMissingDataset)
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %s", errMissingDataset, path)
	}
	return path, nil
}

func buildGraphClient(ctx context.Context, logger *slog.Logger, cfg config.Config) (graph.Client, error) {
	if cfg.Graph.URI == "" {
		return nil, fmt.Errorf("GRAPH_URI is required for export: %w", graph.ErrMissingURI)
	}
	opts := graph.Options{
		URI:            cfg.Graph.URI,
		Database:       cfg.Graph.Database,
		Username:       cfg.Graph.Username,
		Password:       cfg.Graph.Password,
		MaxConnections: cfg.Graph.MaxConnections,
	}
	client, err := graph.NewNeo4jClient(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.VerifyConnectivity(ctx); err != nil {
		_ = client.Close(ctx)
		return nil, err
	}
	logger.Info("connected to graph", "uri", cfg.Graph.URI, "database", cfg.Graph.Database)
	return client, nil
}
