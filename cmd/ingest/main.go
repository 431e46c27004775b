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

	"github.com/vanshika/affiliatedesk/internal/config"
	"github.com/vanshika/affiliatedesk/internal/domain"
	"github.com/vanshika/affiliatedesk/internal/generator"
	"github.com/vanshika/affiliatedesk/internal/graph"
	"github.com/vanshika/affiliatedesk/internal/ledger"
	"github.com/vanshika/affiliatedesk/internal/logging"
	"github.com/vanshika/affiliatedesk/internal/metrics"
	"github.com/vanshika/affiliatedesk/internal/repository"
	"github.com/vanshika/affiliatedesk/internal/service"
)

func main() {
	var (
		datasetDir   = flag.String("dataset-dir", "./seed-data", "Directory containing affiliates.json, commissions.json, payouts.json and attributions.json")
		workers      = flag.Int("workers", 4, "Number of concurrent workers for ingestion")
		skipValidate = flag.Bool("skip-validate", false, "Load records without validating the whole snapshot first")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Component(logging.New(cfg.Logging), "ingest")

	dataset, err := generator.ReadDataset(*datasetDir)
	if err != nil {
		logger.Error("failed to load dataset", "error", err, "dir", *datasetDir)
		os.Exit(1)
	}
	if len(dataset.Affiliates) == 0 {
		logger.Error("affiliates dataset empty", "dir", *datasetDir)
		os.Exit(1)
	}

	if !*skipValidate {
		if _, err := dataset.Snapshot().ToDomain(); err != nil {
			logValidation(logger, err)
			os.Exit(1)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

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

	pool, err := ledger.NewPool(ctx, cfg.Ledger, logger)
	if err != nil {
		logger.Error("failed to connect to ledger database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	repo := repository.New(graphClient)
	ledgerStore := ledger.NewStore(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		logger.Error("failed to prepare graph schema", "error", err)
		os.Exit(1)
	}
	if err := ledgerStore.EnsureSchema(ctx); err != nil {
		logger.Error("failed to prepare ledger schema", "error", err)
		os.Exit(1)
	}

	svc := service.NewAffiliateService(repo, ledgerStore)
	svc.WithLogger(logger)
	svc.WithMetrics(metrics.New())
	ingestor := service.NewBulkIngestor(svc, *workers)

	start := time.Now()
	steps := []struct {
		name  string
		count int
		run   func() error
	}{
		{"affiliates", len(dataset.Affiliates), func() error { return ingestor.IngestAffiliates(ctx, dataset.Affiliates) }},
		{"commissions", len(dataset.Commissions), func() error { return ingestor.IngestCommissions(ctx, dataset.Commissions) }},
		{"payouts", len(dataset.Payouts), func() error { return ingestor.IngestPayouts(ctx, dataset.Payouts) }},
		{"attributions", len(dataset.Attributions), func() error { return ingestor.IngestAttributions(ctx, dataset.Attributions) }},
	}
	for _, step := range steps {
		logger.Info("ingesting "+step.name, "count", step.count, "workers", *workers)
		if err := step.run(); err != nil {
			var taskErr *service.TaskError
			if errors.As(err, &taskErr) {
				logger.Error(step.name+" ingestion failed", "failures", len(taskErr.Errors), "first", taskErr.Errors[0])
			} else {
				logger.Error(step.name+" ingestion failed", "error", err)
			}
			os.Exit(1)
		}
	}

	logger.Info("ingestion complete",
		"duration", time.Since(start).String(),
		"affiliates", len(dataset.Affiliates),
		"commissions", len(dataset.Commissions),
		"payouts", len(dataset.Payouts),
		"attributions", len(dataset.Attributions))
}

func logValidation(logger *slog.Logger, err error) {
	var verrs domain.ValidationErrors
	if !errors.As(err, &verrs) {
		logger.Error("dataset validation failed", "error", err)
		return
	}
	for _, fe := range verrs {
		logger.Error("invalid record", "field", fe.Field, "problem", fe.Message)
	}
	logger.Error("dataset validation failed", "problems", len(verrs))
}

func buildGraphClient(ctx context.Context, logger *slog.Logger, cfg config.Config) (graph.Client, error) {
	if cfg.Graph.URI == "" {
		return nil, fmt.Errorf("GRAPH_URI is required for ingestion")
	}
	client, err := graph.NewNeo4jClient(ctx, graph.OptionsFromConfig(cfg.Graph))
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
