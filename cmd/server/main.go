package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vanshika/affiliatedesk/internal/auth"
	"github.com/vanshika/affiliatedesk/internal/cache"
	"github.com/vanshika/affiliatedesk/internal/config"
	"github.com/vanshika/affiliatedesk/internal/graph"
	"github.com/vanshika/affiliatedesk/internal/ledger"
	"github.com/vanshika/affiliatedesk/internal/logging"
	"github.com/vanshika/affiliatedesk/internal/metrics"
	"github.com/vanshika/affiliatedesk/internal/repository"
	"github.com/vanshika/affiliatedesk/internal/server"
	"github.com/vanshika/affiliatedesk/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Component(logging.New(cfg.Logging), "server")

	graphClient, err := graph.NewNeo4jClient(ctx, graph.OptionsFromConfig(cfg.Graph))
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
		logger.Error("failed to prepare graph schema", "error", err)
		os.Exit(1)
	}

	pool, err := ledger.NewPool(ctx, cfg.Ledger, logger)
	if err != nil {
		logger.Error("failed to connect to ledger database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	ledgerStore := ledger.NewStore(pool)
	if err := ledgerStore.EnsureSchema(ctx); err != nil {
		logger.Error("failed to prepare ledger schema", "error", err)
		os.Exit(1)
	}

	reportCache := cache.NewReportCache(buildCacheStore(logger, cfg.Cache), cfg.Cache.ReportTTL)
	m := metrics.New()

	svc := service.NewAffiliateService(repo, ledgerStore)
	svc.WithCache(reportCache)
	svc.WithMetrics(m)
	svc.WithLogger(logging.Component(logger, "service"))
	svc.WithReportDefaults(cfg.Report.TopN, cfg.Report.TrendMonths)

	verifier := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.AdminRole)
	if !verifier.Enabled() {
		logger.Warn("AUTH_JWT_SECRET is not set; admin endpoints are unauthenticated")
	}

	router := server.NewRouter(logger, server.RouterDependencies{
		Health: server.Probes{
			"graph":  graphClient.VerifyConnectivity,
			"ledger": ledgerStore.Ping,
			"cache":  reportCache.Ping,
		},
		API:              server.NewAPIHandlers(logger, svc, cfg.Report.Currency),
		Metrics:          m,
		MetricsEnabled:   cfg.HTTP.MetricsEnabled,
		Auth:             verifier,
		AllowedOrigins:   server.SplitOrigins(cfg.HTTP.AllowedOriginsCSV),
		AllowCredentials: true,
	})

	srv := server.New(logger, cfg.HTTP, router)

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(runCtx); err != nil {
		logger.Error("server stopped unexpectedly", "error", err)
		return
	}
	logger.Info("server stopped")
}

// buildCacheStore picks Redis when an address is configured and an
// in-process store otherwise.
func buildCacheStore(logger *slog.Logger, cfg config.CacheConfig) cache.Store {
	if cfg.Addr == "" {
		logger.Info("report cache running in memory")
		return cache.NewMemoryStore()
	}
	logger.Info("report cache backed by redis", "addr", cfg.Addr, "db", cfg.DB)
	return cache.NewRedisStore(cfg, "affiliatedesk")
}
