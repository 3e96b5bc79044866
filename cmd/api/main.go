package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/financialpress/fpt-ledger/api/routes"
	"github.com/financialpress/fpt-ledger/internal/accounts"
	"github.com/financialpress/fpt-ledger/internal/balancecache"
	"github.com/financialpress/fpt-ledger/internal/engagement"
	"github.com/financialpress/fpt-ledger/internal/ledger"
	"github.com/financialpress/fpt-ledger/internal/rewards"
	"github.com/financialpress/fpt-ledger/internal/tips"
	"github.com/financialpress/fpt-ledger/pkg/config"
	"github.com/financialpress/fpt-ledger/pkg/db"
	"github.com/financialpress/fpt-ledger/pkg/logger"
	"github.com/financialpress/fpt-ledger/pkg/metrics"
	"github.com/financialpress/fpt-ledger/pkg/migrate"
	"github.com/financialpress/fpt-ledger/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	ledgerMetrics := metrics.NewLedgerMetrics(registry)

	welcomeBonus, err := cfg.Ledger.WelcomeBonusAmount()
	if err != nil {
		logg.Error(context.Background(), "invalid welcome bonus", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(ledger.NewRepository(dbClient.DB()), dbClient, cfg.Ledger.MaxScale, ledgerMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	accountsService, err := accounts.NewService(accounts.NewRepository(dbClient.DB()), ledgerService, dbClient, welcomeBonus)
	if err != nil {
		logg.Error(context.Background(), "failed to create accounts service", err)
		os.Exit(1)
	}

	rewardsService, err := rewards.NewService(rewards.NewRepository(dbClient.DB()), ledgerService, dbClient, ledgerMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create rewards service", err)
		os.Exit(1)
	}

	engagementService, err := engagement.NewService(engagement.NewRepository(dbClient.DB()), rewardsService)
	if err != nil {
		logg.Error(context.Background(), "failed to create engagement service", err)
		os.Exit(1)
	}

	tipsService, err := tips.NewService(ledgerService, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create tips service", err)
		os.Exit(1)
	}

	cacheService, err := balancecache.NewService(redisClient, ledgerService, cfg.BalanceCache.TTL, logg, ledgerMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create balance cache", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, registry, routes.Services{
			Accounts:     accountsService,
			Ledger:       ledgerService,
			Engagement:   engagementService,
			Tips:         tipsService,
			Rewards:      rewardsService,
			BalanceCache: cacheService,
		}),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
	}
}
