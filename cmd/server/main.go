// Package main is the entry point of the payment API. It wires storage,
// provider gateways and services, serves HTTP and runs the reconciliation
// worker.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"momopay/internal/config"
	"momopay/internal/handlers"
	"momopay/internal/jobs"
	"momopay/internal/logger"
	"momopay/internal/middleware"
	"momopay/internal/repositories"
	"momopay/internal/routes"
	"momopay/internal/services/collection"
	"momopay/internal/services/correlation"
	"momopay/internal/services/ledger"
	"momopay/internal/services/provider"
	"momopay/internal/services/voucher"
	"momopay/internal/services/webhook"
	"momopay/internal/services/withdrawal"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
)

func main() {
	config.LoadEnv()
	cfg := config.Load()
	logger.Configure(cfg.LogLevel, cfg.LogJSON)

	if err := repositories.InitDB(cfg); err != nil {
		logger.Fatalf("failed to initialize storage: %v", err)
	}
	defer repositories.Close()

	queue := asynq.NewClient(jobs.RedisOpt(cfg.Redis))
	defer queue.Close()

	h, reconciler := buildHandlers(cfg, queue)

	worker := jobs.NewServer(cfg.Redis)
	if err := worker.Start(jobs.NewMux(jobs.NewReconcileHandler(reconciler, cfg.ReconcileAge))); err != nil {
		logger.Fatalf("failed to start task worker: %v", err)
	}
	defer worker.Shutdown()

	scheduler, err := jobs.NewScheduler(cfg.Redis, cfg.ReconcileInterval, cfg.ReconcileAge)
	if err != nil {
		logger.Fatalf("failed to build scheduler: %v", err)
	}
	if err := scheduler.Start(); err != nil {
		logger.Fatalf("failed to start scheduler: %v", err)
	}
	defer scheduler.Shutdown()

	appCfg := routes.AppConfig{
		AllowOrigins: cfg.AllowOrigins,
		CollectLimit: cfg.CollectRateLimit,
		AccessLog:    true,
	}
	app := routes.NewApp(appCfg)
	routes.SetupRoutes(app, h, appCfg)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Errorf("server stopped: %v", err)
		}
	}()
	logger.Infof("momopay listening on :%s", cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warnf("forced shutdown: %v", err)
	}
}

func buildHandlers(cfg *config.Config, queue *asynq.Client) (routes.Handlers, webhook.Reconciler) {
	db := repositories.DB
	store := repositories.Store

	wallets := repositories.NewWalletRepository(db)
	transactions := repositories.NewTransactionRepository(db)
	revenue := repositories.NewRevenueRepository(db)
	webhookLogs := repositories.NewWebhookLogRepository(db)
	ledgerSvc := ledger.NewService(repositories.NewLedgerRepository(db))

	correlations := correlation.NewCache(store, correlation.DefaultTTL)
	handoff := voucher.NewHandoff(store, voucher.HandoffConfig{
		Wait:         cfg.Voucher.HandoffWait,
		PollInterval: cfg.Voucher.HandoffPoll,
		DeliveredTTL: cfg.Voucher.DeliveredTTL,
	})

	registry := provider.NewRegistryFromConfig(cfg, provider.Deps{
		Store:        store,
		Wallets:      wallets,
		Correlations: correlations,
	})
	primary, err := registry.Get(cfg.PrimaryProvider)
	if err != nil {
		logger.Fatalf("primary provider: %v", err)
	}
	var secondary provider.Gateway
	if cfg.SecondaryProvider != "" && cfg.SecondaryProvider != cfg.PrimaryProvider {
		if secondary, err = registry.Get(cfg.SecondaryProvider); err != nil {
			logger.Fatalf("secondary provider: %v", err)
		}
	}
	payout, err := registry.Get(cfg.DisbursementProvider)
	if err != nil {
		logger.Fatalf("disbursement provider: %v", err)
	}

	withdrawals := withdrawal.NewService(
		repositories.NewWithdrawalRepository(db),
		wallets,
		ledgerSvc,
		revenue,
		payout,
		withdrawal.Config{
			Charge:           decimal.NewFromInt(cfg.Withdrawal.Charge),
			Minimum:          decimal.NewFromInt(cfg.Withdrawal.Minimum),
			PlatformWalletID: cfg.PlatformWalletID,
			Currency:         cfg.Currency,
		},
	)

	hooks := webhook.NewService(webhook.Deps{
		Transactions: transactions,
		Logs:         webhookLogs,
		Wallets:      wallets,
		Ledger:       ledgerSvc,
		Correlations: correlations,
		Issuer:       voucher.NewHTTPIssuer(cfg.Voucher.ServerURL, nil),
		Slots:        handoff,
		Store:        store,
		Withdrawals:  withdrawals,
		Gateways:     registry,
	}, webhook.Config{
		PlatformWalletID:     cfg.PlatformWalletID,
		AirtelSecret:         cfg.Airtel.WebhookSecret,
		IotecSecret:          cfg.Iotec.WebhookSecret,
		DisbursementSecret:   cfg.DisbursementWebhookSecret,
		DisbursementProvider: cfg.DisbursementProvider,
		Currency:             cfg.Currency,
	})

	collections := collection.NewService(
		provider.NewFallback(primary, secondary),
		transactions,
		handoff,
		cfg.Currency,
		decimal.NewFromInt(cfg.CollectMaxAmount),
	)

	h := routes.Handlers{
		Auth:        middleware.NewAuthMiddleware(cfg.JWTSecret),
		Payments:    handlers.NewPaymentHandler(collections, registry, cfg.DisbursementProvider, cfg.Currency),
		Webhooks:    handlers.NewWebhookHandler(hooks),
		Withdrawals: handlers.NewWithdrawalHandler(withdrawals),
		Admin: handlers.NewAdminHandler(handlers.AdminDeps{
			Wallets:     wallets,
			Revenue:     revenue,
			WebhookLogs: webhookLogs,
			Ledger:      ledgerSvc,
			Withdrawals: withdrawals,
			Reconcile:   handlers.QueueTrigger(queue),
		}, cfg.PlatformWalletID, cfg.ReconcileAge),
		Health: handlers.NewHealthHandler(map[string]handlers.Pinger{
			"database": func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
			"redis": store.HealthCheck,
		}),
	}
	return h, hooks
}
