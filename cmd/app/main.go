// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"membership-checkout/internal/config"
	"membership-checkout/internal/domain/model"
	"membership-checkout/internal/domain/ports/adapter"
	notify "membership-checkout/internal/infra/adapters/notification"
	payAdapters "membership-checkout/internal/infra/adapters/payment"
	"membership-checkout/internal/infra/api"
	pg "membership-checkout/internal/infra/db/postgres"
	"membership-checkout/internal/infra/logging"
	"membership-checkout/internal/infra/metrics"
	red "membership-checkout/internal/infra/redis"
	"membership-checkout/internal/infra/sched"
	"membership-checkout/internal/infra/templates"
	"membership-checkout/internal/infra/worker"
	"membership-checkout/internal/usecase"
)

// set with -ldflags "-X main.version=... -X main.commit=..."
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "developer mode: console logs, stub payment provider when no key is set")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	go reportPoolStats(ctx, pool)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)
	limiter := red.NewRateLimiter(redisClient)

	// ---- Repositories ----
	tm := pg.NewTxManager(pool)
	users := pg.NewUserRepo(pool)
	wallets := pg.NewWalletRepo(pool)
	transactions := pg.NewTransactionRepo(pool)
	coupons := pg.NewCouponRepo(pool)
	affiliates := pg.NewAffiliateRepo(pool)
	catalog := red.NewCatalogCache(pg.NewCatalogRepo(pool), redisClient, cfg.Redis.TTL, logger)

	// ---- Notification workers ----
	// Workers get their own context so queued notifications drain after the signal.
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	workers := worker.NewPool(cfg.Notifications.Workers, 0, logger)
	workers.Start(workerCtx)

	httpClient := &http.Client{Timeout: 15 * time.Second}
	hub := notify.NewHub(logger)
	senders := []adapter.ChannelSender{
		notify.NewInAppSender(pg.NewInAppNotificationRepo(pool)),
		hub,
	}
	if cfg.Notifications.Email.Enabled {
		senders = append(senders, notify.NewMailketingSender(cfg.Notifications.Email, "Membership", httpClient))
	}
	if cfg.Notifications.Push.Enabled {
		senders = append(senders, notify.NewOneSignalSender(cfg.Notifications.Push, httpClient))
	}
	if cfg.Notifications.WhatsApp.Enabled {
		senders = append(senders, notify.NewStarSenderSender(cfg.Notifications.WhatsApp, httpClient))
	}
	alerter := newAlerter(cfg.Notifications.Telegram, logger)

	renderer, err := templates.NewRenderer(templates.LocalesFS, cfg.Notifications.Language)
	if err != nil {
		logger.Fatal().Err(err).Msg("templates")
	}

	// ---- Payment provider ----
	invoiceGW, vaGW := paymentGateways(cfg, httpClient, logger)
	manualGW := payAdapters.NewManualTransferGateway(cfg.HTTP.PublicBaseURL)

	// ---- Use cases ----
	activator := usecase.NewEntitlementActivator(usecase.ActivatorDeps{
		Locker:       tm,
		Transactions: transactions,
		Memberships:  pg.NewMembershipRepo(pool),
		Users:        users,
		Wallets:      wallets,
		Affiliates:   affiliates,
		Catalog:      catalog,
		Entitlements: pg.NewEntitlementRepo(pool),
		Alerter:      alerter,
	}, model.RevenuePolicy{
		AdminPct:     cfg.Revenue.AdminPct,
		FounderPct:   cfg.Revenue.FounderPct,
		CoFounderPct: cfg.Revenue.CoFounderPct,
	}, logger)

	fanout := usecase.NewNotificationFanout(senders, renderer, pg.NewNotificationLogRepo(pool), alerter, workers, usecase.FanoutConfig{
		MaxAttempts:   cfg.Notifications.MaxAttempts,
		RetryBackoff:  cfg.Notifications.RetryBackoff,
		BatchDelay:    cfg.Notifications.BatchDelay,
		PublicBaseURL: cfg.HTTP.PublicBaseURL,
	}, logger)

	txService := usecase.NewTransactionService(tm, transactions, coupons, activator, fanout, locker, cfg.Checkout.ActivationLock, logger)

	instruments := usecase.NewPaymentInstruments(invoiceGW, vaGW, manualGW, payAdapters.NewRandomUniqueCode(cfg.Payment.UniqueCode),
		transactions, coupons, tm, cfg.Payment.Expiry(), logger)

	checkout := usecase.NewCheckoutOrchestrator(usecase.CheckoutDeps{
		TM:           tm,
		Users:        users,
		Wallets:      wallets,
		Transactions: transactions,
		Coupons:      coupons,
		Pricing:      usecase.NewPricingResolver(catalog, coupons),
		Affiliates:   usecase.NewAffiliateResolver(affiliates, users),
		Instruments:  instruments,
		Service:      txService,
		Limiter:      limiter,
	}, usecase.CheckoutConfig{
		Cooldown:          cfg.Checkout.Cooldown,
		AttemptsPerMinute: cfg.Checkout.AttemptsPerMin,
		MinAmount:         cfg.Payment.MinAmount,
		MaxAmount:         cfg.Payment.MaxAmount,
		Expiry:            cfg.Payment.Expiry(),
	}, logger)

	webhooks := usecase.NewWebhookIngestor(payAdapters.NewXenditWebhook(cfg.Payment.Xendit.WebhookToken), transactions, txService, alerter, logger)
	bulk := usecase.NewBulkActionProcessor(txService, fanout, logger)

	// ---- Expiry sweeper (optional) ----
	if cfg.Sched.ExpirySweep {
		sweeper := sched.NewExpirySweeper(cfg.Sched.ExpiryInterval, cfg.Sched.ExpiryBatch, txService, locker, logger)
		go func() { _ = sweeper.Run(ctx) }()
	}

	// ---- HTTP API ----
	srv := api.NewServer(api.Deps{
		Checkout:     checkout,
		Transactions: txService,
		Webhooks:     webhooks,
		Bulk:         bulk,
		Realtime:     hub,
		Auth:         api.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Health:       pool.Ping,
	}, api.Options{
		RequestTimeout: cfg.HTTP.RequestTimeout,
		RateLimitRPS:   cfg.HTTP.RateLimitRPS,
		RateLimitBurst: cfg.HTTP.RateLimitBurst,
	}, logger)
	if rl := srv.Limiter(); rl != nil {
		go rl.Run(ctx)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Str("version", version).Msg("http api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			stop()
		}
	}()

	// ---- Graceful shutdown ----
	<-ctx.Done()
	logger.Info().Msg("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	workers.Stop()
	logger.Info().Msg("bye")
}

// paymentGateways returns the hosted-invoice and virtual-account gateways. Dev mode without
// a secret key uses in-process stubs so the checkout flow can be exercised end to end.
func paymentGateways(cfg *config.Config, httpClient *http.Client, logger *zerolog.Logger) (adapter.PaymentGateway, adapter.PaymentGateway) {
	if cfg.Payment.Xendit.SecretKey == "" {
		if !cfg.Runtime.Dev {
			logger.Fatal().Msg("payment.xendit.secret_key is required outside dev mode")
		}
		logger.Warn().Msg("payment provider stubbed: no xendit secret key")
		return payAdapters.NewNoopPaymentGateway(model.MethodInvoice), payAdapters.NewNoopPaymentGateway(model.MethodVirtualAccount)
	}
	client := payAdapters.NewXenditClient(cfg.Payment.Xendit, httpClient)
	return payAdapters.NewXenditInvoiceGateway(client, cfg.Payment.Xendit),
		payAdapters.NewXenditVAGateway(client, cfg.Payment.Xendit, cfg.HTTP.PublicBaseURL)
}

func newAlerter(cfg config.TelegramConfig, logger *zerolog.Logger) adapter.AdminAlerter {
	if !cfg.Enabled || cfg.Token == "" || cfg.AdminChatID == 0 {
		return notify.NewLogAlerter(logger)
	}
	bot, err := notify.NewTelegramBot(cfg)
	if err != nil {
		logger.Error().Err(err).Msg("telegram bot unavailable; admin alerts go to the log")
		return notify.NewLogAlerter(logger)
	}
	return notify.NewTelegramAlerter(bot, cfg.AdminChatID)
}

func reportPoolStats(ctx context.Context, pool *pgxpool.Pool) {
	t := time.NewTicker(15 * time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s := pool.Stat()
			metrics.SetDBPoolStats(s.TotalConns(), s.IdleConns(), s.AcquiredConns())
		}
	}
}
