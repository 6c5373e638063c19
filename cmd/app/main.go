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

	"github.com/manojnerkar/viep/internal/config"
	payAdapters "github.com/manojnerkar/viep/internal/infra/adapters/payment"
	"github.com/manojnerkar/viep/internal/infra/api"
	pg "github.com/manojnerkar/viep/internal/infra/db/postgres"
	"github.com/manojnerkar/viep/internal/infra/logging"
	"github.com/manojnerkar/viep/internal/infra/metrics"
	red "github.com/manojnerkar/viep/internal/infra/redis"
	"github.com/manojnerkar/viep/internal/infra/sched"
	"github.com/manojnerkar/viep/internal/usecase"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, no redaction)")
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

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	tm := pg.NewTxManager(pool)
	planRepo := pg.NewPlanRepoCacheDecorator(pg.NewPostgresPlanRepo(pool), redisClient, cfg.Redis.TTL, logger)
	payRepo := pg.NewPaymentRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	invRepo := pg.NewInvoiceRepo(pool)
	certRepo := pg.NewCertificateRepo(pool)

	// ---- Gateway ----
	gw, err := payAdapters.NewHMACGateway(cfg.Payment.Gateway, cfg.Payment.KeyID, cfg.Payment.KeySecret)
	if err != nil {
		logger.Fatal().Err(err).Msg("payment gateway")
	}
	logger.Info().
		Str("gateway", gw.Name()).
		Str("key_id", logging.Redact(cfg.Payment.KeyID, cfg.Runtime.Dev)).
		Msg("payment gateway ready")

	// ---- Use cases ----
	planUC := usecase.NewPlanUseCase(planRepo, logger)
	subUC := usecase.NewSubscriptionUseCase(subRepo, logger)
	invUC := usecase.NewInvoiceUseCase(invRepo, payRepo, cfg.Payment.TaxBasisPoints, logger)
	payUC := usecase.NewPaymentUseCase(payRepo, planRepo, gw, subUC, invUC, tm, cfg.Payment.Currency, logger)
	certUC := usecase.NewCertificateUseCase(certRepo, cfg.Server.FrontendURL, logger)
	statsUC := usecase.NewStatsUseCase(payRepo, subRepo, certRepo, logger)

	// ---- Scheduler ----
	scheduler := sched.NewScheduler(locker, 5*time.Minute, logger)
	jobs := []struct {
		name      string
		spec      string
		exclusive bool
		fn        func(ctx context.Context) error
	}{
		{"subscription_expiry", cfg.Scheduler.ExpiryCheckCron, true, sched.NewExpiryWorker(subUC, logger).Run},
		{"stale_payments", cfg.Scheduler.StalePaymentCron, true, sched.NewPaymentReconciler(payUC, cfg.Scheduler.PendingPaymentTTL, logger).Run},
		{"db_pool_stats", cfg.Scheduler.PoolStatsCron, false, sched.PoolStats(pool)},
	}
	for _, j := range jobs {
		if err := scheduler.Register(j.name, j.spec, j.exclusive, j.fn); err != nil {
			logger.Fatal().Err(err).Msg("scheduler")
		}
	}
	scheduler.Start(ctx)

	// ---- HTTP server ----
	trusted, err := cfg.Server.TrustedPrefixes()
	if err != nil {
		logger.Fatal().Err(err).Msg("config")
	}
	srv := api.NewServer(api.Deps{
		Plans:           planUC,
		Payments:        payUC,
		Subscriptions:   subUC,
		Invoices:        invUC,
		Certificates:    certUC,
		Stats:           statsUC,
		Auth:            api.NewAuthManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL),
		Limiter:         rateLimiter,
		VerifyPerMinute: cfg.RateLimit.VerifyPerMinute,
		RequestTimeout:  cfg.Server.RequestTimeout,
		TrustedProxies:  trusted,
		Health: map[string]api.Pinger{
			"postgres": pool.Ping,
			"redis":    redisClient.Ping,
		},
	}, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Str("version", version).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
	case <-ctx.Done():
	}
	logger.Info().Msg("shutdown requested")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 20*time.Second)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	scheduler.Stop(shutdownCtx)
	cancel()
}
