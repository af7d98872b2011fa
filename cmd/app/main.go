// File: cmd/app/main.go
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fliq-payments/internal/config"
	"fliq-payments/internal/errclass"
	authinfra "fliq-payments/internal/infra/auth"
	"fliq-payments/internal/infra/backend"
	pg "fliq-payments/internal/infra/db/postgres"
	"fliq-payments/internal/infra/logging"
	"fliq-payments/internal/infra/metrics"
	red "fliq-payments/internal/infra/redis"
	"fliq-payments/internal/infra/sched"
	"fliq-payments/internal/infra/stripe"
	"fliq-payments/internal/infra/web"
	"fliq-payments/internal/infra/worker"
	"fliq-payments/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, verbose)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, int32(cfg.Database.MaxConns))
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
	configCache := red.NewConfigCache(redisClient)
	balanceCache := red.NewBalanceCache(redisClient, cfg.Redis.TTL)
	purchaseLock := red.NewPurchaseLock(redisClient)

	// ---- Repositories ----
	attemptRepo := pg.NewAttemptRepo(pool)

	// ---- Backend gateway ----
	tokens := authinfra.NewCachedTokenSource(refreshFunc(cfg.Backend), 30*time.Second)
	gateway := backend.NewClient(cfg.Backend.BaseURL, tokens, cfg.Backend.RequestTimeout)

	// ---- Card gateway ----
	cards := stripe.NewGateway(cfg.Stripe.PublishableKey, cfg.Stripe.BaseURL)

	// ---- Error handling ----
	pool8 := worker.NewPool(8, logger)
	pool8.Start(ctx)
	defer pool8.Stop()
	errHandler := errclass.NewHandler(logger, errclass.NopReporter{}, pool8)

	// ---- Use cases ----
	configUC := usecase.NewConfigUseCase(gateway, configCache, logger)
	planUC := usecase.NewPlanUseCase(gateway, logger)
	creditsUC := usecase.NewCreditsUseCase(gateway, balanceCache, logger)
	paymentUC := usecase.NewPaymentUseCase(gateway, cards, planUC, creditsUC, attemptRepo, purchaseLock, logger)

	// Warm the client config so the first request is served from cache even
	// if the backend is already down.
	if _, err := configUC.Load(ctx); err != nil {
		logger.Warn().Err(err).Msg("initial config load failed; payment surface degraded until backend recovers")
	}

	// ---- Background workers ----
	refresher := sched.NewBalanceRefresher(cfg.Scheduler.BalanceRefreshInterval, creditsUC, logger)
	go func() { _ = refresher.Run(ctx) }()

	reconciler := sched.NewVerifyReconciler(paymentUC, attemptRepo, cfg.Scheduler.ReconcileInterval, cfg.Scheduler.ReconcileStaleAfter, logger)
	go func() { _ = reconciler.Run(ctx) }()

	// ---- HTTP server ----
	authMgr := web.NewAuthManager(cfg.Server.AuthSecret)
	srv := web.NewServer(configUC, planUC, paymentUC, creditsUC, authMgr, errHandler, logger)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}
	cancel()
}

// refreshFunc exchanges the service secret for a short-lived bearer token at
// the backend's refresh endpoint.
func refreshFunc(cfg config.BackendConfig) authinfra.RefreshFunc {
	client := &http.Client{Timeout: cfg.RequestTimeout}
	path := cfg.RefreshPath
	if path == "" {
		path = "/api/auth/refresh"
	}
	return func(ctx context.Context) (string, error) {
		body, err := json.Marshal(map[string]string{"service_secret": cfg.ServiceSecret})
		if err != nil {
			return "", err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.BaseURL+path, bytes.NewReader(body))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := client.Do(req)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			io.Copy(io.Discard, resp.Body)
			return "", fmt.Errorf("token refresh: unexpected status %d", resp.StatusCode)
		}
		var out struct {
			Token string `json:"token"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return "", err
		}
		if out.Token == "" {
			return "", fmt.Errorf("token refresh: empty token")
		}
		return out.Token, nil
	}
}
