// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"video-inspection-console/internal/config"
	"video-inspection-console/internal/domain/ports/adapter"
	"video-inspection-console/internal/domain/ports/repository"
	"video-inspection-console/internal/infra/adapters/inspection"
	tele "video-inspection-console/internal/infra/adapters/telegram"
	"video-inspection-console/internal/infra/localstore"
	"video-inspection-console/internal/infra/logging"
	"video-inspection-console/internal/infra/metrics"
	red "video-inspection-console/internal/infra/redis"
	"video-inspection-console/internal/infra/web"
	"video-inspection-console/internal/usecase"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, relaxed secrets)")
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

	// ---- Backend session & client ----
	session := inspection.NewSession(func() {
		// Task/upload trackers never see this; the operator simply has
		// to log in again.
		logger.Warn().Msg("backend session expired, operator must log in again")
	})
	client, err := inspection.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, session, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("backend client")
	}
	if cfg.Backend.Username != "" {
		if _, err := client.Login(ctx, cfg.Backend.Username, cfg.Backend.Password); err != nil {
			logger.Warn().Err(err).Msg("initial backend login failed; operator login required")
		}
	}

	// ---- Upload history store ----
	var historyRepo repository.UploadHistoryRepository
	if cfg.History.Store == "redis" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
		historyRepo = red.NewHistoryRepo(redisClient, cfg.History.Key)
	} else {
		historyRepo = localstore.NewHistoryRepo(cfg.History.Key)
	}

	// ---- Operator notifier ----
	var notifier adapter.Notifier
	if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != 0 {
		notifier, err = tele.NewNotifier(cfg.Telegram.Token, cfg.Telegram.ChatID, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram notifier")
		}
	} else {
		notifier = tele.NewNoopNotifier(logger)
	}

	// ---- Trackers ----
	taskUC := usecase.NewTaskTracker(ctx, client, notifier, cfg.Tracker.PollInterval, logger)
	uploadUC := usecase.NewUploadTracker(ctx, client, historyRepo, cfg.Tracker.VerifyInterval, cfg.Tracker.HistorySize, logger)

	// ---- Web surface ----
	secret := cfg.Web.SessionSecret
	if secret == "" {
		logger.Warn().Msg("web.session_secret not set; using dev secret (INSECURE)")
		secret = "dev-only-session-secret"
	}
	auth := web.NewAuthManager(secret, cfg.Web.SecureCookie, cfg.Web.SessionTTL)
	server := web.NewServer(taskUC, uploadUC, client, auth, logger)

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Web.Port),
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Int("port", cfg.Web.Port).Msg("operator API listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}
	// Poll loops are bound to ctx and wind down on their own; Reset
	// also releases the handle for a deterministic exit.
	taskUC.Reset()
	logger.Info().Msg("bye")
}
