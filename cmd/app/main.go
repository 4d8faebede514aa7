// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kami-system/internal/config"
	"kami-system/internal/infra/logging"
	"kami-system/internal/infra/metrics"
	red "kami-system/internal/infra/redis"
	"kami-system/internal/infra/web"
	"kami-system/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, error detail in responses)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("[DEV MODE] Enabled")
	}

	// ---- Redis ----
	kvClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer kvClient.Close()

	// ---- Repositories ----
	locker := red.NewLocker(kvClient)
	kamiRepo := red.NewKamiRepo(kvClient, locker)
	userRepo := red.NewUserRepo(kvClient)
	logRepo := red.NewLogRepo(kvClient)

	// ---- Use cases ----
	authUC := usecase.NewAuthUseCase(userRepo, logger)
	kamiUC := usecase.NewKamiUseCase(kamiRepo, userRepo, logRepo, logger)

	// ---- HTTP ----
	metrics.MustRegister()
	tokens := web.NewTokenManager(cfg.Auth.Secret, cfg.Auth.TokenTTL)
	limiter := web.NewRateLimiter(cfg.RateLimit)
	go limiter.Run(ctx)

	srv := web.NewServer(authUC, kamiUC, tokens, limiter, logger, cfg.Runtime.Dev)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: srv.Router(),
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}
