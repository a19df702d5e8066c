package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/qinshuxiang/server/internal/auth"
	"github.com/qinshuxiang/server/internal/config"
	"github.com/qinshuxiang/server/internal/httpapi"
	"github.com/qinshuxiang/server/internal/obs"
	"github.com/qinshuxiang/server/internal/store/pg"
)

var version = "0.3.1"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := obs.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	obs.Init(version)

	store, err := pg.Open(cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer func() { _ = store.Close() }()

	tokens, err := auth.NewTokenService(cfg.AuthSecret, cfg.TokenTTL)
	if err != nil {
		logger.Fatal("token service", zap.Error(err))
	}

	api := httpapi.New(httpapi.Deps{
		Log:        logger,
		Auth:       auth.NewService(store, tokens),
		Cases:      store,
		Officers:   store,
		Households: store,
		Places:     store,
		Dicts:      store,
		ReadyProbe: httpapi.ReadyProbe{DB: store.DB()},
		Version:    version,
		RateBurst:  cfg.RateBurst,
		RatePerSec: cfg.RatePerSec,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("starting qinshuxiang-api",
		zap.String("version", version),
		zap.String("addr", srv.Addr),
	)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	logger.Info("stopped")
}
