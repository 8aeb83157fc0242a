package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"rdw-inventory-api/internal"
	"rdw-inventory-api/internal/config"
	"rdw-inventory-api/internal/logger"
)

func main() {
	// Load and validate configuration
	cfg, err := config.LoadAndValidate()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DB_DSN environment variable is required")
	}

	lg, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Logger error: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := internal.NewServer(ctx, cfg, lg)
	if err != nil {
		lg.Fatal("server init failed", zap.Error(err))
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		lg.Info("listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("jwt_issuer", cfg.JWTIssuer),
			zap.Duration("jwt_expiry", cfg.JWTExpiry))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("http server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		lg.Warn("http shutdown", zap.Error(err))
	}
	if err := srv.Close(shutdownCtx); err != nil {
		lg.Warn("closing database", zap.Error(err))
	}
}
