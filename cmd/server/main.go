package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"notifybell/internal/config"
	"notifybell/internal/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.New()
	shutdownTracing, err := telemetry.Init(ctx, cfg)
	if err != nil {
		log.Fatalf("init telemetry: %v", err)
	}

	app, cleanup, err := InitializeApp(cfg)
	if err != nil {
		log.Fatalf("init app: %v", err)
	}
	defer cleanup()
	logger := app.Logger()
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("notification bell starting",
		zap.String("env", cfg.Environment),
		zap.String("version", cfg.Version),
		zap.Bool("broker", cfg.RabbitMQURL != ""),
		zap.Bool("tracing", cfg.OTLPEndpoint != ""),
		zap.Duration("poll_interval", cfg.PollInterval),
		zap.Int("display_limit", cfg.DisplayLimit),
		zap.Int("count_scan_window", cfg.CountScanWindow),
	)
	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET is empty; every notifications request will be rejected")
	}

	go func() {
		if err := app.Run(ctx); err != nil {
			logger.Error("app stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("tracing shutdown error", zap.Error(err))
	}
}
