package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/smartdoorlock/core/internal/app"
	"github.com/smartdoorlock/core/internal/config"
	"github.com/smartdoorlock/core/internal/pkg/nativelog"
	"github.com/smartdoorlock/core/internal/pkg/proctitle"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", config.DefaultConfigPath, "Path to YAML config file")
	envPath := flag.String("env-file", ".env", "Optional dotenv file loaded before the config")
	flag.Parse()

	envErr := godotenv.Load(*envPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fallback, _ := zap.NewProduction()
		fallback.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := nativelog.NewZapLogger(cfg.LogDir(), cfg.IsDev())
	if err != nil {
		logger, _ = zap.NewProduction()
		logger.Warn("native log pipeline unavailable, fallback to zap production logger", zap.Error(err))
	}
	defer logger.Sync()

	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		logger.Warn("dotenv file not loaded", zap.String("path", *envPath), zap.Error(envErr))
	}

	if _, err := proctitle.Set("doorlockd"); err != nil {
		logger.Debug("process title not set", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, logger, cfg)
	if err != nil {
		logger.Fatal("failed to initialize app", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              application.Addr(),
		Handler:           application.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("store", cfg.Store.Driver),
			zap.String("push", cfg.Push.Driver),
			zap.Bool("redis", cfg.Redis.Enable),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	// Hijacked websocket connections are not tracked by the server; the app
	// closes them itself.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
	application.Shutdown()
	logger.Info("server exited")
}
