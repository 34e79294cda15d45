package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/livp123/logsift/internal/api"
	"github.com/livp123/logsift/internal/config"
	"github.com/livp123/logsift/internal/utils/logger"
	"github.com/livp123/logsift/internal/version"
)

// shutdownTimeout bounds the drain of in-flight requests on exit.
const shutdownTimeout = 5 * time.Second

func main() {
	// Initialize logger with defaults (stdout)
	logger.Init(logger.LoggingConfig{Enabled: true, Level: "info"})
	defer func() {
		_ = logger.Sync()
	}()

	l := logger.Get(nil)
	l.Infof("🚀 Starting logsift-api %s (scoring daemon)...", version.Version)

	ctx := logger.WithContext(context.Background(), l)

	// Initialize configuration
	// 初始化配置
	cfgPath := config.GetConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		l.Warnf("⚠️ Failed to load config from %s: %v, using defaults", cfgPath, err)
		def := config.Default()
		cfg = &def
	} else {
		// Re-initialize logger from config
		logger.Init(cfg.Logging)
		ctx = logger.WithContext(context.Background(), logger.Get(nil))
		logger.Get(ctx).Infof("Logging re-initialized from config")
	}

	srv := api.NewServer(cfg)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Wait for exit signal (Ctrl+C, etc) / 等待退出信号
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Get(ctx).Fatalf("❌ API server error: %v", err)
		}
	case s := <-sig:
		logger.Get(ctx).Infof("👋 Received %s, shutting down...", s)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Get(ctx).Errorf("❌ Shutdown error: %v", err)
		}
	}
}
