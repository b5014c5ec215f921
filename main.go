package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/okvist/tabjson-api/config"
	"github.com/okvist/tabjson-api/data"
	"github.com/okvist/tabjson-api/handlers"
	"github.com/okvist/tabjson-api/health"
	"github.com/okvist/tabjson-api/logging"
	"github.com/okvist/tabjson-api/scheduler"
	"github.com/okvist/tabjson-api/server"
	"github.com/okvist/tabjson-api/tabparser"
	"github.com/okvist/tabjson-api/validation"
)

func main() {
	// A missing .env file is fine, the environment may be set directly.
	if err := godotenv.Load(); err != nil {
		logging.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Error("Configuration error", "error", err)
		os.Exit(1)
	}

	logging.InitLoggerWithOptions("logs", logging.ParseLevel(cfg.LogLevel), cfg.LogRetentionWeeks, cfg.MaxLogFileSize)

	cacheTTL := time.Duration(cfg.CacheTTLSeconds) * time.Second
	cache := data.NewCache(cacheTTL)

	fetcher := tabparser.NewSheetFetcher(
		cfg.SheetsBaseURL,
		time.Duration(cfg.FetchTimeoutSeconds)*time.Second,
		cfg.MaxSourceBytes,
	)

	handler := handlers.NewHTTPHandler(
		fetcher,
		cache,
		validation.NewQueryValidator(),
		health.NewHealthChecker(cache),
		cacheTTL,
	)

	jobs := scheduler.NewScheduler(cache)
	if err := jobs.Start(); err != nil {
		logging.Error("Failed to start background jobs", "error", err)
		os.Exit(1)
	}
	defer jobs.Stop()

	srv := server.NewServer(cfg, handler)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("Shutdown error", "error", err)
		os.Exit(1)
	}
}
