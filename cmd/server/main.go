// Package main is the entry point for the starminder web server.
//
// The main package stays small: load configuration, build a logger, hand
// both to internal/server and block until a signal arrives. Batch jobs
// (importing stars, promoting reminders, analysis) live in cmd/starminder.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sakif/starminder/internal/config"
	"github.com/sakif/starminder/internal/server"
)

func main() {
	// === 1. SET UP LOGGING ===
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	// === 2. READ CONFIGURATION ===
	// .env is optional; real environment variables always win.
	cfg, err := config.Load(".env")
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 3. SIGNALS ===
	// ctx is cancelled on Ctrl+C or SIGTERM, which starts graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// === 4. CREATE AND START THE SERVER ===
	srv, err := server.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(ctx); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
