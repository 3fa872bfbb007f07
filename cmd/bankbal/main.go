// Package main provides the bankbal entry point.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/matsen/bankbal/internal/config"
	"github.com/matsen/bankbal/internal/logging"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// Load .env file if present; variables already set win
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	// After the first signal, restore default handling so a second one kills immediately
	context.AfterFunc(ctx, stop)

	cfg, cfgErr := config.Load()

	level := slog.LevelError
	var levelErr error
	if cfg != nil {
		level, levelErr = logging.ParseLevel(cfg.LogLevel)
	}
	logger := logging.New(os.Stderr, level)
	if levelErr != nil {
		logger.Warn("ignoring LOG_LEVEL", "error", levelErr)
	}

	a := newApp(os.Stdout, os.Stderr, logger)
	a.cfg, a.cfgErr = cfg, cfgErr

	code := a.run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
