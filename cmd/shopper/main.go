// Command shopper is a line-oriented storefront client. It exercises the
// same session, cart and browse core a mobile front end embeds.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/utafrali/storefront/internal/client"
	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/shopper"
	"github.com/utafrali/storefront/pkg/logger"
)

func main() {
	cfg, err := config.LoadClient()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.NewWithWriter("shopper", cfg.LogLevel, os.Stderr)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := shopper.OpenStore(ctx, cfg)
	if err != nil {
		log.Error("failed to open store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = closeStore() }()

	sess := shopper.New(store, client.NewDefault(cfg.APIBaseURL, log), log)
	if err := sess.Start(ctx); err != nil {
		log.Error("failed to start session", slog.String("error", err.Error()))
		os.Exit(1)
	}

	newREPL(sess, os.Stdout).run(ctx, os.Stdin)
}
