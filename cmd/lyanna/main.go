package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/yashika/lyanna/internal/app"
	"github.com/yashika/lyanna/internal/config"
	"github.com/yashika/lyanna/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger config may itself be broken; write plainly and die.
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logging.New("lyanna", cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application := app.New(cfg, log)
	if err := application.Startup(ctx); err != nil {
		log.WithError(err).Error("startup failed")
		os.Exit(1)
	}

	if err := application.Run(ctx); err != nil {
		log.WithError(err).Error("server failed")
	}

	if err := application.Shutdown(context.Background()); err != nil {
		log.WithError(err).Error("shutdown failed")
	}
}
