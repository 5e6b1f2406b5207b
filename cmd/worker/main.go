package main // Entry point of the activity-log worker

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/iliyamo/aupoz/internal/config"
	"github.com/iliyamo/aupoz/internal/logger"
	"github.com/iliyamo/aupoz/internal/queue"
)

func main() {
	_ = godotenv.Load()
	log := logger.New(logger.Options{
		ServiceName: "aupoz-worker",
		Level:       os.Getenv("LOG_LEVEL"),
		Format:      os.Getenv("LOG_FORMAT"),
	})

	cfg := config.LoadBrokerConfig()
	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.LogDir).Msg("create log dir")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("queue", cfg.Queue).Str("log_dir", cfg.LogDir).Msg("consuming events")
	err := queue.NewConsumer(cfg, log).Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("consumer stopped")
	}
	log.Info().Msg("worker stopped")
}
