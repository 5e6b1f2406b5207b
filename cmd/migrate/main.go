package main // Applies the embedded schema migrations and exits

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/iliyamo/aupoz/internal/config"
	"github.com/iliyamo/aupoz/internal/database"
	"github.com/iliyamo/aupoz/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("config")
	}
	log := logger.New(logger.Options{ServiceName: "aupoz-migrate", Level: cfg.LogLevel, Format: cfg.LogFormat})

	if err := database.Migrate(cfg.MigrateURL(), log); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}
}
