package main // Entry point of the HTTP API

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/iliyamo/aupoz/internal/config"
	"github.com/iliyamo/aupoz/internal/database"
	"github.com/iliyamo/aupoz/internal/handler"
	"github.com/iliyamo/aupoz/internal/imagegen"
	"github.com/iliyamo/aupoz/internal/logger"
	"github.com/iliyamo/aupoz/internal/middleware"
	"github.com/iliyamo/aupoz/internal/queue"
	"github.com/iliyamo/aupoz/internal/repository"
	"github.com/iliyamo/aupoz/internal/router"
	"github.com/iliyamo/aupoz/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("config")
	}
	log := logger.New(logger.Options{ServiceName: "aupoz-api", Level: cfg.LogLevel, Format: cfg.LogFormat})

	db, err := database.Open(cfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()

	// Redis is optional; without it the rate limiter and cache pass through.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn().Msg("redis unavailable, rate limiting and response cache disabled")
	} else {
		defer rdb.Close()
	}

	users := repository.NewUserRepo(db)
	sessions := repository.NewSessionRepo(db)
	assetRepo := repository.NewAssetRepo(db)
	generations := repository.NewGenerationRepo(db)
	calendarRepo := repository.NewCalendarRepo(db)

	publisher := queue.NewPublisher(config.LoadBrokerConfig(), log)
	assets := service.NewAssetStore(service.AssetStoreConfig{
		MaxBytes: cfg.AssetMaxBytes,
		PageSize: cfg.AssetPageSize,
	}, assetRepo, generations, publisher, log)
	calendar := service.NewCalendar(calendarRepo, publisher, log)
	images := imagegen.NewClient(imagegen.Config{
		APIKey:  cfg.ImageAPIKey,
		BaseURL: cfg.ImageAPIBaseURL,
		Timeout: cfg.ImageAPITimeout,
	}, log)
	if !images.Enabled() {
		log.Info().Msg("no image provider key, /generate-image returns mock images")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.ErrorHandler(log)
	e.Validator = handler.NewRequestValidator()
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.Recover())

	guard := router.Guard{
		Secret:   cfg.SessionSecret,
		Sessions: sessions,
		Limit:    middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log),
	}
	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, sessions), guard)
	router.RegisterAssets(e, handler.NewAssetHandler(assets, cfg.AssetMaxBytes), guard,
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb, log))
	router.RegisterCalendar(e, handler.NewCalendarHandler(calendar), guard)
	router.RegisterGenerate(e, handler.NewGenerateHandler(images, assets, log), guard)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		addr := ":" + cfg.Port
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
