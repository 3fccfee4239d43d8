package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/astrorabbit/astro-bot/internal/app"
	dbpkg "github.com/astrorabbit/astro-bot/internal/db"
	"github.com/astrorabbit/astro-bot/internal/platform/config"
)

func main() {
	mode := flag.String("mode", "bot", "Service mode (bot, broadcast)")

	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := dbpkg.NewWithOptions(ctx, cfg.PostgresDSN, dbpkg.PoolOptions{
		MaxConns:          cfg.DBMaxConnections,
		MinConns:          cfg.DBMinConnections,
		MaxConnIdleTime:   cfg.DBMaxConnIdleTime,
		MaxConnLifetime:   cfg.DBMaxConnLifetime,
		HealthCheckPeriod: cfg.DBHealthCheckPeriod,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	application := app.New(cfg, database, &logger)

	go func() {
		if err := application.StartHealthServer(ctx); err != nil {
			logger.Error().Err(err).Msg("health check server error")
		}
	}()

	if err := runMode(ctx, application, *mode); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info().Msg("application stopped")
			return
		}

		logger.Fatal().Err(err).Msg("application error")
	}
}

func newLogger(appEnv string) zerolog.Logger {
	if appEnv == "local" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func runMode(ctx context.Context, application *app.App, mode string) error {
	switch mode {
	case "bot":
		return application.RunBot(ctx)
	case "broadcast":
		return application.RunBroadcast(ctx)
	default:
		log.Fatalf("Usage: %s --mode=[bot|broadcast]", os.Args[0])

		return nil
	}
}
