// Package app wires the application together and exposes the runtime modes:
//
//   - Bot mode: the Telegram bot plus the background news poller
//   - Broadcast mode: the daily forecast scheduler
//
// Each mode can run in its own process against the same database.
package app

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/astrorabbit/astro-bot/internal/bot"
	"github.com/astrorabbit/astro-bot/internal/broadcast"
	dbpkg "github.com/astrorabbit/astro-bot/internal/db"
	"github.com/astrorabbit/astro-bot/internal/forecast"
	"github.com/astrorabbit/astro-bot/internal/llm"
	"github.com/astrorabbit/astro-bot/internal/news"
	"github.com/astrorabbit/astro-bot/internal/platform/config"
	"github.com/astrorabbit/astro-bot/internal/platform/observability"
	"github.com/astrorabbit/astro-bot/internal/platform/worker"
)

const newsPollerName = "news-poller"

// App holds the application dependencies and provides methods to run
// different modes.
type App struct {
	cfg      *config.Config
	database *dbpkg.DB
	logger   *zerolog.Logger
}

func New(cfg *config.Config, database *dbpkg.DB, logger *zerolog.Logger) *App {
	return &App{
		cfg:      cfg,
		database: database,
		logger:   logger,
	}
}

// StartHealthServer starts the health check and metrics server.
func (a *App) StartHealthServer(ctx context.Context) error {
	srv := observability.NewServer(a.database, a.cfg.HealthPort, a.logger)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("health server start: %w", err)
	}

	return nil
}

// RunBot runs the Telegram bot together with the news poller.
func (a *App) RunBot(ctx context.Context) error {
	a.logger.Info().Msg("Starting bot mode")

	llmClient := llm.NewClient(a.cfg, a.logger)

	b, err := bot.New(a.cfg, a.database, a.newForecaster(llmClient), a.logger)
	if err != nil {
		return fmt.Errorf("bot initialization failed: %w", err)
	}

	go a.runNewsPoller(ctx, llmClient)

	if err := b.Run(ctx); err != nil {
		return fmt.Errorf("bot run: %w", err)
	}

	return nil
}

// RunBroadcast runs the daily forecast scheduler.
func (a *App) RunBroadcast(ctx context.Context) error {
	a.logger.Info().Msg("Starting broadcast mode")

	api, err := tgbotapi.NewBotAPI(a.cfg.BotToken)
	if err != nil {
		return fmt.Errorf("creating bot API: %w", err)
	}

	llmClient := llm.NewClient(a.cfg, a.logger)

	scheduler, err := broadcast.New(a.cfg, a.database, a.newForecaster(llmClient), api, a.logger)
	if err != nil {
		return fmt.Errorf("broadcast initialization failed: %w", err)
	}

	if err := scheduler.Run(ctx); err != nil {
		return fmt.Errorf("broadcast run: %w", err)
	}

	return nil
}

func (a *App) newForecaster(llmClient llm.Client) *forecast.Agent {
	provider := news.NewProvider(a.database, llmClient, a.cfg.NewsContextItems, a.logger)

	return forecast.New(a.cfg, llmClient, provider, a.logger)
}

func (a *App) runNewsPoller(ctx context.Context, llmClient llm.Client) {
	if len(a.cfg.NewsFeeds) == 0 {
		a.logger.Info().Msg("no news feeds configured, news poller disabled")

		return
	}

	fetcher := news.NewFetcher(a.cfg, a.database, llmClient, a.logger)

	err := worker.Loop(ctx, worker.Config{
		Name:         newsPollerName,
		PollInterval: a.cfg.NewsPollInterval,
		Process:      fetcher.Poll,
		RunOnStart:   true,
		Logger:       a.logger,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			a.logger.Info().Msg("news poller stopped")

			return
		}

		a.logger.Warn().Err(err).Msg("news poller stopped")
	}
}
