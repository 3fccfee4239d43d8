// Package broadcast delivers the daily forecast to subscribed users at the
// configured local time.
package broadcast

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	dbpkg "github.com/astrorabbit/astro-bot/internal/db"
	"github.com/astrorabbit/astro-bot/internal/platform/config"
	"github.com/astrorabbit/astro-bot/internal/platform/observability"
	"github.com/astrorabbit/astro-bot/internal/platform/worker"
)

const (
	statusSent   = "sent"
	statusFailed = "failed"

	logFieldUserID  = "user_id"
	logFieldCompany = "company"

	// sendPause keeps the broadcast under Telegram's bulk message limits.
	sendPause = 100 * time.Millisecond

	// lastRunSettingKey records the local date of the last completed pass, so a
	// restart after the send time does not broadcast twice.
	lastRunSettingKey = "daily_broadcast_last_run"
	lastRunLayout     = "2006-01-02"
)

// Store lists the recipients of the daily broadcast and remembers when the
// last pass ran.
type Store interface {
	ListDailySubscribers(ctx context.Context) ([]dbpkg.Company, error)
	GetSetting(ctx context.Context, key string, target interface{}) error
	SaveSetting(ctx context.Context, key string, value interface{}) error
}

// Forecaster produces the daily forecast for one company.
type Forecaster interface {
	DailyForecast(ctx context.Context, company *dbpkg.Company) (string, error)
}

// Sender delivers messages to Telegram.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Scheduler struct {
	cfg        *config.Config
	database   Store
	forecaster Forecaster
	sender     Sender
	logger     *zerolog.Logger
	location   *time.Location
	at         sendTime
}

type sendTime struct {
	hour   int
	minute int
}

func New(cfg *config.Config, database Store, forecaster Forecaster, sender Sender, logger *zerolog.Logger) (*Scheduler, error) {
	location, err := time.LoadLocation(cfg.DailyForecastTZ)
	if err != nil {
		return nil, fmt.Errorf("loading broadcast timezone %q: %w", cfg.DailyForecastTZ, err)
	}

	var at sendTime
	if _, err := fmt.Sscanf(cfg.DailyForecastTime, "%d:%d", &at.hour, &at.minute); err != nil {
		return nil, fmt.Errorf("parsing broadcast time %q: %w", cfg.DailyForecastTime, err)
	}

	if at.hour < 0 || at.hour > 23 || at.minute < 0 || at.minute > 59 {
		return nil, fmt.Errorf("broadcast time %q out of range", cfg.DailyForecastTime)
	}

	return &Scheduler{
		cfg:        cfg,
		database:   database,
		forecaster: forecaster,
		sender:     sender,
		logger:     logger,
		location:   location,
		at:         at,
	}, nil
}

// Run waits for the next scheduled time and broadcasts, until the context is
// canceled.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		next := s.NextRun(time.Now())

		s.logger.Info().Time("next_run", next).Msg("daily broadcast scheduled")

		if err := worker.WaitUntil(ctx, next); err != nil {
			return err
		}

		s.Broadcast(ctx)
	}
}

// NextRun returns the first scheduled send time strictly after now.
func (s *Scheduler) NextRun(now time.Time) time.Time {
	local := now.In(s.location)

	next := time.Date(local.Year(), local.Month(), local.Day(), s.at.hour, s.at.minute, 0, 0, s.location)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}

	return next
}

// Broadcast generates and sends the daily forecast to every subscriber. One
// failing recipient does not stop the rest. A pass that already completed
// today is not repeated.
func (s *Scheduler) Broadcast(ctx context.Context) {
	defer worker.RecoverPanic(s.logger, "daily broadcast")

	today := time.Now().In(s.location).Format(lastRunLayout)

	var lastRun string
	if err := s.database.GetSetting(ctx, lastRunSettingKey, &lastRun); err != nil {
		s.logger.Warn().Err(err).Msg("reading last broadcast date failed")
	}

	if lastRun == today {
		s.logger.Info().Str("date", today).Msg("daily broadcast already ran today")

		return
	}

	companies, err := s.database.ListDailySubscribers(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("listing daily subscribers failed")

		return
	}

	s.logger.Info().Int("subscribers", len(companies)).Msg("starting daily broadcast")

	for i := range companies {
		if ctx.Err() != nil {
			return
		}

		if i > 0 {
			if err := worker.Wait(ctx, sendPause); err != nil {
				return
			}
		}

		s.sendOne(ctx, &companies[i])
	}

	if err := s.database.SaveSetting(ctx, lastRunSettingKey, today); err != nil {
		s.logger.Warn().Err(err).Msg("saving last broadcast date failed")
	}
}

func (s *Scheduler) sendOne(ctx context.Context, company *dbpkg.Company) {
	var text string

	err := worker.RunWithTimeout(ctx, s.cfg.GenerationTimeout, func(ctx context.Context) error {
		var genErr error

		text, genErr = s.forecaster.DailyForecast(ctx, company)

		return genErr
	})
	if err != nil {
		s.logger.Error().Err(err).
			Int64(logFieldUserID, company.UserID).
			Str(logFieldCompany, company.Name).
			Msg("daily forecast generation failed")
		observability.DailyBroadcasts.WithLabelValues(statusFailed).Inc()

		return
	}

	if _, err := s.sender.Send(tgbotapi.NewMessage(company.UserID, text)); err != nil {
		s.logger.Error().Err(err).
			Int64(logFieldUserID, company.UserID).
			Msg("daily forecast delivery failed")
		observability.DailyBroadcasts.WithLabelValues(statusFailed).Inc()

		return
	}

	observability.DailyBroadcasts.WithLabelValues(statusSent).Inc()
}
