// Package bot is the Telegram front end: command routing, inline keyboards
// and the multi-step company registration dialog.
package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	apperrors "github.com/astrorabbit/astro-bot/internal/core/errors"
	dbpkg "github.com/astrorabbit/astro-bot/internal/db"
	"github.com/astrorabbit/astro-bot/internal/platform/config"
	"github.com/astrorabbit/astro-bot/internal/platform/observability"
	"github.com/astrorabbit/astro-bot/internal/platform/worker"
)

// Message size and delay constants.
const (
	// MaxMessageSize is the maximum size for a single Telegram message part.
	MaxMessageSize = 4000
	// SleepBetweenParts is the delay between sending message parts to avoid rate limits.
	SleepBetweenParts = 500 * time.Millisecond

	updateTimeoutSeconds = 60

	// chatQueueSize bounds how many updates a single chat may have pending
	// while a generation for that chat is still running.
	chatQueueSize = 16
)

// Command names.
const (
	CmdStart    = "start"
	CmdHelp     = "help"
	CmdCompany  = "company"
	CmdZodiac   = "zodiac"
	CmdForecast = "forecast"
	CmdCompat   = "compat"
	CmdDaily    = "daily"
	CmdDailyOn  = "daily_on"
	CmdDailyOff = "daily_off"
	CmdCancel   = "cancel"
	CmdStatus   = "status"
)

// Callback data values and prefixes.
const (
	CallbackMainMenu     = "menu:main"
	CallbackCompanies    = "companies"
	CallbackCompanyAdd   = "company:add"
	CallbackZodiac       = "action:zodiac"
	CallbackForecast     = "action:forecast"
	CallbackCompat       = "action:compat"
	CallbackDaily        = "action:daily"
	PrefixCompanyOpen    = "company:open:"
	PrefixCompanyUse     = "company:use:"
	PrefixCompanyDelete  = "company:delete:"
	PrefixCompatRole     = "compat:role:"
)

// Log field names.
const (
	logFieldUserID  = "user_id"
	logFieldCommand = "command"
)

// User-facing texts that tests assert on.
const (
	msgNoActiveCompany = "Сначала добавьте компанию и выберите её активной: /company"
	msgGenerating      = "🔮 Составляю прогноз, это займёт меньше минуты..."
	msgGenerateFailed  = "⚠️ Не удалось составить прогноз, попробуйте позже."
	msgUnknownCommand  = "Неизвестная команда. Посмотрите /help"
	msgCanceled        = "Действие отменено."
)

// Sender is the slice of the Telegram API the handlers use, extracted so
// tests can capture outgoing messages.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Bot struct {
	cfg        *config.Config
	database   Repository
	forecaster Forecaster
	api        *tgbotapi.BotAPI
	sender     Sender
	logger     *zerolog.Logger

	mu            sync.Mutex
	conversations map[int64]*conversation
	chatQueues    map[int64]chan tgbotapi.Update
}

func New(cfg *config.Config, database Repository, forecaster Forecaster, logger *zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("creating bot API: %w", err)
	}

	return &Bot{
		cfg:           cfg,
		database:      database,
		forecaster:    forecaster,
		api:           api,
		sender:        api,
		logger:        logger,
		conversations: make(map[int64]*conversation),
		chatQueues:    make(map[int64]chan tgbotapi.Update),
	}, nil
}

func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = updateTimeoutSeconds

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("bot run context canceled: %w", ctx.Err())
		case update := <-updates:
			b.dispatch(ctx, update)
		}
	}
}

// dispatch queues the update for its chat. Each chat is served by its own
// goroutine, so one user's slow generation does not stall everyone else,
// while updates within a chat keep their order for the dialogs.
func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	chatID, ok := updateChatID(update)
	if !ok {
		return
	}

	select {
	case b.chatQueue(ctx, chatID) <- update:
	default:
		b.logger.Warn().Int64(logFieldUserID, chatID).Msg("chat queue full, update dropped")
	}
}

func updateChatID(update tgbotapi.Update) (int64, bool) {
	switch {
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		return update.CallbackQuery.Message.Chat.ID, true
	case update.Message != nil && update.Message.From != nil:
		return update.Message.Chat.ID, true
	default:
		return 0, false
	}
}

func (b *Bot) chatQueue(ctx context.Context, chatID int64) chan tgbotapi.Update {
	b.mu.Lock()
	defer b.mu.Unlock()

	queue, ok := b.chatQueues[chatID]
	if !ok {
		queue = make(chan tgbotapi.Update, chatQueueSize)
		b.chatQueues[chatID] = queue

		go b.serveChat(ctx, queue)
	}

	return queue
}

func (b *Bot) serveChat(ctx context.Context, queue chan tgbotapi.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case update := <-queue:
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer worker.RecoverPanic(b.logger, "update handler")

	if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)

		return
	}

	b.handleMessage(ctx, update.Message)
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	b.rememberUser(ctx, msg)

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)

		return
	}

	// Plain text continues an active dialog, if any.
	if b.continueConversation(ctx, msg) {
		return
	}

	b.reply(msg.Chat.ID, msgUnknownCommand)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	command := msg.Command()

	b.logger.Info().
		Str(logFieldCommand, command).
		Int64(logFieldUserID, msg.From.ID).
		Msg("Handling command")

	observability.BotCommands.WithLabelValues(command).Inc()

	// A fresh command aborts any dialog in progress, except /cancel which
	// confirms the abort.
	if command != CmdCancel {
		b.dropConversation(msg.From.ID)
	}

	switch command {
	case CmdStart:
		b.handleStart(msg)
	case CmdHelp:
		b.handleHelp(msg)
	case CmdCompany:
		b.handleCompany(ctx, msg)
	case CmdZodiac:
		b.handleZodiac(ctx, msg)
	case CmdForecast:
		b.handleForecast(ctx, msg)
	case CmdCompat:
		b.handleCompat(ctx, msg)
	case CmdDaily:
		b.handleDaily(ctx, msg)
	case CmdDailyOn:
		b.handleDailyToggle(ctx, msg, true)
	case CmdDailyOff:
		b.handleDailyToggle(ctx, msg, false)
	case CmdCancel:
		b.dropConversation(msg.From.ID)
		b.reply(msg.Chat.ID, msgCanceled)
	case CmdStatus:
		b.handleStatus(msg)
	default:
		b.reply(msg.Chat.ID, msgUnknownCommand)
	}
}

func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if query.Message == nil {
		return
	}

	// Acknowledge immediately so the button stops spinning.
	if _, err := b.sender.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		b.logger.Warn().Err(err).Msg("failed to answer callback query")
	}

	chatID := query.Message.Chat.ID
	data := query.Data

	msg := &tgbotapi.Message{Chat: query.Message.Chat, From: query.From}

	switch {
	case data == CallbackMainMenu:
		b.sendMainMenu(chatID)
	case data == CallbackCompanies:
		b.handleCompany(ctx, msg)
	case data == CallbackCompanyAdd:
		b.startCompanyDialog(chatID, query.From.ID)
	case data == CallbackZodiac:
		b.handleZodiac(ctx, msg)
	case data == CallbackForecast:
		b.handleForecast(ctx, msg)
	case data == CallbackCompat:
		b.handleCompat(ctx, msg)
	case data == CallbackDaily:
		b.handleDaily(ctx, msg)
	case strings.HasPrefix(data, PrefixCompanyOpen):
		b.showCompany(ctx, chatID, query.From.ID, strings.TrimPrefix(data, PrefixCompanyOpen))
	case strings.HasPrefix(data, PrefixCompanyUse):
		b.activateCompany(ctx, chatID, query.From.ID, strings.TrimPrefix(data, PrefixCompanyUse))
	case strings.HasPrefix(data, PrefixCompanyDelete):
		b.deleteCompany(ctx, chatID, query.From.ID, strings.TrimPrefix(data, PrefixCompanyDelete))
	case strings.HasPrefix(data, PrefixCompatRole):
		b.continueCompatRole(ctx, chatID, query.From.ID, strings.TrimPrefix(data, PrefixCompatRole))
	}
}

func (b *Bot) rememberUser(ctx context.Context, msg *tgbotapi.Message) {
	user := &dbpkg.User{
		ID:        msg.From.ID,
		Username:  msg.From.UserName,
		FirstName: msg.From.FirstName,
	}

	if err := b.database.UpsertUser(ctx, user); err != nil {
		b.logger.Warn().Err(err).Int64(logFieldUserID, msg.From.ID).Msg("failed to upsert user")
	}
}

// generateAndSend runs one forecast operation with the configured timeout
// and delivers the result, splitting it into Telegram-sized parts.
func (b *Bot) generateAndSend(ctx context.Context, chatID int64, generate func(ctx context.Context) (string, error)) {
	b.reply(chatID, msgGenerating)
	b.sendTyping(chatID)

	var text string

	err := worker.RunWithTimeout(ctx, b.cfg.GenerationTimeout, func(ctx context.Context) error {
		var genErr error

		text, genErr = generate(ctx)

		return genErr
	})
	if err != nil {
		b.logger.Error().Err(err).Int64(logFieldUserID, chatID).Msg("forecast generation failed")
		b.reply(chatID, msgGenerateFailed)

		return
	}

	b.sendLong(chatID, text)
}

func (b *Bot) withActiveCompany(ctx context.Context, chatID, userID int64, fn func(company *dbpkg.Company)) {
	company, err := b.database.ActiveCompany(ctx, userID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrCompanyNotFound) {
			b.reply(chatID, msgNoActiveCompany)

			return
		}

		b.logger.Error().Err(err).Int64(logFieldUserID, userID).Msg("active company lookup failed")
		b.reply(chatID, msgGenerateFailed)

		return
	}

	fn(company)
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.sender.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Error().Err(err).Int64(logFieldUserID, chatID).Msg("failed to send message")
	}
}

func (b *Bot) replyWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard

	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error().Err(err).Int64(logFieldUserID, chatID).Msg("failed to send message")
	}
}

func (b *Bot) sendTyping(chatID int64) {
	if _, err := b.sender.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		b.logger.Debug().Err(err).Msg("failed to send typing action")
	}
}

// sendLong splits text into Telegram-sized parts and sends them in order
// with a small delay between parts.
func (b *Bot) sendLong(chatID int64, text string) {
	parts := splitMessage(text, MaxMessageSize)

	for i, part := range parts {
		if i > 0 {
			time.Sleep(SleepBetweenParts)
		}

		b.reply(chatID, part)
	}
}
