package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/astrorabbit/astro-bot/internal/astro"
	apperrors "github.com/astrorabbit/astro-bot/internal/core/errors"
	dbpkg "github.com/astrorabbit/astro-bot/internal/db"
)

const (
	dateLayout = "02.01.2006"

	welcomeText = `🐇 Добро пожаловать в AstroRabbit!

Я составляю астрологические бизнес-прогнозы для вашей компании:
анализ знака зодиака, полный бизнес-прогноз, совместимость с партнёрами
и ежедневные прогнозы с учётом новостей.

Начните с добавления компании: /company`

	helpText = `Команды:
/company — мои компании: добавить, выбрать активную, удалить
/zodiac — анализ знака зодиака активной компании
/forecast — полный бизнес-прогноз
/compat — совместимость компании с человеком
/daily — прогноз на сегодня с учётом новостей
/daily_on — включить ежедневную рассылку
/daily_off — выключить ежедневную рассылку
/cancel — прервать текущий диалог`
)

func (b *Bot) handleStart(msg *tgbotapi.Message) {
	b.replyWithKeyboard(msg.Chat.ID, welcomeText, mainMenuKeyboard())
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) {
	b.reply(msg.Chat.ID, helpText)
}

func (b *Bot) handleCompany(ctx context.Context, msg *tgbotapi.Message) {
	companies, err := b.database.ListCompanies(ctx, msg.From.ID)
	if err != nil {
		b.logger.Error().Err(err).Int64(logFieldUserID, msg.From.ID).Msg("list companies failed")
		b.reply(msg.Chat.ID, msgGenerateFailed)

		return
	}

	if len(companies) == 0 {
		b.replyWithKeyboard(msg.Chat.ID, "У вас пока нет компаний.", companiesKeyboard(nil))

		return
	}

	b.replyWithKeyboard(msg.Chat.ID, "🏢 Ваши компании:", companiesKeyboard(companies))
}

func (b *Bot) showCompany(ctx context.Context, chatID, userID int64, companyID string) {
	company, err := b.database.GetCompany(ctx, userID, companyID)
	if err != nil {
		b.reply(chatID, "Компания не найдена.")

		return
	}

	b.replyWithKeyboard(chatID, companyCard(company), companyActionsKeyboard(company))
}

func (b *Bot) activateCompany(ctx context.Context, chatID, userID int64, companyID string) {
	if err := b.database.SetActiveCompany(ctx, userID, companyID); err != nil {
		if apperrors.Is(err, apperrors.ErrCompanyNotFound) {
			b.reply(chatID, "Компания не найдена.")

			return
		}

		b.logger.Error().Err(err).Int64(logFieldUserID, userID).Msg("activate company failed")
		b.reply(chatID, msgGenerateFailed)

		return
	}

	b.reply(chatID, "✅ Компания выбрана активной.")
}

func (b *Bot) deleteCompany(ctx context.Context, chatID, userID int64, companyID string) {
	if err := b.database.DeleteCompany(ctx, userID, companyID); err != nil {
		if apperrors.Is(err, apperrors.ErrCompanyNotFound) {
			b.reply(chatID, "Компания не найдена.")

			return
		}

		b.logger.Error().Err(err).Int64(logFieldUserID, userID).Msg("delete company failed")
		b.reply(chatID, msgGenerateFailed)

		return
	}

	b.reply(chatID, "🗑 Компания удалена.")
}

func (b *Bot) handleZodiac(ctx context.Context, msg *tgbotapi.Message) {
	b.withActiveCompany(ctx, msg.Chat.ID, msg.From.ID, func(company *dbpkg.Company) {
		b.generateAndSend(ctx, msg.Chat.ID, func(ctx context.Context) (string, error) {
			return b.forecaster.CompanyZodiac(ctx, company)
		})
	})
}

func (b *Bot) handleForecast(ctx context.Context, msg *tgbotapi.Message) {
	b.withActiveCompany(ctx, msg.Chat.ID, msg.From.ID, func(company *dbpkg.Company) {
		b.generateAndSend(ctx, msg.Chat.ID, func(ctx context.Context) (string, error) {
			return b.forecaster.BusinessForecast(ctx, company)
		})
	})
}

func (b *Bot) handleCompat(ctx context.Context, msg *tgbotapi.Message) {
	b.withActiveCompany(ctx, msg.Chat.ID, msg.From.ID, func(_ *dbpkg.Company) {
		b.startCompatDialog(msg.Chat.ID, msg.From.ID)
	})
}

func (b *Bot) handleDaily(ctx context.Context, msg *tgbotapi.Message) {
	b.withActiveCompany(ctx, msg.Chat.ID, msg.From.ID, func(company *dbpkg.Company) {
		b.generateAndSend(ctx, msg.Chat.ID, func(ctx context.Context) (string, error) {
			return b.forecaster.DailyForecast(ctx, company)
		})
	})
}

func (b *Bot) handleDailyToggle(ctx context.Context, msg *tgbotapi.Message, enabled bool) {
	if user, err := b.database.GetUser(ctx, msg.From.ID); err == nil && user.DailyEnabled == enabled {
		if enabled {
			b.reply(msg.Chat.ID, "🔔 Ежедневная рассылка уже включена.")
		} else {
			b.reply(msg.Chat.ID, "🔕 Ежедневная рассылка уже выключена.")
		}

		return
	}

	if err := b.database.SetDailyEnabled(ctx, msg.From.ID, enabled); err != nil {
		b.logger.Error().Err(err).Int64(logFieldUserID, msg.From.ID).Msg("daily toggle failed")
		b.reply(msg.Chat.ID, msgGenerateFailed)

		return
	}

	if enabled {
		b.reply(msg.Chat.ID, fmt.Sprintf("🔔 Ежедневная рассылка включена, прогноз приходит в %s.", b.cfg.DailyForecastTime))
	} else {
		b.reply(msg.Chat.ID, "🔕 Ежедневная рассылка выключена.")
	}
}

// handleStatus is an admin command reporting the bot's configuration.
func (b *Bot) handleStatus(msg *tgbotapi.Message) {
	if !b.isAdmin(msg.From.ID) {
		b.reply(msg.Chat.ID, msgUnknownCommand)

		return
	}

	var sb strings.Builder

	sb.WriteString("⚙️ AstroRabbit\n")
	sb.WriteString(fmt.Sprintf("Модель: %s, критик: %s\n", b.cfg.LLMModel, b.cfg.CriticModel))
	sb.WriteString(fmt.Sprintf("Целевая оценка: %.1f, итераций: %d\n", b.cfg.TargetScore, b.cfg.MaxRefineIterations))
	sb.WriteString(fmt.Sprintf("Рассылка: %s %s\n", b.cfg.DailyForecastTime, b.cfg.DailyForecastTZ))
	sb.WriteString(fmt.Sprintf("Новостных лент: %d", len(b.cfg.NewsFeeds)))

	b.reply(msg.Chat.ID, sb.String())
}

func (b *Bot) isAdmin(userID int64) bool {
	for _, id := range b.cfg.AdminIDs {
		if id == userID {
			return true
		}
	}

	return false
}

func (b *Bot) sendMainMenu(chatID int64) {
	b.replyWithKeyboard(chatID, "Главное меню:", mainMenuKeyboard())
}

// companyCard renders the profile the way the forecasts will see it.
func companyCard(company *dbpkg.Company) string {
	sign := astro.SignFor(company.RegistrationDate)

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("🏢 %s\n", company.Name))
	sb.WriteString(fmt.Sprintf("%s %s", sign.Emoji, sign.Name))

	if company.Active {
		sb.WriteString(" • активная")
	}

	sb.WriteString("\n")

	if company.Industry != "" {
		sb.WriteString("Отрасль: " + company.Industry + "\n")
	}

	if !company.RegistrationDate.IsZero() {
		sb.WriteString("Зарегистрирована: " + company.RegistrationDate.Format(dateLayout))

		if company.RegistrationPlace != "" {
			sb.WriteString(", " + company.RegistrationPlace)
		}

		sb.WriteString("\n")
	}

	if company.OwnerName != "" {
		sb.WriteString("Владелец: " + company.OwnerName + "\n")
	}

	if company.DirectorName != "" {
		sb.WriteString("Директор: " + company.DirectorName + "\n")
	}

	return strings.TrimRight(sb.String(), "\n")
}
