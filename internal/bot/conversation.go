package bot

import (
	"context"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	dbpkg "github.com/astrorabbit/astro-bot/internal/db"
	"github.com/astrorabbit/astro-bot/internal/forecast"
)

// Dialog steps. The company dialog walks the steps in order; optional steps
// accept "-" to skip.
type dialogStep int

const (
	stepCompanyName dialogStep = iota
	stepCompanyIndustry
	stepCompanyRegDate
	stepCompanyRegPlace
	stepCompanyOwner
	stepCompanyOwnerBirth
	stepCompanyDirector
	stepCompanyDirectorBirth

	stepCompatName
	stepCompatBirth
	stepCompatRole
)

const skipAnswer = "-"

const msgBadDate = "Не удалось разобрать дату. Пример: 15.03.2018 или 2018-03-15"

type conversation struct {
	step    dialogStep
	company *dbpkg.Company
	person  *forecast.Person
}

func (b *Bot) setConversation(userID int64, conv *conversation) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.conversations[userID] = conv
}

func (b *Bot) getConversation(userID int64) *conversation {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.conversations[userID]
}

func (b *Bot) dropConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.conversations, userID)
}

func (b *Bot) startCompanyDialog(chatID, userID int64) {
	b.setConversation(userID, &conversation{
		step:    stepCompanyName,
		company: &dbpkg.Company{UserID: userID},
	})

	b.reply(chatID, "Как называется компания?")
}

func (b *Bot) startCompatDialog(chatID, userID int64) {
	b.setConversation(userID, &conversation{
		step:   stepCompatName,
		person: &forecast.Person{},
	})

	b.reply(chatID, "Как зовут человека, с которым проверяем совместимость?")
}

// continueConversation feeds a plain-text message into the user's active
// dialog. Returns false when no dialog is in progress.
func (b *Bot) continueConversation(ctx context.Context, msg *tgbotapi.Message) bool {
	conv := b.getConversation(msg.From.ID)
	if conv == nil {
		return false
	}

	answer := strings.TrimSpace(msg.Text)
	if answer == "" {
		return true
	}

	switch conv.step {
	case stepCompanyName, stepCompanyIndustry, stepCompanyRegDate, stepCompanyRegPlace,
		stepCompanyOwner, stepCompanyOwnerBirth, stepCompanyDirector, stepCompanyDirectorBirth:
		b.continueCompanyDialog(ctx, msg.Chat.ID, msg.From.ID, conv, answer)
	case stepCompatName, stepCompatBirth:
		b.continueCompatDialog(msg.Chat.ID, conv, answer)
	case stepCompatRole:
		b.reply(msg.Chat.ID, "Выберите роль кнопкой ниже.")
	}

	return true
}

func (b *Bot) continueCompanyDialog(ctx context.Context, chatID, userID int64, conv *conversation, answer string) {
	switch conv.step {
	case stepCompanyName:
		conv.company.Name = answer
		conv.step = stepCompanyIndustry

		b.reply(chatID, "В какой отрасли работает компания? (или - чтобы пропустить)")
	case stepCompanyIndustry:
		if answer != skipAnswer {
			conv.company.Industry = answer
		}

		conv.step = stepCompanyRegDate

		b.reply(chatID, "Дата регистрации компании? Например 15.03.2018")
	case stepCompanyRegDate:
		date, ok := parseDateAnswer(answer)
		if !ok {
			b.reply(chatID, msgBadDate)

			return
		}

		conv.company.RegistrationDate = date
		conv.step = stepCompanyRegPlace

		b.reply(chatID, "Место регистрации? (или - чтобы пропустить)")
	case stepCompanyRegPlace:
		if answer != skipAnswer {
			conv.company.RegistrationPlace = answer
		}

		conv.step = stepCompanyOwner

		b.reply(chatID, "Имя владельца? (или - чтобы пропустить)")
	case stepCompanyOwner:
		if answer == skipAnswer {
			conv.step = stepCompanyDirector

			b.reply(chatID, "Имя директора? (или - чтобы пропустить)")

			return
		}

		conv.company.OwnerName = answer
		conv.step = stepCompanyOwnerBirth

		b.reply(chatID, "Дата рождения владельца? (или - чтобы пропустить)")
	case stepCompanyOwnerBirth:
		if answer != skipAnswer {
			date, ok := parseDateAnswer(answer)
			if !ok {
				b.reply(chatID, msgBadDate)

				return
			}

			conv.company.OwnerBirthDate = date
		}

		conv.step = stepCompanyDirector

		b.reply(chatID, "Имя директора? (или - чтобы пропустить)")
	case stepCompanyDirector:
		if answer == skipAnswer {
			b.finishCompanyDialog(ctx, chatID, userID, conv)

			return
		}

		conv.company.DirectorName = answer
		conv.step = stepCompanyDirectorBirth

		b.reply(chatID, "Дата рождения директора? (или - чтобы пропустить)")
	case stepCompanyDirectorBirth:
		if answer != skipAnswer {
			date, ok := parseDateAnswer(answer)
			if !ok {
				b.reply(chatID, msgBadDate)

				return
			}

			conv.company.DirectorBirthDate = date
		}

		b.finishCompanyDialog(ctx, chatID, userID, conv)
	}
}

func (b *Bot) finishCompanyDialog(ctx context.Context, chatID, userID int64, conv *conversation) {
	b.dropConversation(userID)

	// The first company becomes active automatically.
	existing, err := b.database.ListCompanies(ctx, userID)
	if err == nil && len(existing) == 0 {
		conv.company.Active = true
	}

	if err := b.database.SaveCompany(ctx, conv.company); err != nil {
		b.logger.Error().Err(err).Int64(logFieldUserID, userID).Msg("save company failed")
		b.reply(chatID, "⚠️ Не удалось сохранить компанию, попробуйте ещё раз.")

		return
	}

	b.replyWithKeyboard(chatID, "✅ Компания сохранена.\n\n"+companyCard(conv.company), companyActionsKeyboard(conv.company))
}

func (b *Bot) continueCompatDialog(chatID int64, conv *conversation, answer string) {
	switch conv.step {
	case stepCompatName:
		conv.person.Name = answer
		conv.step = stepCompatBirth

		b.reply(chatID, "Дата рождения человека? Например 02.08.1985")
	case stepCompatBirth:
		date, ok := parseDateAnswer(answer)
		if !ok {
			b.reply(chatID, msgBadDate)

			return
		}

		conv.person.BirthDate = date
		conv.step = stepCompatRole

		b.replyWithKeyboard(chatID, "Кто этот человек для компании?", compatRoleKeyboard())
	}
}

// continueCompatRole finishes the compatibility dialog from the role button.
func (b *Bot) continueCompatRole(ctx context.Context, chatID, userID int64, role string) {
	conv := b.getConversation(userID)
	if conv == nil || conv.step != stepCompatRole || conv.person == nil {
		return
	}

	conv.person.Role = role
	person := *conv.person

	b.dropConversation(userID)

	b.withActiveCompany(ctx, chatID, userID, func(company *dbpkg.Company) {
		b.generateAndSend(ctx, chatID, func(ctx context.Context) (string, error) {
			return b.forecaster.Compatibility(ctx, company, person)
		})
	})
}

// parseDateAnswer accepts the common Russian day-first format as well as
// anything dateparse recognizes.
func parseDateAnswer(answer string) (time.Time, bool) {
	if date, err := time.Parse(dateLayout, answer); err == nil {
		return date, true
	}

	date, err := dateparse.ParseAny(answer)
	if err != nil {
		return time.Time{}, false
	}

	return date, true
}
