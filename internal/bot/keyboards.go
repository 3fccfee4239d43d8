package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/astrorabbit/astro-bot/internal/astro"
	dbpkg "github.com/astrorabbit/astro-bot/internal/db"
)

func mainMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏢 Мои компании", CallbackCompanies),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🌟 Знак зодиака", CallbackZodiac),
			tgbotapi.NewInlineKeyboardButtonData("📊 Бизнес-прогноз", CallbackForecast),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🤝 Совместимость", CallbackCompat),
			tgbotapi.NewInlineKeyboardButtonData("📅 Прогноз на сегодня", CallbackDaily),
		),
	)
}

// companiesKeyboard lists the user's companies, the active one marked, plus
// the add button.
func companiesKeyboard(companies []dbpkg.Company) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(companies)+1)

	for _, company := range companies {
		label := astro.SignFor(company.RegistrationDate).Emoji + " " + company.Name
		if company.Active {
			label = "✅ " + label
		}

		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, PrefixCompanyOpen+company.ID),
		))
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("➕ Добавить компанию", CallbackCompanyAdd),
	))

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func companyActionsKeyboard(company *dbpkg.Company) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Сделать активной", PrefixCompanyUse+company.ID),
			tgbotapi.NewInlineKeyboardButtonData("🗑 Удалить", PrefixCompanyDelete+company.ID),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 К списку компаний", CallbackCompanies),
		),
	)
}

// compatRoleKeyboard offers the relationship roles the compatibility
// analysis binds to.
func compatRoleKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Сотрудник", PrefixCompatRole+"сотрудник"),
			tgbotapi.NewInlineKeyboardButtonData("Партнёр", PrefixCompatRole+"партнёр"),
			tgbotapi.NewInlineKeyboardButtonData("Клиент", PrefixCompatRole+"клиент"),
		),
	)
}
