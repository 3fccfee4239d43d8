package forecast

import (
	"fmt"
	"strings"

	"github.com/astrorabbit/astro-bot/internal/quality"
)

const promptPersona = `Ты профессиональный бизнес-астролог AstroRabbit. Ты создаёшь
качественные астрологические анализы для компаний на русском языке, строго
соблюдая правила форматирования для Telegram.`

// formattingRules mirrors the scorer's critical rule: the model is told in
// the same terms what the gate will reject.
const formattingRules = `КРИТИЧЕСКИ ВАЖНО - ФОРМАТИРОВАНИЕ ДЛЯ TELEGRAM:
- НИКОГДА не используй HTML-теги: <p>, <h1>, <b>, <i>, <ul>, <li>, <div>
- НИКОГДА не используй Markdown: **, __, ##, ###, ---, обратные кавычки
- Используй ТОЛЬКО обычный текст с эмодзи
- Заголовки разделов выводи ровно как указано, отдельной строкой
- Списки оформляй: "• Пункт списка"
- После каждого раздела добавляй пустую строку`

const selfScoreInstruction = `В самом конце, отдельной строкой, добавь:
` + quality.SelfScoreMarker + ` <твоя оценка ответа от 1 до 10> <одно предложение обоснования>`

// task intros per operation.
const (
	zodiacIntro = `Проанализируй влияние знака зодиака на компанию на основе данных ниже.
Приведи примеры известных компаний этого знака и привяжи выводы к отрасли.`

	businessIntro = `Составь полный астрологический бизнес-прогноз для компании на основе
данных ниже. Свяжи рекомендации с отраслью компании.`

	compatibilityIntro = `Проанализируй астрологическую совместимость компании и человека на
основе данных ниже. Учитывай роль человека по отношению к компании
(сотрудник, партнёр, клиент).`

	dailyIntro = `Составь ежедневный астрологический прогноз для компании на сегодня.
В разделе "📰 НОВОСТНОЙ КОНТЕКСТ" дай по два предложения на каждый из
трёх блоков с метками "Политика:", "Экономика:" и "Фондовый рынок:",
привязывая новости к отрасли компании.`
)

// buildPrompt assembles a generation prompt: persona, task, facts, the
// numbered list of required section headings, formatting rules and the
// self-assessment instruction.
func buildPrompt(intro string, facts []string, extra string, profile *quality.Profile) string {
	var sb strings.Builder

	sb.WriteString(promptPersona)
	sb.WriteString("\n\n")
	sb.WriteString(intro)
	sb.WriteString("\n\nДанные:\n")

	for _, fact := range facts {
		sb.WriteString("• ")
		sb.WriteString(fact)
		sb.WriteString("\n")
	}

	if extra != "" {
		sb.WriteString("\n")
		sb.WriteString(extra)
		sb.WriteString("\n")
	}

	sb.WriteString("\nОбязательные разделы, ровно с такими заголовками:\n")

	for i, title := range profile.SectionTitles() {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, title))
	}

	sb.WriteString(fmt.Sprintf("\nКаждый раздел должен содержать не менее %d слов.\n\n", profile.MinWordsPerSection))
	sb.WriteString(formattingRules)
	sb.WriteString("\n\n")
	sb.WriteString(selfScoreInstruction)

	return sb.String()
}

// buildImprovePrompt asks the model to rework a rejected answer. It names
// the concrete gaps the scorer found and relays the critic's remarks, and
// demands a longer, complete rewrite rather than a patch.
func buildImprovePrompt(text string, breakdown quality.Breakdown, criticFeedback string, profile *quality.Profile) string {
	var sb strings.Builder

	sb.WriteString(promptPersona)
	sb.WriteString("\n\nТвой предыдущий ответ не прошёл проверку качества (оценка ")
	sb.WriteString(fmt.Sprintf("%.1f", breakdown.Score))
	sb.WriteString(" из 10). Перепиши его полностью, устранив недостатки:\n")

	for _, sec := range breakdown.Sections {
		switch {
		case !sec.Present:
			sb.WriteString(fmt.Sprintf("• Отсутствует раздел %q\n", sec.Section))
		case !sec.QualityOK:
			sb.WriteString(fmt.Sprintf("• Раздел %q слишком короткий: %d слов вместо %d\n",
				sec.Section, sec.Words, profile.MinWordsPerSection))
		}
	}

	if breakdown.Critical {
		sb.WriteString("• В тексте найдена HTML/Markdown разметка, её быть не должно\n")
	}

	if criticFeedback != "" {
		sb.WriteString("\nЗамечания редактора:\n")
		sb.WriteString(criticFeedback)
		sb.WriteString("\n")
	}

	sb.WriteString("\nНовый ответ должен быть не короче предыдущего и сохранить все удачные места.\n\n")
	sb.WriteString(formattingRules)
	sb.WriteString("\n\nПредыдущий ответ:\n")
	sb.WriteString(text)

	return sb.String()
}
