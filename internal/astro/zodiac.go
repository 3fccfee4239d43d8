// Package astro holds the deterministic astrology primitives: zodiac sign
// resolution by date and name numerology. Everything here is pure
// computation; interpretation is left to the language model.
package astro

import "time"

// Sign is a zodiac sign with its presentation attributes.
type Sign struct {
	Name    string
	Emoji   string
	Element string
	Planet  string
}

// Unknown is returned for zero dates so callers can render a placeholder
// instead of failing the whole forecast.
var Unknown = Sign{Name: "Неизвестно", Emoji: "🔮"}

var signs = []Sign{
	{Name: "Козерог", Emoji: "♑", Element: "Земля", Planet: "Сатурн"},
	{Name: "Водолей", Emoji: "♒", Element: "Воздух", Planet: "Уран"},
	{Name: "Рыбы", Emoji: "♓", Element: "Вода", Planet: "Нептун"},
	{Name: "Овен", Emoji: "♈", Element: "Огонь", Planet: "Марс"},
	{Name: "Телец", Emoji: "♉", Element: "Земля", Planet: "Венера"},
	{Name: "Близнецы", Emoji: "♊", Element: "Воздух", Planet: "Меркурий"},
	{Name: "Рак", Emoji: "♋", Element: "Вода", Planet: "Луна"},
	{Name: "Лев", Emoji: "♌", Element: "Огонь", Planet: "Солнце"},
	{Name: "Дева", Emoji: "♍", Element: "Земля", Planet: "Меркурий"},
	{Name: "Весы", Emoji: "♎", Element: "Воздух", Planet: "Венера"},
	{Name: "Скорпион", Emoji: "♏", Element: "Вода", Planet: "Плутон"},
	{Name: "Стрелец", Emoji: "♐", Element: "Огонь", Planet: "Юпитер"},
}

// monthCutoffs maps each calendar month to the day a new sign begins and
// the index of that sign in the signs slice. Days before the cutoff belong
// to the previous sign.
var monthCutoffs = [12]struct {
	day  int
	sign int
}{
	{20, 1},  // January: Водолей from the 20th, Козерог before
	{19, 2},  // February: Рыбы
	{21, 3},  // March: Овен
	{20, 4},  // April: Телец
	{21, 5},  // May: Близнецы
	{21, 6},  // June: Рак
	{23, 7},  // July: Лев
	{23, 8},  // August: Дева
	{23, 9},  // September: Весы
	{23, 10}, // October: Скорпион
	{22, 11}, // November: Стрелец
	{22, 0},  // December: Козерог
}

// SignFor resolves the tropical zodiac sign for a date. The zero time maps
// to Unknown.
func SignFor(date time.Time) Sign {
	if date.IsZero() {
		return Unknown
	}

	cutoff := monthCutoffs[int(date.Month())-1]

	idx := cutoff.sign
	if date.Day() < cutoff.day {
		idx = (idx + 11) % len(signs)
	}

	return signs[idx]
}
