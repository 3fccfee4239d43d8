package astro

import (
	"strings"
	"unicode"
)

// Pythagorean letter values. Cyrillic letters are mapped by alphabet
// position modulo nine, the scheme shared by Russian numerology tables.
var (
	latinValues    = map[rune]int{}
	cyrillicValues = map[rune]int{}
)

const (
	latinAlphabet    = "abcdefghijklmnopqrstuvwxyz"
	cyrillicAlphabet = "абвгдеёжзийклмнопрстуфхцчшщъыьэюя"

	numerologyBase = 9

	// Master numbers are reported as is, without further reduction.
	masterEleven    = 11
	masterTwentyTwo = 22
)

func init() {
	for i, r := range []rune(latinAlphabet) {
		latinValues[r] = i%numerologyBase + 1
	}

	for i, r := range []rune(cyrillicAlphabet) {
		cyrillicValues[r] = i%numerologyBase + 1
	}
}

// NameNumber computes the numerological number of a name: letter values are
// summed, then the sum is reduced digit by digit to a single digit, keeping
// the master numbers 11 and 22 unreduced. Digits in the name contribute
// their own value. Returns 0 for a name with no letters or digits.
func NameNumber(name string) int {
	sum := 0

	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsDigit(r):
			sum += int(r - '0')
		case latinValues[r] != 0:
			sum += latinValues[r]
		case cyrillicValues[r] != 0:
			sum += cyrillicValues[r]
		}
	}

	return reduce(sum)
}

// DateNumber computes the numerological number of a date from its digits.
func DateNumber(day, month, year int) int {
	return reduce(digitSum(day) + digitSum(month) + digitSum(year))
}

func reduce(n int) int {
	for n > numerologyBase {
		if n == masterEleven || n == masterTwentyTwo {
			return n
		}

		n = digitSum(n)
	}

	return n
}

func digitSum(n int) int {
	sum := 0
	for n > 0 {
		sum += n % 10
		n /= 10
	}

	return sum
}

// numberMeanings gives the short business reading attached to each number.
var numberMeanings = map[int]string{
	1: "лидерство и независимость",
	2: "партнёрство и дипломатия",
	3: "творчество и коммуникации",
	4: "стабильность и системность",
	5: "перемены и экспансия",
	6: "ответственность и сервис",
	7: "аналитика и экспертиза",
	8: "материальный успех и управление",
	9: "масштаб и гуманитарная миссия",

	masterEleven:    "интуиция и вдохновение команды",
	masterTwentyTwo: "строитель больших систем",
}

// NumberMeaning returns the business reading for a numerological number, or
// an empty string for numbers outside the known set.
func NumberMeaning(n int) string {
	return numberMeanings[n]
}
