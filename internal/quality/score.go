package quality

import (
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Rule names used in scoring.yaml.
const (
	ruleNoMarkdownHTML    = "no_markdown_html"
	ruleFormattingHeaders = "formatting_headers"
	ruleToneProfessional  = "tone_professional"

	extraKnownCompanies  = "known_companies"
	extraIndustryBinding = "industry_binding"
	extraStatusBinding   = "status_binding"
	extraNews222         = "news_2_2_2"
)

// criticalPenalty is the fixed deduction applied when a critical global rule
// is violated, floored at zero. The constant is intentionally not scaled to
// the profile's point budget.
const criticalPenalty = 5.0

const criticalMarkupReason = "HTML/Markdown markup detected"

// fillerWords is the blacklist for the professional-tone bonus. Substring
// match, case-insensitive, same as the heuristic the prompts describe.
var fillerWords = []string{"эээ", "ну,", "типа"}

// statusWords marks compatibility answers that bind to a relationship status.
var statusWords = []string{"сотрудник", "партнер", "партнёр", "клиент", "контрагент"}

// newsBlockLabels are the three labeled sub-blocks a daily forecast's news
// section is expected to carry.
var newsBlockLabels = []string{"Политика:", "Экономика:", "Фондовый рынок:"}

// SectionResult is one row of the per-section scoring breakdown.
type SectionResult struct {
	Section   string
	Present   bool
	QualityOK bool
	Words     int
	Points    float64
}

// Breakdown is the scorer's output for a single candidate text.
type Breakdown struct {
	Score    float64
	Critical bool
	Reason   string
	Sections []SectionResult
	Extras   float64
	Global   float64
}

// ComputeScore scores a candidate text against a profile. Section points
// accumulate for presence and word-count quality, extra heuristics and
// global bonuses are added on top, and a critical markup violation
// short-circuits into a fixed penalty floored at zero.
func ComputeScore(text string, profile *Profile) Breakdown {
	found := SplitSections(text, profile.SectionTitles())

	var score float64

	results := make([]SectionResult, 0, len(profile.Sections))

	for _, sec := range profile.Sections {
		body := found[sec.Title]
		present := body != ""
		words := 0

		if present {
			words = WordCount(body)
		}

		qualityOK := present && words >= profile.MinWordsPerSection

		points := 0.0
		if present {
			points += sec.Presence
		}

		if qualityOK {
			points += sec.Quality
		}

		score += points
		results = append(results, SectionResult{
			Section:   sec.Title,
			Present:   present,
			QualityOK: qualityOK,
			Words:     words,
			Points:    points,
		})
	}

	extras := computeExtras(text, found, profile.Extra)
	score += extras

	globalPts := computeGlobal(text, profile.Global)

	if rule, ok := profile.Global[ruleNoMarkdownHTML]; ok && rule.Critical && HasMarkup(text) {
		final := math.Max(0, score+globalPts-criticalPenalty)

		return Breakdown{
			Score:    round2(final),
			Critical: true,
			Reason:   criticalMarkupReason,
			Sections: results,
			Extras:   round2(extras),
			Global:   round2(globalPts),
		}
	}

	return Breakdown{
		Score:    round2(score + globalPts),
		Sections: results,
		Extras:   round2(extras),
		Global:   round2(globalPts),
	}
}

// computeExtras evaluates the named bonus heuristics against the full text.
// Each rule awards its full point value or nothing.
func computeExtras(text string, found map[string]string, extra map[string]float64) float64 {
	if len(extra) == 0 {
		return 0
	}

	lower := lowercase(text)

	var pts float64

	if v, ok := extra[extraKnownCompanies]; ok && headingsMention(found, "🏢") {
		pts += v
	}

	if v, ok := extra[extraIndustryBinding]; ok && strings.Contains(lower, "отрасл") {
		pts += v
	}

	if v, ok := extra[extraStatusBinding]; ok && containsAny(lower, statusWords) {
		pts += v
	}

	if v, ok := extra[extraNews222]; ok && containsAll(text, newsBlockLabels) {
		pts += v
	}

	return pts
}

// computeGlobal evaluates the cross-cutting bonus rules. The headers bonus
// is flat: if sections matched at all, headers are present by construction.
func computeGlobal(text string, global map[string]GlobalRule) float64 {
	var pts float64

	if rule, ok := global[ruleFormattingHeaders]; ok {
		pts += rule.Points
	}

	if rule, ok := global[ruleToneProfessional]; ok && !containsAny(lowercase(text), fillerWords) {
		pts += rule.Points
	}

	return pts
}

func headingsMention(found map[string]string, marker string) bool {
	for title := range found {
		if strings.Contains(title, marker) {
			return true
		}
	}

	return false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}

	return false
}

func containsAll(s string, subs []string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}

	return true
}

// lowercase folds Cyrillic case the way the Russian locale expects. A Caser
// is stateful, so a fresh one is made per call.
func lowercase(s string) string {
	return cases.Lower(language.Russian).String(s)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
