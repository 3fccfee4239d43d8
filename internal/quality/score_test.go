package quality

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/astrorabbit/astro-bot/internal/core/errors"
)

// twoSectionProfile is the worked example rubric: two sections, presence 3
// and quality 2 points each, five-word quality minimum, no extras or global
// bonuses so totals are exact.
func twoSectionProfile(critical bool) *Profile {
	return &Profile{
		Name: "test",
		Sections: []SectionRule{
			{Title: "🌟 Intro", Presence: 3, Quality: 2},
			{Title: "💼 Advice", Presence: 3, Quality: 2},
		},
		MinWordsPerSection: 5,
		Global: map[string]GlobalRule{
			ruleNoMarkdownHTML: {Critical: critical},
		},
	}
}

func TestComputeScoreWorkedExample(t *testing.T) {
	text := "🌟 Intro\none two three four five six\n💼 Advice\nonly two words"

	bd := ComputeScore(text, twoSectionProfile(true))

	require.Len(t, bd.Sections, 2)

	intro := bd.Sections[0]
	assert.True(t, intro.Present)
	assert.True(t, intro.QualityOK)
	assert.Equal(t, 6, intro.Words)
	assert.InDelta(t, 5.0, intro.Points, 1e-9)

	advice := bd.Sections[1]
	assert.True(t, advice.Present)
	assert.False(t, advice.QualityOK)
	assert.InDelta(t, 3.0, advice.Points, 1e-9)

	assert.False(t, bd.Critical)
	assert.InDelta(t, 8.0, bd.Score, 1e-9)
}

func TestComputeScoreCriticalPenalty(t *testing.T) {
	// Same text plus markdown: base 8 stays, penalty 5 applies.
	text := "🌟 Intro\none two three four five six\n💼 Advice\nonly two **bold** words"

	bd := ComputeScore(text, twoSectionProfile(true))

	assert.True(t, bd.Critical)
	assert.NotEmpty(t, bd.Reason)
	assert.InDelta(t, 3.0, bd.Score, 1e-9)
}

func TestComputeScoreCriticalFlooredAtZero(t *testing.T) {
	bd := ComputeScore("<p>nothing matches</p>", twoSectionProfile(true))

	assert.True(t, bd.Critical)
	assert.InDelta(t, 0.0, bd.Score, 1e-9)
}

func TestComputeScoreMarkupNotCriticalWhenRuleDisabled(t *testing.T) {
	text := "🌟 Intro\none two three four five six\n💼 Advice\nonly two **bold** words"

	bd := ComputeScore(text, twoSectionProfile(false))

	assert.False(t, bd.Critical)
	assert.InDelta(t, 8.0, bd.Score, 1e-9)
}

func TestComputeScoreQualityMonotonicity(t *testing.T) {
	full := "🌟 Intro\none two three four five six\n💼 Advice\nsix more words fill this body"
	missingBody := "🌟 Intro\none two three four five six\n💼 Advice"

	fullBD := ComputeScore(full, twoSectionProfile(true))
	partialBD := ComputeScore(missingBody, twoSectionProfile(true))

	assert.Greater(t, fullBD.Score, partialBD.Score)
}

func TestComputeScoreGlobalBonuses(t *testing.T) {
	profile := twoSectionProfile(true)
	profile.Global[ruleFormattingHeaders] = GlobalRule{Points: 0.5}
	profile.Global[ruleToneProfessional] = GlobalRule{Points: 0.5}

	text := "🌟 Intro\none two three four five six\n💼 Advice\nenough words to pass the minimum"

	bd := ComputeScore(text, profile)

	assert.InDelta(t, 1.0, bd.Global, 1e-9)
	assert.InDelta(t, 11.0, bd.Score, 1e-9)

	withFiller := text + "\nтипа вот так"
	bd = ComputeScore(withFiller, profile)

	assert.InDelta(t, 0.5, bd.Global, 1e-9)
}

func TestComputeScoreExtras(t *testing.T) {
	profile := &Profile{
		Name: "extras",
		Sections: []SectionRule{
			{Title: "🏢 ПРИМЕРЫ ИЗВЕСТНЫХ КОМПАНИЙ", Presence: 1},
		},
		MinWordsPerSection: 1,
		Extra: map[string]float64{
			extraKnownCompanies:  1.0,
			extraIndustryBinding: 0.5,
			extraStatusBinding:   0.5,
			extraNews222:         1.0,
		},
		Global: map[string]GlobalRule{},
	}

	text := strings.Join([]string{
		"🏢 ПРИМЕРЫ ИЗВЕСТНЫХ КОМПАНИЙ",
		"Apple и Microsoft работают в той же отрасли.",
		"Ваш партнер разделяет эти ценности.",
		"Политика: стабильно. Экономика: рост. Фондовый рынок: волатильность.",
	}, "\n")

	bd := ComputeScore(text, profile)

	assert.InDelta(t, 3.0, bd.Extras, 1e-9)
	assert.InDelta(t, 4.0, bd.Score, 1e-9)
}

func TestComputeScoreRounding(t *testing.T) {
	profile := &Profile{
		Name:               "rounding",
		Sections:           []SectionRule{{Title: "🌟 Intro", Presence: 0.1, Quality: 0.025}},
		MinWordsPerSection: 1,
		Global:             map[string]GlobalRule{},
	}

	bd := ComputeScore("🌟 Intro\nbody", profile)

	assert.InDelta(t, 0.13, bd.Score, 1e-9)
}

func TestLoadProfileKnown(t *testing.T) {
	profile, err := LoadProfile("business_forecast")

	require.NoError(t, err)
	assert.Equal(t, "business_forecast", profile.Name)
	assert.Len(t, profile.Sections, 6)
	assert.Equal(t, 50, profile.MinWordsPerSection)

	// Shared global rules are merged into every profile.
	rule, ok := profile.Global[ruleNoMarkdownHTML]
	require.True(t, ok)
	assert.True(t, rule.Critical)
}

func TestLoadProfileUnknown(t *testing.T) {
	_, err := LoadProfile("no_such_profile")

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrProfileNotFound)
}
