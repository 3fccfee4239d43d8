package forecast

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbpkg "github.com/astrorabbit/astro-bot/internal/db"
	"github.com/astrorabbit/astro-bot/internal/llm"
	"github.com/astrorabbit/astro-bot/internal/platform/config"
	"github.com/astrorabbit/astro-bot/internal/quality"
)

type fakeLLM struct {
	generateFn func(ctx context.Context, prompt string) (string, error)
	critiqueFn func(ctx context.Context, text string) (llm.Critique, error)

	generatePrompts []string
	critiqueInputs  []string
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string) (string, error) {
	f.generatePrompts = append(f.generatePrompts, prompt)

	if f.generateFn != nil {
		return f.generateFn(ctx, prompt)
	}

	return "", errors.New("generateFn not set")
}

func (f *fakeLLM) Critique(ctx context.Context, text string) (llm.Critique, error) {
	f.critiqueInputs = append(f.critiqueInputs, text)

	if f.critiqueFn != nil {
		return f.critiqueFn(ctx, text)
	}

	return llm.Critique{}, nil
}

func (f *fakeLLM) GetEmbedding(_ context.Context, _ string) ([]float32, error) {
	return nil, errors.New("not implemented")
}

type fakeNews struct {
	context string
	err     error
}

func (n *fakeNews) ContextFor(_ context.Context, _ string) (string, error) {
	return n.context, n.err
}

func testConfig() *config.Config {
	return &config.Config{TargetScore: 9.0, MaxRefineIterations: 3}
}

func testLogger() *zerolog.Logger {
	nop := zerolog.Nop()

	return &nop
}

func testCompany() *dbpkg.Company {
	return &dbpkg.Company{
		Name:             "Ромашка",
		Industry:         "финтех",
		RegistrationDate: time.Date(2018, time.April, 25, 0, 0, 0, 0, time.UTC),
	}
}

// completeAnswer renders every section of a profile with enough plain-text
// words to clear presence, quality and the tone and industry heuristics.
func completeAnswer(t *testing.T, profileName string) string {
	t.Helper()

	profile, err := quality.LoadProfile(profileName)
	require.NoError(t, err)

	var sb strings.Builder

	for _, title := range profile.SectionTitles() {
		sb.WriteString(title)
		sb.WriteString("\n")
		sb.WriteString(strings.Repeat("стабильное развитие компании в текущей отрасли продолжается уверенно ", 8))
		sb.WriteString("\n\n")
	}

	return sb.String()
}

func criticWith(score float64) func(context.Context, string) (llm.Critique, error) {
	return func(_ context.Context, _ string) (llm.Critique, error) {
		s := score

		return llm.Critique{Score: &s, Feedback: "замечания редактора"}, nil
	}
}

func TestCompanyZodiacConvergesFirstPass(t *testing.T) {
	good := completeAnswer(t, "zodiac_info")
	client := &fakeLLM{
		generateFn: func(_ context.Context, _ string) (string, error) { return good, nil },
		critiqueFn: criticWith(8),
	}

	agent := New(testConfig(), client, nil, testLogger())

	out, err := agent.CompanyZodiac(context.Background(), testCompany())

	require.NoError(t, err)
	assert.Contains(t, out, "🏢 ПРИМЕРЫ ИЗВЕСТНЫХ КОМПАНИЙ")
	// One generation, no rewrites.
	assert.Len(t, client.generatePrompts, 1)
	assert.Len(t, client.critiqueInputs, 1)
}

func TestRefineIgnoresCriticScore(t *testing.T) {
	good := completeAnswer(t, "zodiac_info")

	t.Run("low critic score does not trigger rewrites", func(t *testing.T) {
		client := &fakeLLM{
			generateFn: func(_ context.Context, _ string) (string, error) { return good, nil },
			critiqueFn: criticWith(2),
		}

		agent := New(testConfig(), client, nil, testLogger())

		_, err := agent.CompanyZodiac(context.Background(), testCompany())

		require.NoError(t, err)
		assert.Len(t, client.generatePrompts, 1)
	})

	t.Run("high critic score does not skip rewrites", func(t *testing.T) {
		calls := 0
		client := &fakeLLM{
			critiqueFn: criticWith(10),
		}
		client.generateFn = func(_ context.Context, _ string) (string, error) {
			calls++
			if calls == 1 {
				return "разделов здесь нет, " + strings.Repeat("только вода ", 30), nil
			}

			return good, nil
		}

		agent := New(testConfig(), client, nil, testLogger())

		out, err := agent.CompanyZodiac(context.Background(), testCompany())

		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(client.generatePrompts), 2)
		assert.Contains(t, out, "💼 РЕКОМЕНДАЦИИ")
	})
}

func TestSelfScoreStrippedBeforeCritique(t *testing.T) {
	good := completeAnswer(t, "business_forecast")
	client := &fakeLLM{
		generateFn: func(_ context.Context, _ string) (string, error) {
			return good + "\nSELF-SCORE: 9.5 все разделы раскрыты", nil
		},
		critiqueFn: criticWith(8),
	}

	agent := New(testConfig(), client, nil, testLogger())

	out, err := agent.BusinessForecast(context.Background(), testCompany())

	require.NoError(t, err)
	require.Len(t, client.critiqueInputs, 1)
	assert.NotContains(t, client.critiqueInputs[0], quality.SelfScoreMarker)
	assert.NotContains(t, out, quality.SelfScoreMarker)
}

func TestImprovePromptCarriesCriticFeedback(t *testing.T) {
	good := completeAnswer(t, "zodiac_info")

	calls := 0
	client := &fakeLLM{critiqueFn: criticWith(4)}
	client.generateFn = func(_ context.Context, _ string) (string, error) {
		calls++
		if calls == 1 {
			return "разделов здесь нет, " + strings.Repeat("только вода ", 30), nil
		}

		return good, nil
	}

	agent := New(testConfig(), client, nil, testLogger())

	_, err := agent.CompanyZodiac(context.Background(), testCompany())

	require.NoError(t, err)
	require.GreaterOrEqual(t, len(client.generatePrompts), 2)
	assert.Contains(t, client.generatePrompts[1], "замечания редактора")
	assert.Contains(t, client.generatePrompts[1], "Отсутствует раздел")
}

func TestDailyForecastInjectsNews(t *testing.T) {
	good := completeAnswer(t, "daily_forecast")
	client := &fakeLLM{
		generateFn: func(_ context.Context, _ string) (string, error) { return good, nil },
		critiqueFn: criticWith(8),
	}
	news := &fakeNews{context: "— Рынок растёт (РБК): рост индексов."}

	agent := New(testConfig(), client, news, testLogger())

	_, err := agent.DailyForecast(context.Background(), testCompany())

	require.NoError(t, err)
	require.NotEmpty(t, client.generatePrompts)
	assert.Contains(t, client.generatePrompts[0], "Актуальные новости:")
	assert.Contains(t, client.generatePrompts[0], "Рынок растёт")
}

func TestDailyForecastSurvivesNewsFailure(t *testing.T) {
	good := completeAnswer(t, "daily_forecast")
	client := &fakeLLM{
		generateFn: func(_ context.Context, _ string) (string, error) { return good, nil },
		critiqueFn: criticWith(8),
	}
	news := &fakeNews{err: errors.New("feed down")}

	agent := New(testConfig(), client, news, testLogger())

	out, err := agent.DailyForecast(context.Background(), testCompany())

	require.NoError(t, err)
	assert.NotEmpty(t, out)
	assert.NotContains(t, client.generatePrompts[0], "Актуальные новости:")
}

func TestCompatibilityPromptIncludesPerson(t *testing.T) {
	good := completeAnswer(t, "compatibility")
	client := &fakeLLM{
		generateFn: func(_ context.Context, _ string) (string, error) { return good, nil },
		critiqueFn: criticWith(8),
	}

	agent := New(testConfig(), client, nil, testLogger())

	person := Person{
		Name:      "Иван Петров",
		BirthDate: time.Date(1985, time.August, 2, 0, 0, 0, 0, time.UTC),
		Role:      "партнёр",
	}

	_, err := agent.Compatibility(context.Background(), testCompany(), person)

	require.NoError(t, err)
	require.NotEmpty(t, client.generatePrompts)
	assert.Contains(t, client.generatePrompts[0], "Иван Петров")
	assert.Contains(t, client.generatePrompts[0], "партнёр")
	assert.Contains(t, client.generatePrompts[0], "Лев")
}

func TestRepeatRequestServedFromCache(t *testing.T) {
	good := completeAnswer(t, "zodiac_info")
	client := &fakeLLM{
		generateFn: func(_ context.Context, _ string) (string, error) { return good, nil },
		critiqueFn: criticWith(8),
	}

	agent := New(testConfig(), client, nil, testLogger())
	company := testCompany()

	first, err := agent.CompanyZodiac(context.Background(), company)
	require.NoError(t, err)

	second, err := agent.CompanyZodiac(context.Background(), company)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	// The second request makes no model calls at all.
	assert.Len(t, client.generatePrompts, 1)
	assert.Len(t, client.critiqueInputs, 1)
}

func TestCacheKeySeparatesKinds(t *testing.T) {
	answers := map[string]string{
		"zodiac_info":       completeAnswer(t, "zodiac_info"),
		"business_forecast": completeAnswer(t, "business_forecast"),
	}
	calls := 0
	client := &fakeLLM{critiqueFn: criticWith(8)}
	client.generateFn = func(_ context.Context, _ string) (string, error) {
		calls++
		if calls == 1 {
			return answers["zodiac_info"], nil
		}

		return answers["business_forecast"], nil
	}

	agent := New(testConfig(), client, nil, testLogger())
	company := testCompany()

	zodiac, err := agent.CompanyZodiac(context.Background(), company)
	require.NoError(t, err)

	business, err := agent.BusinessForecast(context.Background(), company)
	require.NoError(t, err)

	assert.NotEqual(t, zodiac, business)
	assert.Equal(t, 2, calls)
}

func TestCompatibilityCachedPerPerson(t *testing.T) {
	good := completeAnswer(t, "compatibility")
	client := &fakeLLM{
		generateFn: func(_ context.Context, _ string) (string, error) { return good, nil },
		critiqueFn: criticWith(8),
	}

	agent := New(testConfig(), client, nil, testLogger())
	company := testCompany()

	ivan := Person{Name: "Иван Петров", BirthDate: time.Date(1985, time.August, 2, 0, 0, 0, 0, time.UTC), Role: "партнёр"}
	anna := Person{Name: "Анна Сидорова", BirthDate: time.Date(1990, time.March, 14, 0, 0, 0, 0, time.UTC), Role: "сотрудник"}

	_, err := agent.Compatibility(context.Background(), company, ivan)
	require.NoError(t, err)

	_, err = agent.Compatibility(context.Background(), company, anna)
	require.NoError(t, err)

	_, err = agent.Compatibility(context.Background(), company, ivan)
	require.NoError(t, err)

	// Two distinct people, two generations; the repeat costs nothing.
	assert.Len(t, client.generatePrompts, 2)
}

func TestCacheEntryExpires(t *testing.T) {
	good := completeAnswer(t, "zodiac_info")
	client := &fakeLLM{
		generateFn: func(_ context.Context, _ string) (string, error) { return good, nil },
		critiqueFn: criticWith(8),
	}

	agent := New(testConfig(), client, nil, testLogger())

	current := time.Now()
	agent.cache.now = func() time.Time { return current }

	_, err := agent.CompanyZodiac(context.Background(), testCompany())
	require.NoError(t, err)

	current = current.Add(cacheTTL + time.Minute)

	_, err = agent.CompanyZodiac(context.Background(), testCompany())
	require.NoError(t, err)

	assert.Len(t, client.generatePrompts, 2)
}

func TestGenerateErrorPropagates(t *testing.T) {
	client := &fakeLLM{
		generateFn: func(_ context.Context, _ string) (string, error) {
			return "", errors.New("upstream down")
		},
	}

	agent := New(testConfig(), client, nil, testLogger())

	_, err := agent.BusinessForecast(context.Background(), testCompany())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "generate forecast")
}

func TestCriticFailureDoesNotBlockDelivery(t *testing.T) {
	good := completeAnswer(t, "zodiac_info")
	client := &fakeLLM{
		generateFn: func(_ context.Context, _ string) (string, error) { return good, nil },
		critiqueFn: func(_ context.Context, _ string) (llm.Critique, error) {
			return llm.Critique{}, errors.New("critic down")
		},
	}

	agent := New(testConfig(), client, nil, testLogger())

	out, err := agent.CompanyZodiac(context.Background(), testCompany())

	require.NoError(t, err)
	assert.NotEmpty(t, out)
}
