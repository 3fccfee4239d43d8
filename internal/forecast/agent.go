// Package forecast generates astrology-themed business analyses and drives
// each of them through the quality gate before delivery.
package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/astrorabbit/astro-bot/internal/astro"
	dbpkg "github.com/astrorabbit/astro-bot/internal/db"
	"github.com/astrorabbit/astro-bot/internal/llm"
	"github.com/astrorabbit/astro-bot/internal/platform/config"
	"github.com/astrorabbit/astro-bot/internal/platform/observability"
	"github.com/astrorabbit/astro-bot/internal/quality"
)

// Profile names in scoring.yaml.
const (
	profileZodiacInfo       = "zodiac_info"
	profileBusinessForecast = "business_forecast"
	profileCompatibility    = "compatibility"
	profileDailyForecast    = "daily_forecast"
)

const (
	logFieldProfile     = "profile"
	logFieldCompany     = "company"
	logFieldLocalScore  = "local_score"
	logFieldCriticScore = "critic_score"

	dateLayout = "02.01.2006"
)

// NewsProvider supplies the plain-text news digest injected into daily
// forecasts.
type NewsProvider interface {
	ContextFor(ctx context.Context, industry string) (string, error)
}

// Person is the second party of a compatibility analysis.
type Person struct {
	Name      string
	BirthDate time.Time
	Role      string
}

// Agent owns the generate -> critique -> refine pipeline for all forecast
// kinds. The critic's opinion is relayed into rewrite prompts but never
// gates delivery; only the local score does.
type Agent struct {
	llm           llm.Client
	news          NewsProvider
	target        float64
	maxIterations int
	cache         *analysisCache
	logger        *zerolog.Logger
}

func New(cfg *config.Config, client llm.Client, news NewsProvider, logger *zerolog.Logger) *Agent {
	return &Agent{
		llm:           client,
		news:          news,
		target:        cfg.TargetScore,
		maxIterations: cfg.MaxRefineIterations,
		cache:         newAnalysisCache(cacheTTL),
		logger:        logger,
	}
}

// CompanyZodiac analyzes the influence of the company's zodiac sign.
func (a *Agent) CompanyZodiac(ctx context.Context, company *dbpkg.Company) (string, error) {
	profile, err := quality.LoadProfile(profileZodiacInfo)
	if err != nil {
		return "", err
	}

	prompt := buildPrompt(zodiacIntro, a.companyFacts(company), "", profile)

	return a.run(ctx, profile, company, cacheKey(profileZodiacInfo, company.ID), prompt)
}

// BusinessForecast produces the full business forecast for a company.
func (a *Agent) BusinessForecast(ctx context.Context, company *dbpkg.Company) (string, error) {
	profile, err := quality.LoadProfile(profileBusinessForecast)
	if err != nil {
		return "", err
	}

	prompt := buildPrompt(businessIntro, a.companyFacts(company), "", profile)

	return a.run(ctx, profile, company, cacheKey(profileBusinessForecast, company.ID), prompt)
}

// Compatibility analyzes how a person fits the company astrologically.
func (a *Agent) Compatibility(ctx context.Context, company *dbpkg.Company, person Person) (string, error) {
	profile, err := quality.LoadProfile(profileCompatibility)
	if err != nil {
		return "", err
	}

	facts := a.companyFacts(company)

	personSign := astro.SignFor(person.BirthDate)
	facts = append(facts,
		fmt.Sprintf("Человек: %s, роль: %s", person.Name, person.Role),
		fmt.Sprintf("Знак зодиака человека: %s %s, стихия %s", personSign.Name, personSign.Emoji, personSign.Element),
		fmt.Sprintf("Число имени человека: %d (%s)", astro.NameNumber(person.Name), astro.NumberMeaning(astro.NameNumber(person.Name))),
	)

	prompt := buildPrompt(compatibilityIntro, facts, "", profile)

	key := cacheKey(profileCompatibility, company.ID,
		person.Name, person.Role, person.BirthDate.Format(dateLayout))

	return a.run(ctx, profile, company, key, prompt)
}

// DailyForecast produces the forecast for today, enriched with fresh news
// context when available. A failing news lookup degrades to a forecast
// without news instead of an error.
func (a *Agent) DailyForecast(ctx context.Context, company *dbpkg.Company) (string, error) {
	profile, err := quality.LoadProfile(profileDailyForecast)
	if err != nil {
		return "", err
	}

	extra := ""

	if a.news != nil {
		newsContext, err := a.news.ContextFor(ctx, company.Industry)
		if err != nil {
			a.logger.Warn().Err(err).Str(logFieldCompany, company.Name).Msg("news context unavailable")
		} else if newsContext != "" {
			extra = "Актуальные новости:\n" + newsContext
		}
	}

	facts := a.companyFacts(company)
	facts = append(facts, "Дата прогноза: "+time.Now().Format(dateLayout))

	prompt := buildPrompt(dailyIntro, facts, extra, profile)

	return a.run(ctx, profile, company, cacheKey(profileDailyForecast, company.ID), prompt)
}

// run is the shared pipeline: generate, strip the self-assessment, take the
// critic's advisory opinion, then refine on the local score alone. A fresh
// result for the same inputs is reused until the cache entry expires.
func (a *Agent) run(ctx context.Context, profile *quality.Profile, company *dbpkg.Company, key, prompt string) (string, error) {
	if text, ok := a.cache.get(key); ok {
		a.logger.Debug().
			Str(logFieldProfile, profile.Name).
			Str(logFieldCompany, company.Name).
			Msg("serving cached analysis")

		return text, nil
	}

	start := time.Now()

	raw, err := a.llm.Generate(ctx, prompt)

	observability.LLMRequestDuration.WithLabelValues("generate").Observe(time.Since(start).Seconds())

	if err != nil {
		observability.ForecastsGenerated.WithLabelValues(profile.Name, "error").Inc()

		return "", fmt.Errorf("generate forecast: %w", err)
	}

	body, selfScore := quality.SplitSelfScore(raw)
	if selfScore != "" {
		a.logger.Debug().
			Str(logFieldProfile, profile.Name).
			Str("self_score", selfScore).
			Msg("model self-assessment stripped before critique")
	}

	criticFeedback := a.critique(ctx, profile, body)

	refiner := quality.NewRefiner(profile, a.target, a.maxIterations, a.logger)
	result := refiner.Refine(ctx, body, a.improveFunc(profile, criticFeedback))

	a.logger.Info().
		Str(logFieldProfile, profile.Name).
		Str(logFieldCompany, company.Name).
		Float64(logFieldLocalScore, result.Score).
		Int("iterations", result.Iterations).
		Str("outcome", string(result.Outcome)).
		Msg("forecast ready")

	observability.ForecastsGenerated.WithLabelValues(profile.Name, string(result.Outcome)).Inc()
	observability.ForecastFinalScore.WithLabelValues(profile.Name).Observe(result.Score)
	observability.RefinementIterations.WithLabelValues(profile.Name).Observe(float64(result.Iterations))

	if result.Breakdown.Critical {
		observability.CriticalViolations.WithLabelValues(profile.Name).Inc()
	}

	// A canceled refinement may hold a partial rewrite; never reuse it.
	if result.Outcome != quality.OutcomeCanceled {
		a.cache.put(key, result.Text)
	}

	return result.Text, nil
}

// critique asks the second model for its opinion. The returned feedback is
// relayed into rewrite prompts; the numeric score is logged and dropped.
// Any failure here degrades to an empty remark.
func (a *Agent) critique(ctx context.Context, profile *quality.Profile, body string) string {
	start := time.Now()

	critique, err := a.llm.Critique(ctx, body)

	observability.LLMRequestDuration.WithLabelValues("critique").Observe(time.Since(start).Seconds())

	if err != nil {
		a.logger.Warn().Err(err).Str(logFieldProfile, profile.Name).Msg("critic unavailable")

		return ""
	}

	event := a.logger.Info().Str(logFieldProfile, profile.Name)
	if critique.Score != nil {
		event = event.Float64(logFieldCriticScore, *critique.Score)
	}

	event.Msg("critic opinion recorded")

	return critique.Feedback
}

func (a *Agent) improveFunc(profile *quality.Profile, criticFeedback string) quality.ImproveFunc {
	return func(ctx context.Context, text string, breakdown quality.Breakdown) (string, error) {
		prompt := buildImprovePrompt(text, breakdown, criticFeedback, profile)

		start := time.Now()

		raw, err := a.llm.Generate(ctx, prompt)

		observability.LLMRequestDuration.WithLabelValues("improve").Observe(time.Since(start).Seconds())

		if err != nil {
			return "", err
		}

		body, _ := quality.SplitSelfScore(raw)

		return body, nil
	}
}

// companyFacts renders the company profile into prompt bullet lines,
// including the derived zodiac and numerology attributes.
func (a *Agent) companyFacts(company *dbpkg.Company) []string {
	sign := astro.SignFor(company.RegistrationDate)

	facts := []string{
		"Компания: " + company.Name,
		fmt.Sprintf("Знак зодиака компании: %s %s, стихия %s, управитель %s",
			sign.Name, sign.Emoji, sign.Element, sign.Planet),
		fmt.Sprintf("Число имени компании: %d (%s)",
			astro.NameNumber(company.Name), astro.NumberMeaning(astro.NameNumber(company.Name))),
	}

	if company.Industry != "" {
		facts = append(facts, "Отрасль: "+company.Industry)
	}

	if !company.RegistrationDate.IsZero() {
		facts = append(facts, "Дата регистрации: "+company.RegistrationDate.Format(dateLayout))
	}

	if company.RegistrationPlace != "" {
		facts = append(facts, "Место регистрации: "+company.RegistrationPlace)
	}

	if company.OwnerName != "" {
		fact := "Владелец: " + company.OwnerName
		if !company.OwnerBirthDate.IsZero() {
			ownerSign := astro.SignFor(company.OwnerBirthDate)
			fact += fmt.Sprintf(", знак зодиака %s %s", ownerSign.Name, ownerSign.Emoji)
		}

		facts = append(facts, fact)
	}

	if company.DirectorName != "" {
		fact := "Директор: " + company.DirectorName
		if !company.DirectorBirthDate.IsZero() {
			directorSign := astro.SignFor(company.DirectorBirthDate)
			fact += fmt.Sprintf(", знак зодиака %s %s", directorSign.Name, directorSign.Emoji)
		}

		facts = append(facts, fact)
	}

	return facts
}
