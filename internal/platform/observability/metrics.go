package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ForecastsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "astro_forecasts_generated_total",
		Help: "The total number of generated forecasts by profile and outcome",
	}, []string{"profile", "outcome"})

	ForecastFinalScore = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "astro_forecast_final_score",
		Help:    "Final local quality score of delivered forecasts",
		Buckets: []float64{2, 4, 5, 6, 7, 8, 8.5, 9, 9.5, 10},
	}, []string{"profile"})

	RefinementIterations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "astro_refinement_iterations",
		Help:    "Number of refinement iterations per forecast",
		Buckets: []float64{0, 1, 2, 3, 4, 5},
	}, []string{"profile"})

	CriticalViolations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "astro_critical_violations_total",
		Help: "Forecasts delivered with a critical formatting violation",
	}, []string{"profile"})

	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "astro_llm_request_duration_seconds",
		Help:    "Duration of LLM requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	BotCommands = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "astro_bot_commands_total",
		Help: "Bot commands received by command name",
	}, []string{"command"})

	NewsItemsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "astro_news_items_ingested_total",
		Help: "The total number of ingested news items",
	})

	DailyBroadcasts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "astro_daily_broadcasts_total",
		Help: "Daily forecast deliveries by status",
	}, []string{"status"})
)
