package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv      string  `env:"APP_ENV" envDefault:"local"`
	PostgresDSN string  `env:"POSTGRES_DSN,required"`
	BotToken    string  `env:"BOT_TOKEN,required"`
	AdminIDs    []int64 `env:"ADMIN_IDS" envSeparator:","`

	LLMAPIKey   string `env:"LLM_API_KEY"`
	LLMModel    string `env:"LLM_MODEL" envDefault:"gpt-4o"`
	CriticModel string `env:"CRITIC_MODEL" envDefault:"gpt-4o-mini"`

	TargetScore         float64       `env:"TARGET_SCORE" envDefault:"9.0"`
	MaxRefineIterations int           `env:"MAX_REFINE_ITERATIONS" envDefault:"3"`
	GenerationTimeout   time.Duration `env:"GENERATION_TIMEOUT" envDefault:"90s"`
	RateLimitRPS        int           `env:"RATE_LIMIT_RPS" envDefault:"1"`

	DailyForecastTime string `env:"DAILY_FORECAST_TIME" envDefault:"09:00"`
	DailyForecastTZ   string `env:"DAILY_FORECAST_TZ" envDefault:"Europe/Moscow"`

	NewsFeeds        []string      `env:"NEWS_FEEDS" envSeparator:","`
	NewsPollInterval time.Duration `env:"NEWS_POLL_INTERVAL" envDefault:"30m"`
	NewsFetchTimeout time.Duration `env:"NEWS_FETCH_TIMEOUT" envDefault:"30s"`
	NewsContextItems int           `env:"NEWS_CONTEXT_ITEMS" envDefault:"5"`

	HealthPort int `env:"HEALTH_PORT" envDefault:"8080"`

	// Database pool
	DBMaxConnections    int32         `env:"DB_MAX_CONNECTIONS" envDefault:"10"`
	DBMinConnections    int32         `env:"DB_MIN_CONNECTIONS" envDefault:"2"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`
}

func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	return cfg, nil
}
