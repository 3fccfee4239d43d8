// Package llm provides the outbound language-model transport: text
// generation, advisory critique and embeddings, with rate limiting and a
// circuit breaker in front of the upstream API.
package llm

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	apperrors "github.com/astrorabbit/astro-bot/internal/core/errors"
	"github.com/astrorabbit/astro-bot/internal/platform/config"
)

// Critic score bounds.
const (
	criticScoreMin = 1.0
	criticScoreMax = 10.0
)

// llmAPIKeyMock selects the offline client.
const llmAPIKeyMock = "mock"

// Critique is the advisory second opinion on a generated answer. Score is
// nil when the critic's reply carried no parseable number; the pipeline
// treats that as "no opinion" rather than an error.
type Critique struct {
	Score    *float64
	Feedback string
}

// Client is the language-model capability surface the forecast pipeline
// depends on.
type Client interface {
	// Generate produces an answer for the given prompt using the main model.
	Generate(ctx context.Context, prompt string) (string, error)
	// Critique asks the critic model to rate an answer on a 1-10 scale.
	Critique(ctx context.Context, text string) (Critique, error)
	// GetEmbedding returns the embedding vector for the given text.
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
}

// NewClient selects the real or mock client based on configuration.
func NewClient(cfg *config.Config, logger *zerolog.Logger) Client {
	if cfg.LLMAPIKey == "" || cfg.LLMAPIKey == llmAPIKeyMock {
		logger.Warn().Msg("LLM API key is empty or mock, using offline mock client")

		return NewMock()
	}

	return NewOpenAI(cfg, logger)
}

var criticNumberRe = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

// ParseCriticScore extracts the first number from a critic reply, accepting
// a comma decimal separator, and clamps it to the 1-10 scale. Returns
// ErrScoreNotFound when the reply carries no number at all.
func ParseCriticScore(reply string) (float64, error) {
	match := criticNumberRe.FindString(reply)
	if match == "" {
		return 0, apperrors.ErrScoreNotFound
	}

	score, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", "."), 64)
	if err != nil {
		return 0, apperrors.ErrScoreNotFound
	}

	if score < criticScoreMin {
		score = criticScoreMin
	}

	if score > criticScoreMax {
		score = criticScoreMax
	}

	return score, nil
}
