package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	apperrors "github.com/astrorabbit/astro-bot/internal/core/errors"
	"github.com/astrorabbit/astro-bot/internal/platform/config"
)

const (
	circuitBreakerThreshold = 5
	circuitBreakerTimeout   = 1 * time.Minute
	rateLimiterBurst        = 5

	generateTemperature = 0.8
	critiqueTemperature = 0.2
	generateMaxTokens   = 2500
	critiqueMaxTokens   = 400

	errRateLimiter          = "rate limiter: %w"
	errOpenAIChatCompletion = "openai chat completion: %w"
)

// criticSystemPrompt frames the second model as an independent reviewer. The
// reply must start with a bare number so the score can be parsed reliably.
const criticSystemPrompt = `Ты строгий редактор деловых астрологических прогнозов.
Оцени ответ по шкале от 1 до 10: полнота разделов, конкретика, деловой тон,
отсутствие воды. Начни ответ с одного числа (оценки), затем с новой строки
кратко перечисли главные недостатки.`

type openaiClient struct {
	cfg         *config.Config
	client      *openai.Client
	logger      *zerolog.Logger
	rateLimiter *rate.Limiter

	// Circuit breaker state
	consecutiveFailures int
	circuitOpenUntil    time.Time
	mu                  sync.Mutex
}

// NewOpenAI creates the production client. Generation and critique may use
// different models; both share one rate limiter and circuit breaker because
// they hit the same upstream account.
func NewOpenAI(cfg *config.Config, logger *zerolog.Logger) Client {
	return &openaiClient{
		cfg:         cfg,
		client:      openai.NewClient(cfg.LLMAPIKey),
		logger:      logger,
		rateLimiter: rate.NewLimiter(rate.Limit(float64(cfg.RateLimitRPS)), rateLimiterBurst),
	}
}

func (c *openaiClient) checkCircuit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if time.Now().Before(c.circuitOpenUntil) {
		return fmt.Errorf("%w until %v", apperrors.ErrCircuitBreakerOpen, c.circuitOpenUntil)
	}

	return nil
}

func (c *openaiClient) recordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.consecutiveFailures = 0
}

func (c *openaiClient) recordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.consecutiveFailures++
	if c.consecutiveFailures >= circuitBreakerThreshold {
		c.circuitOpenUntil = time.Now().Add(circuitBreakerTimeout)
		c.logger.Warn().
			Int("consecutive_failures", c.consecutiveFailures).
			Time("open_until", c.circuitOpenUntil).
			Msg("Circuit breaker opened")
	}
}

func (c *openaiClient) Generate(ctx context.Context, prompt string) (string, error) {
	content, err := c.chatCompletion(ctx, c.cfg.LLMModel, openai.ChatCompletionRequest{
		Temperature: generateTemperature,
		MaxTokens:   generateMaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(content) == "" {
		return "", apperrors.ErrEmptyResponse
	}

	return strings.TrimSpace(content), nil
}

func (c *openaiClient) Critique(ctx context.Context, text string) (Critique, error) {
	content, err := c.chatCompletion(ctx, c.cfg.CriticModel, openai.ChatCompletionRequest{
		Temperature: critiqueTemperature,
		MaxTokens:   critiqueMaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: criticSystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: text,
			},
		},
	})
	if err != nil {
		return Critique{}, err
	}

	result := Critique{Feedback: strings.TrimSpace(content)}

	score, err := ParseCriticScore(content)
	if err != nil {
		// A critic reply without a number is advisory noise, not a failure.
		c.logger.Warn().Str("reply", content).Msg("critic reply carried no score")

		return result, nil
	}

	result.Score = &score

	return result, nil
}

func (c *openaiClient) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	if err := c.checkCircuit(); err != nil {
		return nil, err
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf(errRateLimiter, err)
	}

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.SmallEmbedding3,
	})
	if err != nil {
		c.recordFailure()

		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}

	c.recordSuccess()

	if len(resp.Data) == 0 {
		return nil, apperrors.ErrEmptyResponse
	}

	return resp.Data[0].Embedding, nil
}

func (c *openaiClient) chatCompletion(ctx context.Context, model string, req openai.ChatCompletionRequest) (string, error) {
	if err := c.checkCircuit(); err != nil {
		return "", err
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf(errRateLimiter, err)
	}

	req.Model = model

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		c.recordFailure()

		return "", fmt.Errorf(errOpenAIChatCompletion, err)
	}

	c.recordSuccess()

	if len(resp.Choices) == 0 {
		return "", apperrors.ErrEmptyResponse
	}

	return resp.Choices[0].Message.Content, nil
}
