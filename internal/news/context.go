package news

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	dbpkg "github.com/astrorabbit/astro-bot/internal/db"
)

const (
	// contextWindow bounds how old an article may be to appear in a daily
	// forecast.
	contextWindow = 48 * time.Hour

	contextSummaryRunes = 200
)

// ContextStore is the query surface the provider needs.
type ContextStore interface {
	FindSimilarNews(ctx context.Context, embedding []float32, minPublishedAt time.Time, limit int) ([]dbpkg.NewsItem, error)
	RecentNews(ctx context.Context, limit int) ([]dbpkg.NewsItem, error)
}

// Provider assembles a plain-text news digest for prompt injection, ranked
// by similarity to the company's industry.
type Provider struct {
	store    ContextStore
	embedder Embedder
	items    int
	logger   *zerolog.Logger
}

func NewProvider(store ContextStore, embedder Embedder, items int, logger *zerolog.Logger) *Provider {
	return &Provider{
		store:    store,
		embedder: embedder,
		items:    items,
		logger:   logger,
	}
}

// ContextFor returns up to the configured number of articles relevant to the
// industry, one per line. Falls back to plain recency when the industry is
// empty or embedding fails, and returns an empty string when the archive has
// nothing fresh; the forecast still renders without news.
func (p *Provider) ContextFor(ctx context.Context, industry string) (string, error) {
	items, err := p.rankedItems(ctx, industry)
	if err != nil {
		return "", err
	}

	lines := make([]string, 0, len(items))

	for _, item := range items {
		summary := item.Summary

		runes := []rune(summary)
		if len(runes) > contextSummaryRunes {
			summary = string(runes[:contextSummaryRunes]) + "..."
		}

		line := fmt.Sprintf("— %s (%s)", item.Title, item.Source)
		if summary != "" {
			line += ": " + summary
		}

		lines = append(lines, line)
	}

	return strings.Join(lines, "\n"), nil
}

func (p *Provider) rankedItems(ctx context.Context, industry string) ([]dbpkg.NewsItem, error) {
	if industry != "" {
		query := "Новости отрасли: " + industry

		embedding, err := p.embedder.GetEmbedding(ctx, query)
		if err != nil {
			p.logger.Warn().Err(err).Msg("industry embedding failed, falling back to recency")
		} else {
			items, err := p.store.FindSimilarNews(ctx, embedding, time.Now().Add(-contextWindow), p.items)
			if err != nil {
				return nil, fmt.Errorf("news context: %w", err)
			}

			if len(items) > 0 {
				return items, nil
			}
		}
	}

	items, err := p.store.RecentNews(ctx, p.items)
	if err != nil {
		return nil, fmt.Errorf("news context: %w", err)
	}

	return items, nil
}
