// Package news ingests business news from RSS feeds and serves ranked
// context snippets for daily forecasts.
package news

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/go-shiori/go-readability"
	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"

	dbpkg "github.com/astrorabbit/astro-bot/internal/db"
	"github.com/astrorabbit/astro-bot/internal/platform/config"
	"github.com/astrorabbit/astro-bot/internal/platform/observability"
)

const (
	maxFeedEntries = 20
	maxBodySize    = 5 * 1024 * 1024

	// minSummaryRunes is the threshold below which a feed entry's own
	// description is considered too thin and the article body is fetched.
	minSummaryRunes = 120
	maxSummaryRunes = 600

	retentionWindow = 14 * 24 * time.Hour

	logFieldFeed = "feed"
	logFieldURL  = "url"
)

// Store is the persistence surface the fetcher needs.
type Store interface {
	SaveNewsItem(ctx context.Context, item *dbpkg.NewsItem, embedding []float32) error
	PruneNews(ctx context.Context, olderThan time.Time) (int64, error)
}

// Embedder produces embedding vectors for similarity search.
type Embedder interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Fetcher polls configured RSS feeds and archives entries with embeddings.
type Fetcher struct {
	feeds        []string
	fetchTimeout time.Duration
	parser       *gofeed.Parser
	httpClient   *http.Client
	store        Store
	embedder     Embedder
	logger       *zerolog.Logger
}

func NewFetcher(cfg *config.Config, store Store, embedder Embedder, logger *zerolog.Logger) *Fetcher {
	return &Fetcher{
		feeds:        cfg.NewsFeeds,
		fetchTimeout: cfg.NewsFetchTimeout,
		parser:       gofeed.NewParser(),
		httpClient:   &http.Client{Timeout: cfg.NewsFetchTimeout},
		store:        store,
		embedder:     embedder,
		logger:       logger,
	}
}

// Poll runs one ingestion pass over every configured feed. Per-feed and
// per-entry failures are logged and skipped; the pass itself only fails on
// context cancellation.
func (f *Fetcher) Poll(ctx context.Context) error {
	for _, feedURL := range f.feeds {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("news poll: %w", err)
		}

		if err := f.pollFeed(ctx, feedURL); err != nil {
			f.logger.Warn().Err(err).Str(logFieldFeed, feedURL).Msg("feed poll failed")
		}
	}

	if pruned, err := f.store.PruneNews(ctx, time.Now().Add(-retentionWindow)); err != nil {
		f.logger.Warn().Err(err).Msg("news prune failed")
	} else if pruned > 0 {
		f.logger.Debug().Int64("pruned", pruned).Msg("pruned old news items")
	}

	return nil
}

func (f *Fetcher) pollFeed(ctx context.Context, feedURL string) error {
	feedCtx, cancel := context.WithTimeout(ctx, f.fetchTimeout)
	defer cancel()

	feed, err := f.parser.ParseURLWithContext(feedURL, feedCtx)
	if err != nil {
		return fmt.Errorf("parse feed: %w", err)
	}

	entries := feed.Items
	if len(entries) > maxFeedEntries {
		entries = entries[:maxFeedEntries]
	}

	for _, entry := range entries {
		if entry.Link == "" || entry.Title == "" {
			continue
		}

		item := f.itemFromEntry(feed, entry)

		if len([]rune(item.Summary)) < minSummaryRunes {
			f.enrichSummary(ctx, item)
		}

		embedding, err := f.embedder.GetEmbedding(ctx, item.Title+"\n"+item.Summary)
		if err != nil {
			f.logger.Warn().Err(err).Str(logFieldURL, item.URL).Msg("embedding failed, saving without one")

			embedding = nil
		}

		if err := f.store.SaveNewsItem(ctx, item, embedding); err != nil {
			f.logger.Warn().Err(err).Str(logFieldURL, item.URL).Msg("save news item failed")

			continue
		}

		observability.NewsItemsIngested.Inc()
	}

	return nil
}

func (f *Fetcher) itemFromEntry(feed *gofeed.Feed, entry *gofeed.Item) *dbpkg.NewsItem {
	published := time.Now()

	switch {
	case entry.PublishedParsed != nil:
		published = *entry.PublishedParsed
	case entry.Published != "":
		if parsed, err := dateparse.ParseAny(entry.Published); err == nil {
			published = parsed
		}
	}

	summary := entry.Description
	if summary == "" {
		summary = entry.Content
	}

	return &dbpkg.NewsItem{
		Title:       strings.TrimSpace(entry.Title),
		URL:         entry.Link,
		Source:      strings.TrimSpace(feed.Title),
		Summary:     cleanSummary(summary),
		PublishedAt: published,
	}
}

// enrichSummary fetches the article page and extracts readable text when the
// feed entry carried no usable description. Failures leave the item as is.
func (f *Fetcher) enrichSummary(ctx context.Context, item *dbpkg.NewsItem) {
	pageURL, err := url.Parse(item.URL)
	if err != nil {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.URL, nil)
	if err != nil {
		return
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		f.logger.Debug().Err(err).Str(logFieldURL, item.URL).Msg("article fetch failed")

		return
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, maxBodySize), pageURL)
	if err != nil {
		return
	}

	if text := cleanSummary(article.TextContent); len([]rune(text)) > len([]rune(item.Summary)) {
		item.Summary = text
	}
}

var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

// cleanSummary strips markup and collapses whitespace, capping the summary
// so prompts stay bounded.
func cleanSummary(s string) string {
	s = htmlTagRe.ReplaceAllString(s, " ")
	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxSummaryRunes {
		s = string(runes[:maxSummaryRunes]) + "..."
	}

	return s
}
