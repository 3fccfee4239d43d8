package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbpkg "github.com/astrorabbit/astro-bot/internal/db"
	"github.com/astrorabbit/astro-bot/internal/platform/config"
)

type fakeStore struct {
	saved   []dbpkg.NewsItem
	similar []dbpkg.NewsItem
	recent  []dbpkg.NewsItem

	similarCalled bool
	recentCalled  bool
}

func (s *fakeStore) SaveNewsItem(_ context.Context, item *dbpkg.NewsItem, _ []float32) error {
	s.saved = append(s.saved, *item)

	return nil
}

func (s *fakeStore) PruneNews(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func (s *fakeStore) FindSimilarNews(_ context.Context, _ []float32, _ time.Time, _ int) ([]dbpkg.NewsItem, error) {
	s.similarCalled = true

	return s.similar, nil
}

func (s *fakeStore) RecentNews(_ context.Context, _ int) ([]dbpkg.NewsItem, error) {
	s.recentCalled = true

	return s.recent, nil
}

type fakeEmbedder struct {
	err error
}

func (e *fakeEmbedder) GetEmbedding(_ context.Context, _ string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}

	return []float32{0.1, 0.2}, nil
}

const testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
<title>Деловые новости</title>
<item>
  <title>Рынок растёт</title>
  <link>https://example.com/a</link>
  <description>Фондовый рынок показал рост на фоне позитивных данных по экономике страны и укрепления национальной валюты в течение всей недели.</description>
  <pubDate>Mon, 24 Aug 2026 10:00:00 GMT</pubDate>
</item>
<item>
  <title>Без ссылки</title>
  <description>Эта запись должна быть пропущена.</description>
</item>
</channel></rss>`

func testLogger() *zerolog.Logger {
	nop := zerolog.Nop()

	return &nop
}

func TestFetcherPoll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(testFeed))
	}))
	defer srv.Close()

	store := &fakeStore{}
	cfg := &config.Config{NewsFeeds: []string{srv.URL}, NewsFetchTimeout: 5 * time.Second}

	f := NewFetcher(cfg, store, &fakeEmbedder{}, testLogger())

	require.NoError(t, f.Poll(context.Background()))

	require.Len(t, store.saved, 1)
	item := store.saved[0]
	assert.Equal(t, "Рынок растёт", item.Title)
	assert.Equal(t, "https://example.com/a", item.URL)
	assert.Equal(t, "Деловые новости", item.Source)
	assert.Contains(t, item.Summary, "Фондовый рынок")
	assert.Equal(t, 2026, item.PublishedAt.Year())
}

func TestCleanSummary(t *testing.T) {
	in := "<p>Первый  абзац</p>\n<br/>и <b>второй</b>"

	assert.Equal(t, "Первый абзац и второй", cleanSummary(in))
}

func TestCleanSummaryTruncates(t *testing.T) {
	out := cleanSummary(strings.Repeat("а", maxSummaryRunes+50))

	assert.Equal(t, maxSummaryRunes+3, len([]rune(out)))
	assert.True(t, strings.HasSuffix(out, "..."))
}

func TestContextForRanksByIndustry(t *testing.T) {
	store := &fakeStore{
		similar: []dbpkg.NewsItem{
			{Title: "Отраслевая новость", Source: "РБК", Summary: "Краткое содержание."},
		},
	}

	p := NewProvider(store, &fakeEmbedder{}, 5, testLogger())

	out, err := p.ContextFor(context.Background(), "финтех")

	require.NoError(t, err)
	assert.True(t, store.similarCalled)
	assert.False(t, store.recentCalled)
	assert.Contains(t, out, "Отраслевая новость")
	assert.Contains(t, out, "РБК")
}

func TestContextForFallsBackToRecency(t *testing.T) {
	store := &fakeStore{
		recent: []dbpkg.NewsItem{
			{Title: "Общая новость", Source: "Ведомости"},
		},
	}

	p := NewProvider(store, &fakeEmbedder{err: context.DeadlineExceeded}, 5, testLogger())

	out, err := p.ContextFor(context.Background(), "финтех")

	require.NoError(t, err)
	assert.True(t, store.recentCalled)
	assert.Contains(t, out, "Общая новость")
}

func TestContextForEmptyArchive(t *testing.T) {
	p := NewProvider(&fakeStore{}, &fakeEmbedder{}, 5, testLogger())

	out, err := p.ContextFor(context.Background(), "")

	require.NoError(t, err)
	assert.Empty(t, out)
}
