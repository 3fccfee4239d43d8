package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pgvector/pgvector-go"
)

// NewsItem is one ingested article with its embedding for similarity search.
type NewsItem struct {
	ID          string
	Title       string
	URL         string
	Source      string
	Summary     string
	PublishedAt time.Time
	CreatedAt   time.Time
}

// SaveNewsItem inserts an article, ignoring duplicates by URL. The embedding
// may be nil when the embedding provider was unavailable; such items are
// still listed by recency but excluded from similarity search.
func (db *DB) SaveNewsItem(ctx context.Context, item *NewsItem, embedding []float32) error {
	var vec interface{}
	if embedding != nil {
		vec = pgvector.NewVector(embedding)
	}

	_, err := db.Pool.Exec(ctx, `
		INSERT INTO news_items (title, url, source, summary, published_at, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (url) DO NOTHING
	`, item.Title, item.URL, toText(item.Source), toText(item.Summary),
		toTimestamptz(item.PublishedAt), vec)
	if err != nil {
		return fmt.Errorf("save news item: %w", err)
	}

	return nil
}

// FindSimilarNews ranks stored articles by cosine distance to the query
// embedding, newest window first filtered by minPublishedAt.
func (db *DB) FindSimilarNews(ctx context.Context, embedding []float32, minPublishedAt time.Time, limit int) ([]NewsItem, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, title, url, source, summary, published_at, created_at
		FROM news_items
		WHERE embedding IS NOT NULL AND published_at > $1
		ORDER BY embedding <=> $2::vector
		LIMIT $3
	`, toTimestamptz(minPublishedAt), pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("find similar news: %w", err)
	}
	defer rows.Close()

	return collectNews(rows)
}

// RecentNews lists the freshest articles regardless of embeddings.
func (db *DB) RecentNews(ctx context.Context, limit int) ([]NewsItem, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, title, url, source, summary, published_at, created_at
		FROM news_items
		ORDER BY published_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent news: %w", err)
	}
	defer rows.Close()

	return collectNews(rows)
}

// PruneNews drops articles older than the retention window.
func (db *DB) PruneNews(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := db.Pool.Exec(ctx, `
		DELETE FROM news_items WHERE published_at < $1
	`, toTimestamptz(olderThan))
	if err != nil {
		return 0, fmt.Errorf("prune news: %w", err)
	}

	return tag.RowsAffected(), nil
}

func collectNews(rows pgx.Rows) ([]NewsItem, error) {
	var items []NewsItem

	for rows.Next() {
		var item NewsItem

		var source, summary pgtype.Text

		var published pgtype.Timestamptz

		if err := rows.Scan(&item.ID, &item.Title, &item.URL, &source, &summary, &published, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan news item: %w", err)
		}

		item.Source = source.String
		item.Summary = summary.String
		item.PublishedAt = published.Time

		items = append(items, item)
	}

	return items, rows.Err()
}
