package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	apperrors "github.com/astrorabbit/astro-bot/internal/core/errors"
)

// User is a Telegram account known to the bot. ID is the Telegram chat ID.
type User struct {
	ID           int64
	Username     string
	FirstName    string
	DailyEnabled bool
	CreatedAt    time.Time
	LastSeenAt   time.Time
}

// UpsertUser records a user on first contact and refreshes the profile and
// last-seen timestamp on every later one.
func (db *DB) UpsertUser(ctx context.Context, user *User) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO users (id, username, first_name, last_seen_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			last_seen_at = now()
	`, user.ID, toText(user.Username), toText(user.FirstName))
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}

	return nil
}

func (db *DB) GetUser(ctx context.Context, id int64) (*User, error) {
	var user User

	var username, firstName pgtype.Text

	err := db.Pool.QueryRow(ctx, `
		SELECT id, username, first_name, daily_enabled, created_at, last_seen_at
		FROM users
		WHERE id = $1
	`, id).Scan(&user.ID, &username, &firstName, &user.DailyEnabled, &user.CreatedAt, &user.LastSeenAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}

		return nil, fmt.Errorf("get user: %w", err)
	}

	user.Username = username.String
	user.FirstName = firstName.String

	return &user, nil
}

func (db *DB) SetDailyEnabled(ctx context.Context, userID int64, enabled bool) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE users SET daily_enabled = $2 WHERE id = $1
	`, userID, enabled)
	if err != nil {
		return fmt.Errorf("set daily enabled: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}
