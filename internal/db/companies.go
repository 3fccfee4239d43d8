package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	apperrors "github.com/astrorabbit/astro-bot/internal/core/errors"
)

// Company is a business profile attached to one Telegram user. Birth dates
// of the owner and director are optional; a zero time means unknown.
type Company struct {
	ID                string
	UserID            int64
	Name              string
	Industry          string
	RegistrationDate  time.Time
	RegistrationPlace string
	OwnerName         string
	OwnerBirthDate    time.Time
	DirectorName      string
	DirectorBirthDate time.Time
	Active            bool
	CreatedAt         time.Time
}

const companyColumns = `id, user_id, name, industry, registration_date, registration_place,
	owner_name, owner_birth_date, director_name, director_birth_date, active, created_at`

func (db *DB) SaveCompany(ctx context.Context, company *Company) error {
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO companies (user_id, name, industry, registration_date, registration_place,
			owner_name, owner_birth_date, director_name, director_birth_date, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`, company.UserID, company.Name, toText(company.Industry), toDate(company.RegistrationDate),
		toText(company.RegistrationPlace), toText(company.OwnerName), toDate(company.OwnerBirthDate),
		toText(company.DirectorName), toDate(company.DirectorBirthDate), company.Active,
	).Scan(&company.ID, &company.CreatedAt)
	if err != nil {
		return fmt.Errorf("save company: %w", err)
	}

	return nil
}

func (db *DB) GetCompany(ctx context.Context, userID int64, companyID string) (*Company, error) {
	if _, err := uuid.Parse(companyID); err != nil {
		return nil, fmt.Errorf("%w: bad company id", apperrors.ErrCompanyNotFound)
	}

	row := db.Pool.QueryRow(ctx, `
		SELECT `+companyColumns+`
		FROM companies
		WHERE id = $1 AND user_id = $2
	`, companyID, userID)

	company, err := scanCompany(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrCompanyNotFound
		}

		return nil, fmt.Errorf("get company: %w", err)
	}

	return company, nil
}

func (db *DB) ListCompanies(ctx context.Context, userID int64) ([]Company, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+companyColumns+`
		FROM companies
		WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	var companies []Company

	for rows.Next() {
		company, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("list companies: %w", err)
		}

		companies = append(companies, *company)
	}

	return companies, rows.Err()
}

// ActiveCompany returns the company the user's commands currently act on.
func (db *DB) ActiveCompany(ctx context.Context, userID int64) (*Company, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT `+companyColumns+`
		FROM companies
		WHERE user_id = $1 AND active
		LIMIT 1
	`, userID)

	company, err := scanCompany(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrCompanyNotFound
		}

		return nil, fmt.Errorf("active company: %w", err)
	}

	return company, nil
}

// SetActiveCompany makes one company active and deactivates the user's
// others in the same transaction.
func (db *DB) SetActiveCompany(ctx context.Context, userID int64, companyID string) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("set active company: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `UPDATE companies SET active = false WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("set active company: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE companies SET active = true WHERE id = $1 AND user_id = $2
	`, companyID, userID)
	if err != nil {
		return fmt.Errorf("set active company: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return apperrors.ErrCompanyNotFound
	}

	return tx.Commit(ctx)
}

func (db *DB) DeleteCompany(ctx context.Context, userID int64, companyID string) error {
	tag, err := db.Pool.Exec(ctx, `
		DELETE FROM companies WHERE id = $1 AND user_id = $2
	`, companyID, userID)
	if err != nil {
		return fmt.Errorf("delete company: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return apperrors.ErrCompanyNotFound
	}

	return nil
}

// ListDailySubscribers returns the active company of every user who has the
// daily forecast enabled.
func (db *DB) ListDailySubscribers(ctx context.Context) ([]Company, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+qualifiedCompanyColumns+`
		FROM companies c
		JOIN users u ON u.id = c.user_id
		WHERE c.active AND u.daily_enabled
		ORDER BY c.user_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list daily subscribers: %w", err)
	}
	defer rows.Close()

	var companies []Company

	for rows.Next() {
		company, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("list daily subscribers: %w", err)
		}

		companies = append(companies, *company)
	}

	return companies, rows.Err()
}

const qualifiedCompanyColumns = `c.id, c.user_id, c.name, c.industry, c.registration_date,
	c.registration_place, c.owner_name, c.owner_birth_date, c.director_name,
	c.director_birth_date, c.active, c.created_at`

func scanCompany(row pgx.Row) (*Company, error) {
	var company Company

	var industry, regPlace, ownerName, directorName pgtype.Text

	var regDate, ownerBirth, directorBirth pgtype.Date

	err := row.Scan(&company.ID, &company.UserID, &company.Name, &industry, &regDate, &regPlace,
		&ownerName, &ownerBirth, &directorName, &directorBirth, &company.Active, &company.CreatedAt)
	if err != nil {
		return nil, err
	}

	company.Industry = industry.String
	company.RegistrationPlace = regPlace.String
	company.OwnerName = ownerName.String
	company.DirectorName = directorName.String
	company.RegistrationDate = regDate.Time
	company.OwnerBirthDate = ownerBirth.Time
	company.DirectorBirthDate = directorBirth.Time

	return &company, nil
}
