package bot

import (
	"context"

	dbpkg "github.com/astrorabbit/astro-bot/internal/db"
	"github.com/astrorabbit/astro-bot/internal/forecast"
)

// Repository is the persistence surface the bot depends on.
type Repository interface {
	UpsertUser(ctx context.Context, user *dbpkg.User) error
	GetUser(ctx context.Context, id int64) (*dbpkg.User, error)
	SetDailyEnabled(ctx context.Context, userID int64, enabled bool) error

	SaveCompany(ctx context.Context, company *dbpkg.Company) error
	GetCompany(ctx context.Context, userID int64, companyID string) (*dbpkg.Company, error)
	ListCompanies(ctx context.Context, userID int64) ([]dbpkg.Company, error)
	ActiveCompany(ctx context.Context, userID int64) (*dbpkg.Company, error)
	SetActiveCompany(ctx context.Context, userID int64, companyID string) error
	DeleteCompany(ctx context.Context, userID int64, companyID string) error
}

// Forecaster is the generation surface the bot depends on.
type Forecaster interface {
	CompanyZodiac(ctx context.Context, company *dbpkg.Company) (string, error)
	BusinessForecast(ctx context.Context, company *dbpkg.Company) (string, error)
	Compatibility(ctx context.Context, company *dbpkg.Company, person forecast.Person) (string, error)
	DailyForecast(ctx context.Context, company *dbpkg.Company) (string, error)
}
