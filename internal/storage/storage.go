// Package storage persists the development prediction service's data.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/julianstephens/moodlit/internal/models"
	"github.com/julianstephens/moodlit/internal/storage/postgres"
	"github.com/julianstephens/moodlit/internal/storage/sqlite"
)

// ErrEmbeddedCredentials is returned for PostgreSQL URLs that carry a password
var ErrEmbeddedCredentials = postgres.ErrEmbeddedCredentials

type Provider interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error

	// Predictions only stores available records; missing days are implicit
	UpsertPredictions(ctx context.Context, records []models.PredictionRecord) (int, error)
	Predictions(ctx context.Context, start, end models.DateKey) ([]models.PredictionRecord, error)
	Prediction(ctx context.Context, date models.DateKey) (models.PredictionRecord, bool, error)

	// Check-ins
	UpsertCheckin(ctx context.Context, userID string, rec models.CheckinRecord) (models.CheckinRecord, error)
	Checkins(ctx context.Context, userID string, start, end models.DateKey) ([]models.CheckinRecord, error)

	// Utils
	SchemaVersion(ctx context.Context) (int, error)
	Describe() string
}

// IsPostgres reports whether dsn names a PostgreSQL database rather than a
// SQLite file.
func IsPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// New returns the provider for dsn without opening it. PostgreSQL URLs are
// validated and must not embed a password.
func New(dsn string) (Provider, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("database path cannot be empty")
	}
	if IsPostgres(dsn) {
		if _, err := postgres.ValidateConnString(dsn); err != nil {
			return nil, err
		}
		return postgres.New(dsn), nil
	}
	if strings.Contains(dsn, "://") {
		return nil, fmt.Errorf("unsupported database url %q", dsn)
	}
	return sqlite.NewStore(dsn), nil
}
