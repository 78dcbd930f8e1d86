package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/julianstephens/moodlit/internal/constants"
	"github.com/julianstephens/moodlit/internal/logger"
	"github.com/julianstephens/moodlit/internal/migration"
	"github.com/julianstephens/moodlit/internal/models"
	"github.com/julianstephens/moodlit/migrations"
)

var (
	ErrInvalidConnectionString = errors.New("invalid PostgreSQL connection string")
	ErrEmbeddedCredentials     = errors.New("connection string must not contain a password")
)

// Store keeps predictions and check-ins in the moodlit schema of a
// PostgreSQL database.
type Store struct {
	connStr string
	db      *sql.DB
}

func New(connStr string) *Store {
	return &Store{connStr: withSearchPath(connStr)}
}

// withSearchPath points unqualified table names at the moodlit schema unless
// the URL already picks one.
func withSearchPath(connStr string) string {
	u, err := url.Parse(connStr)
	if err != nil {
		logger.Warn("Failed to parse Postgres connection string", "error", err)
		return connStr
	}
	q := u.Query()
	if q.Get("search_path") == "" {
		q.Set("search_path", constants.AppName)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// ValidateConnString checks that connStr is a complete PostgreSQL URL with no
// password. Passwords belong in PGPASSWORD or .pgpass.
func ValidateConnString(connStr string) (bool, error) {
	if strings.TrimSpace(connStr) == "" {
		return false, fmt.Errorf("%w: connection string cannot be empty", ErrInvalidConnectionString)
	}
	if _, err := pq.NewConnector(connStr); err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidConnectionString, err)
	}
	u, err := url.Parse(connStr)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidConnectionString, err)
	}
	if _, isSet := u.User.Password(); isSet {
		return false, ErrEmbeddedCredentials
	}
	if u.Query().Get("password") != "" {
		return false, ErrEmbeddedCredentials
	}
	if u.Host == "" && u.User == nil && (u.Path == "" || u.Path == "/") {
		return false, fmt.Errorf("%w: connection URL is incomplete", ErrInvalidConnectionString)
	}
	return true, nil
}

func hasSSLMode(connStr string) bool {
	u, err := url.Parse(connStr)
	return err == nil && u.Query().Has("sslmode")
}

// Init connects, creates the schema if needed and applies migrations.
func (s *Store) Init(ctx context.Context) error {
	if s.db != nil {
		return nil
	}
	db, err := sql.Open("postgres", s.connStr)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		if strings.Contains(err.Error(), "SSL is not enabled on the server") && !hasSSLMode(s.connStr) {
			return fmt.Errorf("failed to connect to database: %w (hint: try adding ?sslmode=disable to your connection string)", err)
		}
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+constants.AppName); err != nil {
		db.Close()
		return fmt.Errorf("failed to create schema: %w", err)
	}

	sub, err := fs.Sub(migrations.FS, "postgres")
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to access postgres migrations: %w", err)
	}
	runner := migration.NewRunner(db, sub, migration.Postgres)
	if _, err := runner.Apply(ctx, func(msg string) { logger.Info(msg) }); err != nil {
		db.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	s.db = db
	return nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Describe returns a non-sensitive identifier instead of the connection string.
func (s *Store) Describe() string {
	return "postgresql"
}

func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	sub, err := fs.Sub(migrations.FS, "postgres")
	if err != nil {
		return 0, err
	}
	return migration.NewRunner(s.db, sub, migration.Postgres).CurrentVersion(ctx)
}

func (s *Store) UpsertPredictions(ctx context.Context, records []models.PredictionRecord) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO predictions (date, predicted_mood, confidence, explanation, model_version)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (date) DO UPDATE SET
			predicted_mood = EXCLUDED.predicted_mood,
			confidence = EXCLUDED.confidence,
			explanation = EXCLUDED.explanation,
			model_version = EXCLUDED.model_version
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	n := 0
	for _, r := range records {
		if !r.Available() {
			continue
		}
		explanation := r.Explanation
		if explanation == nil {
			explanation = []string{}
		}
		if _, err := stmt.ExecContext(ctx, r.Date.String(), r.PredictedMood, string(r.Confidence), pq.Array(explanation), r.ModelVersion); err != nil {
			return 0, fmt.Errorf("failed to save prediction for %s: %w", r.Date, err)
		}
		n++
	}
	return n, tx.Commit()
}

const selectPrediction = `
	SELECT to_char(date, 'YYYY-MM-DD'), predicted_mood, confidence, explanation, model_version
	FROM predictions`

func (s *Store) Predictions(ctx context.Context, start, end models.DateKey) ([]models.PredictionRecord, error) {
	rows, err := s.db.QueryContext(ctx, selectPrediction+` WHERE date BETWEEN $1 AND $2 ORDER BY date`, start.String(), end.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.PredictionRecord
	for rows.Next() {
		r, err := scanPrediction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Prediction(ctx context.Context, date models.DateKey) (models.PredictionRecord, bool, error) {
	r, err := scanPrediction(s.db.QueryRowContext(ctx, selectPrediction+` WHERE date = $1`, date.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return models.PredictionRecord{}, false, nil
	}
	if err != nil {
		return models.PredictionRecord{}, false, err
	}
	return r, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPrediction(row scanner) (models.PredictionRecord, error) {
	var (
		date, confidence string
		r                models.PredictionRecord
	)
	if err := row.Scan(&date, &r.PredictedMood, &confidence, pq.Array(&r.Explanation), &r.ModelVersion); err != nil {
		return r, err
	}
	key, err := models.ParseDateKey(date)
	if err != nil {
		return r, err
	}
	r.Date = key
	r.Status = models.StatusAvailable
	r.Confidence = models.Confidence(confidence)
	if r.Explanation == nil {
		r.Explanation = []string{}
	}
	return r, nil
}

func (s *Store) UpsertCheckin(ctx context.Context, userID string, rec models.CheckinRecord) (models.CheckinRecord, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO mood_labels (user_id, date, mood, note, created_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (user_id, date) DO UPDATE SET
			mood = EXCLUDED.mood,
			note = EXCLUDED.note,
			created_at = EXCLUDED.created_at
		RETURNING created_at
	`, userID, rec.Date.String(), rec.Mood, nullNote(rec.Note)).Scan(&rec.CreatedAt)
	if err != nil {
		return models.CheckinRecord{}, fmt.Errorf("failed to save check-in for %s: %w", rec.Date, err)
	}
	return rec, nil
}

func (s *Store) Checkins(ctx context.Context, userID string, start, end models.DateKey) ([]models.CheckinRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT to_char(date, 'YYYY-MM-DD'), mood, note, created_at
		FROM mood_labels WHERE user_id = $1 AND date BETWEEN $2 AND $3 ORDER BY date
	`, userID, start.String(), end.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.CheckinRecord
	for rows.Next() {
		var (
			date string
			note sql.NullString
			r    models.CheckinRecord
		)
		if err := rows.Scan(&date, &r.Mood, &note, &r.CreatedAt); err != nil {
			return nil, err
		}
		if r.Date, err = models.ParseDateKey(date); err != nil {
			return nil, err
		}
		r.Note = note.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullNote(note string) sql.NullString {
	if models.NotePtr(note) == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: note, Valid: true}
}
