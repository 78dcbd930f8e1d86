package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/moodlit/internal/logger"
	"github.com/julianstephens/moodlit/internal/migration"
	"github.com/julianstephens/moodlit/internal/models"
	"github.com/julianstephens/moodlit/migrations"
)

// Store keeps predictions and check-ins in a local SQLite file.
type Store struct {
	path string
	db   *sql.DB
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Init opens the database, creating it if needed, and applies migrations.
func (s *Store) Init(ctx context.Context) error {
	if s.db != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY under concurrent requests
	db.SetMaxOpenConns(1)

	sub, err := fs.Sub(migrations.FS, "sqlite")
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to access sqlite migrations: %w", err)
	}
	runner := migration.NewRunner(db, sub, migration.SQLite)
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

// Describe returns the database path.
func (s *Store) Describe() string {
	return s.path
}

// SchemaVersion returns the applied migration version.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	sub, err := fs.Sub(migrations.FS, "sqlite")
	if err != nil {
		return 0, err
	}
	return migration.NewRunner(s.db, sub, migration.SQLite).CurrentVersion(ctx)
}

// UpsertPredictions inserts or replaces predictions by date. Records that are
// not available are skipped.
func (s *Store) UpsertPredictions(ctx context.Context, records []models.PredictionRecord) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO predictions (date, predicted_mood, confidence, explanation, model_version, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			predicted_mood = excluded.predicted_mood,
			confidence = excluded.confidence,
			explanation = excluded.explanation,
			model_version = excluded.model_version
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	n := 0
	for _, r := range records {
		if !r.Available() {
			continue
		}
		explanation := r.Explanation
		if explanation == nil {
			explanation = []string{}
		}
		encoded, err := json.Marshal(explanation)
		if err != nil {
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx, r.Date.String(), r.PredictedMood, string(r.Confidence), string(encoded), r.ModelVersion, now); err != nil {
			return 0, fmt.Errorf("failed to save prediction for %s: %w", r.Date, err)
		}
		n++
	}
	return n, tx.Commit()
}

// Predictions returns the stored predictions in [start, end], ascending.
func (s *Store) Predictions(ctx context.Context, start, end models.DateKey) ([]models.PredictionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, predicted_mood, confidence, explanation, model_version
		FROM predictions WHERE date BETWEEN ? AND ? ORDER BY date
	`, start.String(), end.String())
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

// Prediction returns the stored prediction for date.
func (s *Store) Prediction(ctx context.Context, date models.DateKey) (models.PredictionRecord, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT date, predicted_mood, confidence, explanation, model_version
		FROM predictions WHERE date = ?
	`, date.String())
	r, err := scanPrediction(row)
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
		date, confidence, explanation string
		r                             models.PredictionRecord
	)
	if err := row.Scan(&date, &r.PredictedMood, &confidence, &explanation, &r.ModelVersion); err != nil {
		return r, err
	}
	key, err := models.ParseDateKey(date)
	if err != nil {
		return r, err
	}
	r.Date = key
	r.Status = models.StatusAvailable
	r.Confidence = models.Confidence(confidence)
	if err := json.Unmarshal([]byte(explanation), &r.Explanation); err != nil {
		return r, fmt.Errorf("corrupt explanation for %s: %w", date, err)
	}
	return r, nil
}

// UpsertCheckin creates or replaces userID's check-in for rec.Date.
func (s *Store) UpsertCheckin(ctx context.Context, userID string, rec models.CheckinRecord) (models.CheckinRecord, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mood_labels (user_id, date, mood, note, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, date) DO UPDATE SET
			mood = excluded.mood,
			note = excluded.note,
			created_at = excluded.created_at
	`, userID, rec.Date.String(), rec.Mood, nullNote(rec.Note), rec.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return models.CheckinRecord{}, fmt.Errorf("failed to save check-in for %s: %w", rec.Date, err)
	}
	return rec, nil
}

// Checkins returns userID's check-ins in [start, end], ascending.
func (s *Store) Checkins(ctx context.Context, userID string, start, end models.DateKey) ([]models.CheckinRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, mood, note, created_at
		FROM mood_labels WHERE user_id = ? AND date BETWEEN ? AND ? ORDER BY date
	`, userID, start.String(), end.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.CheckinRecord
	for rows.Next() {
		var (
			date, created string
			note          sql.NullString
			r             models.CheckinRecord
		)
		if err := rows.Scan(&date, &r.Mood, &note, &created); err != nil {
			return nil, err
		}
		if r.Date, err = models.ParseDateKey(date); err != nil {
			return nil, err
		}
		r.Note = note.String
		if r.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("corrupt created_at for %s: %w", date, err)
		}
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
