package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/julianstephens/moodlit/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(filepath.Join(t.TempDir(), "nested", "moodlit.db"))
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInitIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Init(ctx); err != nil {
		t.Fatalf("second Init() failed: %v", err)
	}
	version, err := s.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion() failed: %v", err)
	}
	if version < 1 {
		t.Errorf("SchemaVersion() = %d, want >= 1", version)
	}

	reopened := NewStore(s.Describe())
	if err := reopened.Init(ctx); err != nil {
		t.Fatalf("Init() on existing database failed: %v", err)
	}
	reopened.Close()
}

func TestPredictions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n, err := s.UpsertPredictions(ctx, []models.PredictionRecord{
		{Date: models.MustDateKey("2025-06-02"), Status: models.StatusAvailable, PredictedMood: 2.5, Confidence: models.ConfidenceMedium, Explanation: []string{"Short sleep"}},
		{Date: models.MustDateKey("2025-06-01"), Status: models.StatusAvailable, PredictedMood: 4.2, Confidence: models.ConfidenceHigh, ModelVersion: "v1"},
		models.MissingPrediction(models.MustDateKey("2025-06-03")),
		{Date: models.MustDateKey("2025-07-01"), Status: models.StatusAvailable, PredictedMood: 3, Confidence: models.ConfidenceLow},
	})
	if err != nil {
		t.Fatalf("UpsertPredictions() failed: %v", err)
	}
	if n != 3 {
		t.Errorf("UpsertPredictions() stored %d, want 3", n)
	}

	got, err := s.Predictions(ctx, models.MustDateKey("2025-06-01"), models.MustDateKey("2025-06-30"))
	if err != nil {
		t.Fatalf("Predictions() failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Predictions() returned %d records, want 2", len(got))
	}
	if got[0].Date.String() != "2025-06-01" || got[1].Date.String() != "2025-06-02" {
		t.Errorf("Predictions() not ascending: %v, %v", got[0].Date, got[1].Date)
	}
	if got[0].ModelVersion != "v1" || len(got[0].Explanation) != 0 || got[0].Explanation == nil {
		t.Errorf("unexpected first record: %+v", got[0])
	}
	if got[1].Explanation[0] != "Short sleep" || got[1].Status != models.StatusAvailable {
		t.Errorf("unexpected second record: %+v", got[1])
	}

	// re-import replaces by date
	if _, err := s.UpsertPredictions(ctx, []models.PredictionRecord{
		{Date: models.MustDateKey("2025-06-01"), Status: models.StatusAvailable, PredictedMood: 1.5, Confidence: models.ConfidenceLow},
	}); err != nil {
		t.Fatalf("UpsertPredictions() replace failed: %v", err)
	}
	rec, ok, err := s.Prediction(ctx, models.MustDateKey("2025-06-01"))
	if err != nil || !ok {
		t.Fatalf("Prediction() = %v, %v", ok, err)
	}
	if rec.PredictedMood != 1.5 || rec.Confidence != models.ConfidenceLow {
		t.Errorf("Prediction() after replace = %+v", rec)
	}

	if _, ok, err := s.Prediction(ctx, models.MustDateKey("2025-06-03")); ok || err != nil {
		t.Errorf("Prediction() for missing day = %v, %v; want false, nil", ok, err)
	}
}

func TestCheckins(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	const alice, bob = "user-a", "user-b"

	if _, err := s.UpsertCheckin(ctx, alice, models.CheckinRecord{Date: models.MustDateKey("2025-06-01"), Mood: 3, Note: "tired"}); err != nil {
		t.Fatalf("UpsertCheckin() failed: %v", err)
	}
	saved, err := s.UpsertCheckin(ctx, alice, models.CheckinRecord{Date: models.MustDateKey("2025-06-01"), Mood: 5, Note: "  "})
	if err != nil {
		t.Fatalf("UpsertCheckin() replace failed: %v", err)
	}
	if saved.CreatedAt.IsZero() {
		t.Error("UpsertCheckin() should stamp created_at")
	}
	if _, err := s.UpsertCheckin(ctx, bob, models.CheckinRecord{Date: models.MustDateKey("2025-06-02"), Mood: 1}); err != nil {
		t.Fatalf("UpsertCheckin() for second user failed: %v", err)
	}

	got, err := s.Checkins(ctx, alice, models.MustDateKey("2025-06-01"), models.MustDateKey("2025-06-30"))
	if err != nil {
		t.Fatalf("Checkins() failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Checkins() returned %d records, want 1", len(got))
	}
	if got[0].Mood != 5 || got[0].Note != "" || got[0].HasNote() {
		t.Errorf("Checkins()[0] = %+v, want mood 5 without note", got[0])
	}
}

func TestCheckinMoodConstraint(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.UpsertCheckin(context.Background(), "user-a", models.CheckinRecord{Date: models.MustDateKey("2025-06-01"), Mood: 7}); err == nil {
		t.Error("UpsertCheckin() with mood 7 should fail")
	}
}
