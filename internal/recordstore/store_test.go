package recordstore

import (
	"reflect"
	"sync"
	"testing"

	"github.com/julianstephens/moodlit/internal/models"
)

func prediction(date string, mood float64, conf models.Confidence) models.PredictionRecord {
	return models.PredictionRecord{
		Date:          models.MustDateKey(date),
		Status:        models.StatusAvailable,
		PredictedMood: mood,
		Confidence:    conf,
		Explanation:   []string{"sleep"},
	}
}

func TestMergeBatchIsIdempotent(t *testing.T) {
	batch := []models.PredictionRecord{
		prediction("2025-06-01", 4.2, models.ConfidenceHigh),
		prediction("2025-06-02", 1.5, models.ConfidenceLow),
		models.MissingPrediction(models.MustDateKey("2025-06-03")),
	}

	once := New[models.PredictionRecord]()
	once.MergeBatch(batch)

	twice := New[models.PredictionRecord]()
	twice.MergeBatch(batch)
	twice.MergeBatch(batch)

	if !reflect.DeepEqual(once.Snapshot(), twice.Snapshot()) {
		t.Errorf("merging twice changed the map:\nonce:  %v\ntwice: %v", once.Snapshot(), twice.Snapshot())
	}
	if twice.Len() != 3 {
		t.Errorf("Len = %d, want 3", twice.Len())
	}
}

func TestMergeBatchLastWriteWins(t *testing.T) {
	s := New[models.PredictionRecord]()
	s.MergeBatch([]models.PredictionRecord{prediction("2025-06-01", 2.0, models.ConfidenceMedium)})
	s.MergeBatch([]models.PredictionRecord{prediction("2025-06-01", 4.5, models.ConfidenceHigh)})

	got, ok := s.Get(models.MustDateKey("2025-06-01"))
	if !ok {
		t.Fatal("record missing after merge")
	}
	if got.PredictedMood != 4.5 {
		t.Errorf("PredictedMood = %v, want 4.5", got.PredictedMood)
	}
}

func TestUpsertOneOverwrittenByLaterBatch(t *testing.T) {
	s := New[models.CheckinRecord]()
	date := models.MustDateKey("2025-06-10")

	s.UpsertOne(models.CheckinRecord{Date: date, Mood: 5, Note: "optimistic"})
	if got, _ := s.Get(date); got.Mood != 5 {
		t.Fatalf("UpsertOne not visible, got %+v", got)
	}

	s.MergeBatch([]models.CheckinRecord{{Date: date, Mood: 2}})
	if got, _ := s.Get(date); got.Mood != 2 || got.Note != "" {
		t.Errorf("batch merge should overwrite the optimistic write, got %+v", got)
	}
}

func TestGetMissing(t *testing.T) {
	s := New[models.CheckinRecord]()
	if _, ok := s.Get(models.MustDateKey("2025-01-01")); ok {
		t.Error("Get on empty store should report absent")
	}
}

func TestValuesInMonth(t *testing.T) {
	s := New[models.PredictionRecord]()
	s.MergeBatch([]models.PredictionRecord{
		prediction("2025-06-30", 3, models.ConfidenceHigh),
		prediction("2025-05-31", 3, models.ConfidenceHigh),
		prediction("2025-06-01", 3, models.ConfidenceHigh),
		prediction("2025-07-01", 3, models.ConfidenceHigh),
		prediction("2025-06-15", 3, models.ConfidenceHigh),
		prediction("2024-06-15", 3, models.ConfidenceHigh),
	})

	period, _ := models.ParsePeriodKey("2025-06")
	got := s.ValuesInMonth(period)

	var dates []string
	for _, r := range got {
		dates = append(dates, r.Date.String())
	}
	want := []string{"2025-06-01", "2025-06-15", "2025-06-30"}
	if !reflect.DeepEqual(dates, want) {
		t.Errorf("ValuesInMonth = %v, want %v", dates, want)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s := New[models.CheckinRecord]()
	date := models.MustDateKey("2025-06-01")
	s.UpsertOne(models.CheckinRecord{Date: date, Mood: 3})

	snap := s.Snapshot()
	delete(snap, date)

	if _, ok := s.Get(date); !ok {
		t.Error("mutating a snapshot should not affect the store")
	}
}

func TestConcurrentWrites(t *testing.T) {
	s := New[models.CheckinRecord]()
	days := []string{"2025-06-01", "2025-06-02", "2025-06-03", "2025-06-04"}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d := models.MustDateKey(days[i%len(days)])
			if i%2 == 0 {
				s.UpsertOne(models.CheckinRecord{Date: d, Mood: 1 + i%5})
			} else {
				s.MergeBatch([]models.CheckinRecord{{Date: d, Mood: 1 + i%5}})
			}
			s.ValuesInMonth(d.Period())
		}(i)
	}
	wg.Wait()

	if s.Len() != len(days) {
		t.Errorf("Len = %d, want %d", s.Len(), len(days))
	}
}
