package moodsync

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	apperrors "github.com/julianstephens/moodlit/internal/errors"
	"github.com/julianstephens/moodlit/internal/fetchguard"
	"github.com/julianstephens/moodlit/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeHistory struct {
	mu    sync.Mutex
	calls []models.PeriodKey
	gate  chan struct{}
	days  map[models.PeriodKey][]models.PredictionRecord
	err   error
}

func (f *fakeHistory) History(ctx context.Context, start, end models.DateKey) (models.HistoryResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, start.Period())
	gate, err := f.gate, f.err
	days := f.days[start.Period()]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return models.HistoryResponse{}, ctx.Err()
		}
	}
	if err != nil {
		return models.HistoryResponse{}, err
	}
	return models.HistoryResponse{Start: start, End: end, Days: days}, nil
}

func (f *fakeHistory) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func available(date string, mood float64, conf models.Confidence) models.PredictionRecord {
	return models.PredictionRecord{
		Date:          models.MustDateKey(date),
		Status:        models.StatusAvailable,
		PredictedMood: mood,
		Confidence:    conf,
		Explanation:   []string{"sleep"},
		ModelVersion:  "v1",
	}
}

var june = models.PeriodKey{Year: 2025, Month: 6}

func TestHistoryEnsureMonthFetchesOnce(t *testing.T) {
	f := &fakeHistory{gate: make(chan struct{})}
	h := NewHistorySync(f)

	var started atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if h.EnsureMonth(context.Background(), june) {
				started.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.True(t, h.IsMonthLoading(june))

	close(f.gate)
	require.NoError(t, h.Wait())

	assert.Equal(t, int32(1), started.Load())
	assert.Equal(t, 1, f.callCount())
	assert.False(t, h.IsMonthLoading(june))
	assert.Equal(t, fetchguard.Loaded, h.MonthState(june))
}

func TestHistoryFillsMissingDays(t *testing.T) {
	f := &fakeHistory{days: map[models.PeriodKey][]models.PredictionRecord{
		june: {
			available("2025-06-01", 3.2, models.ConfidenceHigh),
			available("2025-06-03", 1.0, models.ConfidenceMedium),
			available("2025-07-01", 5.0, models.ConfidenceHigh),
		},
	}}
	h := NewHistorySync(f)
	h.EnsureMonth(context.Background(), june)
	require.NoError(t, h.Wait())

	records := h.Records()
	assert.Len(t, records, 30)

	rec, ok := h.RecordFor(models.MustDateKey("2025-06-02"))
	require.True(t, ok)
	assert.Equal(t, models.StatusMissing, rec.Status)

	rec, ok = h.RecordFor(models.MustDateKey("2025-06-01"))
	require.True(t, ok)
	assert.Equal(t, 3.2, rec.PredictedMood)

	_, ok = h.RecordFor(models.MustDateKey("2025-07-01"))
	assert.False(t, ok, "days outside the requested range are dropped")
}

func TestHistoryFailedMonthStaysFailed(t *testing.T) {
	boom := &apperrors.FetchError{Op: "history", StatusCode: 500}
	f := &fakeHistory{err: boom}
	events := make(chan Event, 4)
	h := NewHistorySync(f, WithEvents(events))

	h.EnsureMonth(context.Background(), june)
	err := h.Wait()
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrFetchFailed)

	ev := <-events
	assert.Equal(t, EventHistory, ev.Kind)
	assert.Equal(t, june, ev.Period)
	assert.ErrorIs(t, ev.Err, apperrors.ErrFetchFailed)

	assert.False(t, h.EnsureMonth(context.Background(), june))
	assert.Equal(t, 1, f.callCount())
	assert.Equal(t, fetchguard.Failed, h.MonthState(june))
	assert.ErrorIs(t, h.MonthError(june), apperrors.ErrFetchFailed)
	assert.Empty(t, h.Records())
}

func TestHistoryRetry(t *testing.T) {
	f := &fakeHistory{err: errors.New("connection refused")}
	h := NewHistorySync(f)

	assert.False(t, h.Retry(context.Background(), june), "unfetched months are not retried")

	h.EnsureMonth(context.Background(), june)
	require.Error(t, h.Wait())

	f.mu.Lock()
	f.err = nil
	f.days = map[models.PeriodKey][]models.PredictionRecord{june: {available("2025-06-10", 4.5, models.ConfidenceHigh)}}
	f.mu.Unlock()

	require.True(t, h.Retry(context.Background(), june))
	require.NoError(t, h.Wait())
	assert.Equal(t, fetchguard.Loaded, h.MonthState(june))
	assert.NoError(t, h.MonthError(june))
	assert.Equal(t, 2, f.callCount())

	rec, ok := h.RecordFor(models.MustDateKey("2025-06-10"))
	require.True(t, ok)
	assert.Equal(t, 4.5, rec.PredictedMood)

	assert.False(t, h.Retry(context.Background(), june), "loaded months are not retried")
}

func TestBucketIndex(t *testing.T) {
	idx := NewBucketIndex([]models.PredictionRecord{
		available("2025-06-01", 2.0, models.ConfidenceHigh),
		available("2025-06-02", 2.1, models.ConfidenceMedium),
		available("2025-06-03", 3.9, models.ConfidenceHigh),
		available("2025-06-04", 4.0, models.ConfidenceHigh),
		available("2025-06-05", 4.8, models.ConfidenceLow),
		models.MissingPrediction(models.MustDateKey("2025-06-06")),
	})

	assert.Equal(t, []models.DateKey{models.MustDateKey("2025-06-01")}, idx.Low)
	assert.Equal(t, []models.DateKey{models.MustDateKey("2025-06-02"), models.MustDateKey("2025-06-03")}, idx.Medium)
	assert.Equal(t, []models.DateKey{models.MustDateKey("2025-06-04")}, idx.High)
	assert.Equal(t, []models.DateKey{models.MustDateKey("2025-06-05")}, idx.LowConfidence)
	assert.Equal(t, []models.DateKey{models.MustDateKey("2025-06-06")}, idx.Missing)

	assert.Equal(t, ClassLowConfidence, idx.ClassOf(models.MustDateKey("2025-06-05")))
	assert.Equal(t, ClassNone, idx.ClassOf(models.MustDateKey("2025-06-07")))
	assert.Equal(t, 6, idx.Len())
}

func TestHistoryBucketIndexCoversWholeMonth(t *testing.T) {
	f := &fakeHistory{days: map[models.PeriodKey][]models.PredictionRecord{
		june: {available("2025-06-15", 4.2, models.ConfidenceHigh)},
	}}
	h := NewHistorySync(f)
	h.EnsureMonth(context.Background(), june)
	require.NoError(t, h.Wait())

	idx := h.BucketIndex(june)
	assert.Len(t, idx.High, 1)
	assert.Len(t, idx.Missing, 29)
	assert.Equal(t, 0, h.BucketIndex(models.PeriodKey{Year: 2025, Month: 7}).Len())
}

type fakeCheckins struct {
	mu         sync.Mutex
	fetchGate  chan struct{}
	submitGate chan struct{}
	days       []models.CheckinDay
	fetchErr   error
	submitErr  error
	submitted  []models.CheckinRequest
}

func (f *fakeCheckins) Checkins(ctx context.Context, start, end models.DateKey) (models.CheckinHistoryResponse, error) {
	if f.fetchGate != nil {
		<-f.fetchGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return models.CheckinHistoryResponse{}, f.fetchErr
	}
	return models.CheckinHistoryResponse{Start: start, End: end, Days: f.days}, nil
}

func (f *fakeCheckins) SubmitCheckin(ctx context.Context, req models.CheckinRequest) (models.CheckinResponse, error) {
	if f.submitGate != nil {
		<-f.submitGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, req)
	if f.submitErr != nil {
		return models.CheckinResponse{}, f.submitErr
	}
	return models.CheckinResponse{Date: req.Date, Mood: req.Mood, Note: req.Note}, nil
}

func checkinDay(date string, mood int, note string) models.CheckinDay {
	return models.CheckinDay{
		Date:   models.MustDateKey(date),
		Mood:   &mood,
		Note:   &note,
		Status: models.StatusAvailable,
	}
}

func TestCheckinFetchAndNotesIndex(t *testing.T) {
	f := &fakeCheckins{days: []models.CheckinDay{
		checkinDay("2025-06-02", 3, "  "),
		checkinDay("2025-06-01", 4, "slept well"),
		{Date: models.MustDateKey("2025-06-03"), Status: models.StatusMissing},
	}}
	c := NewCheckinSync(f)
	c.EnsureMonth(context.Background(), june)
	require.NoError(t, c.Wait())

	assert.Len(t, c.Records(), 2)
	assert.Equal(t, []models.DateKey{models.MustDateKey("2025-06-01")}, c.NotesIndex(june))
	assert.True(t, c.HasNote(models.MustDateKey("2025-06-01")))
	assert.False(t, c.HasNote(models.MustDateKey("2025-06-02")))
	assert.False(t, c.HasNote(models.MustDateKey("2025-06-03")))
}

func TestSubmitAppliesOptimistically(t *testing.T) {
	f := &fakeCheckins{submitGate: make(chan struct{})}
	events := make(chan Event, 1)
	c := NewCheckinSync(f, WithEvents(events))
	date := models.MustDateKey("2025-06-10")

	done, err := c.Submit(context.Background(), date, 4, "walked")
	require.NoError(t, err)

	rec, ok := c.RecordFor(date)
	require.True(t, ok, "record is visible before the POST settles")
	assert.Equal(t, 4, rec.Mood)
	assert.Equal(t, "walked", rec.Note)

	close(f.submitGate)
	require.NoError(t, <-done)
	require.NoError(t, c.Wait())

	ev := <-events
	assert.Equal(t, EventSubmit, ev.Kind)
	assert.Equal(t, date, ev.Date)
	require.Len(t, f.submitted, 1)
	require.NotNil(t, f.submitted[0].Note)
	assert.Equal(t, "walked", *f.submitted[0].Note)
}

func TestSubmitBlankNoteSentAsNull(t *testing.T) {
	f := &fakeCheckins{}
	c := NewCheckinSync(f)

	done, err := c.Submit(context.Background(), models.MustDateKey("2025-06-10"), 2, "   ")
	require.NoError(t, err)
	require.NoError(t, <-done)

	require.Len(t, f.submitted, 1)
	assert.Nil(t, f.submitted[0].Note)
}

func TestSubmitFailureKeepsLocalRecord(t *testing.T) {
	f := &fakeCheckins{submitErr: &apperrors.FetchError{Op: "submit check-in", StatusCode: 500}}
	c := NewCheckinSync(f)
	date := models.MustDateKey("2025-06-11")

	done, err := c.Submit(context.Background(), date, 1, "")
	require.NoError(t, err)
	assert.ErrorIs(t, <-done, apperrors.ErrFetchFailed)

	_, ok := c.RecordFor(date)
	assert.True(t, ok)
}

func TestSubmitRejectsInvalidMood(t *testing.T) {
	c := NewCheckinSync(&fakeCheckins{})
	for _, mood := range []int{0, 6, -1} {
		_, err := c.Submit(context.Background(), models.MustDateKey("2025-06-11"), mood, "")
		assert.ErrorIs(t, err, ErrInvalidMood)
	}
	assert.Empty(t, c.Records())
}

func TestLateBatchOverwritesOptimisticRecord(t *testing.T) {
	f := &fakeCheckins{
		fetchGate: make(chan struct{}),
		days:      []models.CheckinDay{checkinDay("2025-06-10", 2, "server copy")},
	}
	c := NewCheckinSync(f)
	date := models.MustDateKey("2025-06-10")

	c.EnsureMonth(context.Background(), june)
	done, err := c.Submit(context.Background(), date, 5, "local")
	require.NoError(t, err)
	require.NoError(t, <-done)

	close(f.fetchGate)
	require.NoError(t, c.Wait())

	rec, _ := c.RecordFor(date)
	assert.Equal(t, 2, rec.Mood)
	assert.Equal(t, "server copy", rec.Note)
}

func TestWaitSubmitsIgnoresPendingFetch(t *testing.T) {
	f := &fakeCheckins{fetchGate: make(chan struct{})}
	c := NewCheckinSync(f)
	c.EnsureMonth(context.Background(), june)

	_, err := c.Submit(context.Background(), models.MustDateKey("2025-06-10"), 4, "")
	require.NoError(t, err)

	returned := make(chan struct{})
	go func() {
		c.WaitSubmits()
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("WaitSubmits blocked on a month fetch")
	}
	assert.True(t, c.IsMonthLoading(june))

	close(f.fetchGate)
	require.NoError(t, c.Wait())
}

func TestCheckinRetry(t *testing.T) {
	f := &fakeCheckins{fetchErr: errors.New("timeout")}
	c := NewCheckinSync(f)
	c.EnsureMonth(context.Background(), june)
	require.Error(t, c.Wait())
	assert.Error(t, c.MonthError(june))

	f.mu.Lock()
	f.fetchErr = nil
	f.days = []models.CheckinDay{checkinDay("2025-06-05", 3, "ok")}
	f.mu.Unlock()

	require.True(t, c.Retry(context.Background(), june))
	require.NoError(t, c.Wait())
	assert.Equal(t, fetchguard.Loaded, c.MonthState(june))
	assert.NoError(t, c.MonthError(june))
	assert.Len(t, c.Records(), 1)
}
