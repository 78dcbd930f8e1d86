package moodsync

import (
	"context"

	"github.com/julianstephens/moodlit/internal/fetchguard"
	"github.com/julianstephens/moodlit/internal/logger"
	"github.com/julianstephens/moodlit/internal/models"
	"github.com/julianstephens/moodlit/internal/recordstore"
	"github.com/julianstephens/moodlit/internal/utils"
)

// HistoryFetcher reads prediction history for an inclusive date range
type HistoryFetcher interface {
	History(ctx context.Context, start, end models.DateKey) (models.HistoryResponse, error)
}

// Class is the calendar category of a day
type Class string

const (
	ClassNone          Class = ""
	ClassLow           Class = "low"
	ClassMedium        Class = "medium"
	ClassHigh          Class = "high"
	ClassLowConfidence Class = "lowConfidence"
	ClassMissing       Class = "missing"
)

// BucketIndex groups a month's records for calendar coloring. The groups are
// disjoint: low-confidence predictions appear only in LowConfidence.
type BucketIndex struct {
	Low           []models.DateKey
	Medium        []models.DateKey
	High          []models.DateKey
	LowConfidence []models.DateKey
	Missing       []models.DateKey

	classes map[models.DateKey]Class
}

// ClassOf returns the group date was placed in, or ClassNone.
func (b BucketIndex) ClassOf(date models.DateKey) Class {
	return b.classes[date]
}

// Len returns the number of classified days.
func (b BucketIndex) Len() int {
	return len(b.classes)
}

// NewBucketIndex classifies records; input order is preserved within groups.
func NewBucketIndex(records []models.PredictionRecord) BucketIndex {
	idx := BucketIndex{classes: make(map[models.DateKey]Class, len(records))}
	for _, r := range records {
		var class Class
		switch {
		case r.Status == models.StatusMissing:
			class = ClassMissing
			idx.Missing = append(idx.Missing, r.Date)
		case r.Status != models.StatusAvailable:
			continue
		case r.Confidence == models.ConfidenceLow:
			class = ClassLowConfidence
			idx.LowConfidence = append(idx.LowConfidence, r.Date)
		default:
			switch utils.BucketOf(r.PredictedMood) {
			case models.BucketLow:
				class = ClassLow
				idx.Low = append(idx.Low, r.Date)
			case models.BucketMedium:
				class = ClassMedium
				idx.Medium = append(idx.Medium, r.Date)
			default:
				class = ClassHigh
				idx.High = append(idx.High, r.Date)
			}
		}
		idx.classes[r.Date] = class
	}
	return idx
}

// HistorySync caches prediction history month by month.
type HistorySync struct {
	fetcher HistoryFetcher
	guard   *fetchguard.Guard
	store   *recordstore.Store[models.PredictionRecord]
	opts    options
}

// NewHistorySync creates a HistorySync with an empty cache.
func NewHistorySync(fetcher HistoryFetcher, opts ...Option) *HistorySync {
	h := &HistorySync{
		fetcher: fetcher,
		store:   recordstore.New[models.PredictionRecord](),
		opts:    buildOptions(opts),
	}
	h.guard = fetchguard.New(fetchguard.WithSettleFunc(func(ctx context.Context, p models.PeriodKey, err error) {
		h.opts.publish(ctx, Event{Kind: EventHistory, Period: p, Err: err})
	}))
	return h
}

// EnsureMonth fetches period unless it has been fetched before.
func (h *HistorySync) EnsureMonth(ctx context.Context, period models.PeriodKey) bool {
	return h.guard.EnsureFetched(ctx, period, h.fetch)
}

// Retry refetches a failed period. Loaded or pending periods are left alone.
func (h *HistorySync) Retry(ctx context.Context, period models.PeriodKey) bool {
	if !h.guard.Forget(period) {
		return false
	}
	logger.Info("Retrying history fetch", "period", period)
	return h.EnsureMonth(ctx, period)
}

func (h *HistorySync) fetch(ctx context.Context, start, end models.DateKey) error {
	resp, err := h.fetcher.History(ctx, start, end)
	if err != nil {
		return err
	}
	h.store.MergeBatch(fillMissing(start, end, resp.Days))
	return nil
}

// fillMissing keeps the days inside [start, end] and adds an explicit missing
// record for every day the response left out.
func fillMissing(start, end models.DateKey, days []models.PredictionRecord) []models.PredictionRecord {
	byDate := make(map[models.DateKey]models.PredictionRecord, len(days))
	for _, d := range days {
		if d.Date.Before(start) || d.Date.After(end) {
			logger.Debug("Dropping out-of-range history day", "date", d.Date, "start", start, "end", end)
			continue
		}
		byDate[d.Date] = d
	}

	batch := make([]models.PredictionRecord, 0, len(byDate))
	for _, date := range utils.DaysBetween(start, end) {
		if rec, ok := byDate[date]; ok {
			batch = append(batch, rec)
		} else {
			batch = append(batch, models.MissingPrediction(date))
		}
	}
	return batch
}

// RecordFor returns the merged record for date.
func (h *HistorySync) RecordFor(date models.DateKey) (models.PredictionRecord, bool) {
	return h.store.Get(date)
}

// Records returns a snapshot of every merged record.
func (h *HistorySync) Records() map[models.DateKey]models.PredictionRecord {
	return h.store.Snapshot()
}

// MonthState reports the fetch lifecycle of period.
func (h *HistorySync) MonthState(period models.PeriodKey) fetchguard.State {
	return h.guard.State(period)
}

// IsMonthLoading reports whether period's fetch is in flight.
func (h *HistorySync) IsMonthLoading(period models.PeriodKey) bool {
	return h.guard.State(period) == fetchguard.Pending
}

// MonthError returns the error of period's failed fetch, or nil.
func (h *HistorySync) MonthError(period models.PeriodKey) error {
	return h.guard.Err(period)
}

// BucketIndex classifies the merged records of period.
func (h *HistorySync) BucketIndex(period models.PeriodKey) BucketIndex {
	return NewBucketIndex(h.store.ValuesInMonth(period))
}

// Wait blocks until all fetches started so far settle and returns the errors
// of months that are failed now.
func (h *HistorySync) Wait() error {
	return h.guard.Wait()
}
