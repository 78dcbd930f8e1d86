package moodsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/julianstephens/moodlit/internal/constants"
	"github.com/julianstephens/moodlit/internal/fetchguard"
	"github.com/julianstephens/moodlit/internal/logger"
	"github.com/julianstephens/moodlit/internal/models"
	"github.com/julianstephens/moodlit/internal/recordstore"
)

// ErrInvalidMood is returned by Submit for moods outside the 1..5 scale.
var ErrInvalidMood = errors.New("mood must be between 1 and 5")

// CheckinClient reads and writes user check-ins
type CheckinClient interface {
	Checkins(ctx context.Context, start, end models.DateKey) (models.CheckinHistoryResponse, error)
	SubmitCheckin(ctx context.Context, req models.CheckinRequest) (models.CheckinResponse, error)
}

// CheckinSync caches check-ins month by month and applies submissions
// optimistically.
type CheckinSync struct {
	client CheckinClient
	guard  *fetchguard.Guard
	store  *recordstore.Store[models.CheckinRecord]
	opts   options
	now    func() time.Time

	submits sync.WaitGroup
}

// NewCheckinSync creates a CheckinSync with an empty cache.
func NewCheckinSync(client CheckinClient, opts ...Option) *CheckinSync {
	c := &CheckinSync{
		client: client,
		store:  recordstore.New[models.CheckinRecord](),
		opts:   buildOptions(opts),
		now:    time.Now,
	}
	c.guard = fetchguard.New(fetchguard.WithSettleFunc(func(ctx context.Context, p models.PeriodKey, err error) {
		c.opts.publish(ctx, Event{Kind: EventCheckins, Period: p, Err: err})
	}))
	return c
}

// EnsureMonth fetches period unless it has been fetched before.
func (c *CheckinSync) EnsureMonth(ctx context.Context, period models.PeriodKey) bool {
	return c.guard.EnsureFetched(ctx, period, c.fetch)
}

// Retry refetches a failed period.
func (c *CheckinSync) Retry(ctx context.Context, period models.PeriodKey) bool {
	if !c.guard.Forget(period) {
		return false
	}
	logger.Info("Retrying check-in fetch", "period", period)
	return c.EnsureMonth(ctx, period)
}

func (c *CheckinSync) fetch(ctx context.Context, start, end models.DateKey) error {
	resp, err := c.client.Checkins(ctx, start, end)
	if err != nil {
		return err
	}
	c.store.MergeBatch(resp.Records())
	return nil
}

// Submit records a check-in locally right away, then sends it to the service
// in the background. The returned channel receives the POST outcome once and
// is then closed. Validation errors are returned directly and leave the cache
// untouched.
//
// A month fetch that settles after Submit may overwrite the local record with
// the server's copy.
func (c *CheckinSync) Submit(ctx context.Context, date models.DateKey, mood int, note string) (<-chan error, error) {
	if mood < constants.MinMood || mood > constants.MaxMood {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidMood, mood)
	}
	if date.IsZero() {
		return nil, errors.New("check-in date is required")
	}

	c.store.UpsertOne(models.CheckinRecord{
		Date:      date,
		Mood:      mood,
		Note:      note,
		CreatedAt: c.now().UTC(),
	})
	logger.Debug("Check-in applied locally", "date", date, "mood", mood)

	done := make(chan error, 1)
	c.submits.Add(1)
	go func() {
		defer c.submits.Done()
		defer close(done)

		_, err := c.client.SubmitCheckin(ctx, models.CheckinRequest{
			Date: date,
			Mood: mood,
			Note: models.NotePtr(note),
		})
		if err != nil {
			logger.Warn("Check-in submit failed", "date", date, "error", err)
		} else {
			logger.Info("Check-in saved", "date", date, "mood", mood)
		}
		c.opts.publish(ctx, Event{Kind: EventSubmit, Period: date.Period(), Date: date, Err: err})
		done <- err
	}()
	return done, nil
}

// RecordFor returns the check-in for date.
func (c *CheckinSync) RecordFor(date models.DateKey) (models.CheckinRecord, bool) {
	return c.store.Get(date)
}

// Records returns a snapshot of every cached check-in.
func (c *CheckinSync) Records() map[models.DateKey]models.CheckinRecord {
	return c.store.Snapshot()
}

// MonthState reports the fetch lifecycle of period.
func (c *CheckinSync) MonthState(period models.PeriodKey) fetchguard.State {
	return c.guard.State(period)
}

// IsMonthLoading reports whether period's fetch is in flight.
func (c *CheckinSync) IsMonthLoading(period models.PeriodKey) bool {
	return c.guard.State(period) == fetchguard.Pending
}

// MonthError returns the error of period's failed fetch, or nil.
func (c *CheckinSync) MonthError(period models.PeriodKey) error {
	return c.guard.Err(period)
}

// NotesIndex returns the dates in period whose check-in has a non-blank note,
// in ascending order.
func (c *CheckinSync) NotesIndex(period models.PeriodKey) []models.DateKey {
	var dates []models.DateKey
	for _, r := range c.store.ValuesInMonth(period) {
		if r.HasNote() {
			dates = append(dates, r.Date)
		}
	}
	return dates
}

// HasNote reports whether date has a check-in with a non-blank note.
func (c *CheckinSync) HasNote(date models.DateKey) bool {
	r, ok := c.store.Get(date)
	return ok && r.HasNote()
}

// WaitSubmits blocks until every submission started so far has settled. Month
// fetches still in flight are not waited on.
func (c *CheckinSync) WaitSubmits() {
	c.submits.Wait()
}

// Wait blocks until every fetch and submission started so far has settled.
// It returns the errors of months whose fetch is failed now; submission errors
// are delivered on the channels returned by Submit.
func (c *CheckinSync) Wait() error {
	c.submits.Wait()
	return c.guard.Wait()
}
