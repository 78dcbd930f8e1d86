// Package dayview decides what the selected-day panel shows: the prediction
// state for the date and whether its check-in is being edited.
package dayview

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/julianstephens/moodlit/internal/constants"
	"github.com/julianstephens/moodlit/internal/fetchguard"
	"github.com/julianstephens/moodlit/internal/logger"
	"github.com/julianstephens/moodlit/internal/models"
	"github.com/julianstephens/moodlit/internal/utils"
)

var (
	// ErrFutureDate is returned when editing or submitting a check-in for a day that has not happened yet
	ErrFutureDate = errors.New("cannot check in for a future date")
	// ErrNoSelection is returned when an operation needs a selected date
	ErrNoSelection = errors.New("no date selected")
)

// Status is the prediction state of the selected day
type Status string

const (
	StatusLoading     Status = "loading"
	StatusOK          Status = "ok"
	StatusNotComputed Status = "not_computed"
	StatusError       Status = "error"
)

// CheckinMode is the check-in sub-state of the selected day
type CheckinMode string

const (
	ModeDisplay CheckinMode = "display"
	ModeEditing CheckinMode = "editing"
)

// HistorySource is the read side of prediction history the machine needs
type HistorySource interface {
	EnsureMonth(ctx context.Context, period models.PeriodKey) bool
	RecordFor(date models.DateKey) (models.PredictionRecord, bool)
	MonthState(period models.PeriodKey) fetchguard.State
	MonthError(period models.PeriodKey) error
}

// CheckinSource is the check-in side the machine reads from and writes through
type CheckinSource interface {
	EnsureMonth(ctx context.Context, period models.PeriodKey) bool
	RecordFor(date models.DateKey) (models.CheckinRecord, bool)
	MonthState(period models.PeriodKey) fetchguard.State
	Submit(ctx context.Context, date models.DateKey, mood int, note string) (<-chan error, error)
}

// View is a snapshot of the selected-day panel.
type View struct {
	Date   models.DateKey
	Status Status

	// Set when Status is StatusOK
	PredictedMood float64
	Confidence    models.Confidence
	Explanation   []string
	ModelVersion  string

	// Reason explains StatusNotComputed and StatusError
	Reason string
	Err    error

	Checkin        *models.CheckinRecord
	CheckinLoading bool
	Mode           CheckinMode
	IsToday        bool
	IsFuture       bool
}

// Bucket returns the mood bucket of an ok view.
func (v View) Bucket() models.MoodBucket {
	return utils.BucketOf(v.PredictedMood)
}

// Machine tracks the selected date. It is safe for concurrent use.
type Machine struct {
	history  HistorySource
	checkins CheckinSource
	today    func() models.DateKey

	mu        sync.Mutex
	selected  models.DateKey
	editing   bool
	dismissed bool
}

// Option configures a Machine
type Option func(*Machine)

// WithClock overrides how the machine determines today's date.
func WithClock(today func() models.DateKey) Option {
	return func(m *Machine) { m.today = today }
}

// New creates a Machine with nothing selected. loc defines the local day.
func New(history HistorySource, checkins CheckinSource, loc *time.Location, opts ...Option) *Machine {
	if loc == nil {
		loc = time.Local
	}
	m := &Machine{
		history:  history,
		checkins: checkins,
		today:    func() models.DateKey { return utils.Today(loc) },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Select makes date the selected day, makes sure its month is being fetched
// and returns the resulting view. Selecting a new date leaves editing mode.
func (m *Machine) Select(ctx context.Context, date models.DateKey) View {
	m.mu.Lock()
	if date != m.selected {
		m.selected = date
		m.editing = false
		m.dismissed = false
	}
	m.mu.Unlock()

	period := date.Period()
	m.history.EnsureMonth(ctx, period)
	m.checkins.EnsureMonth(ctx, period)

	return m.Current()
}

// Selected returns the selected date, or the zero DateKey.
func (m *Machine) Selected() models.DateKey {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selected
}

// Current resolves the view for the selected date from the current contents
// of both sources. Call it again after a fetch settles.
func (m *Machine) Current() View {
	m.mu.Lock()
	date, editing, dismissed := m.selected, m.editing, m.dismissed
	m.mu.Unlock()

	if date.IsZero() {
		return View{Status: StatusLoading, Mode: ModeDisplay}
	}

	today := m.today()
	v := View{
		Date:     date,
		IsToday:  date == today,
		IsFuture: date.After(today),
	}
	m.resolvePrediction(&v)
	m.resolveCheckin(&v, editing, dismissed)
	return v
}

func (m *Machine) resolvePrediction(v *View) {
	period := v.Date.Period()
	switch m.history.MonthState(period) {
	case fetchguard.Unfetched, fetchguard.Pending:
		v.Status = StatusLoading
		return
	case fetchguard.Failed:
		v.Status = StatusError
		v.Err = m.history.MonthError(period)
		if v.Err != nil {
			v.Reason = v.Err.Error()
		}
		return
	}

	rec, ok := m.history.RecordFor(v.Date)
	if !ok || !rec.Available() {
		v.Status = StatusNotComputed
		v.Reason = constants.NoPredictionMsg
		return
	}
	v.Status = StatusOK
	v.PredictedMood = rec.PredictedMood
	v.Confidence = rec.Confidence
	v.Explanation = rec.Explanation
	v.ModelVersion = rec.ModelVersion
}

func (m *Machine) resolveCheckin(v *View, editing, dismissed bool) {
	state := m.checkins.MonthState(v.Date.Period())
	v.CheckinLoading = state == fetchguard.Unfetched || state == fetchguard.Pending
	if rec, ok := m.checkins.RecordFor(v.Date); ok {
		v.Checkin = &rec
	}

	v.Mode = ModeDisplay
	switch {
	case editing:
		v.Mode = ModeEditing
	case v.IsToday && v.Checkin == nil && !dismissed && state == fetchguard.Loaded:
		v.Mode = ModeEditing
	}
}

// BeginEdit switches the selected day's check-in into editing mode.
func (m *Machine) BeginEdit() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.selected.IsZero() {
		return ErrNoSelection
	}
	if m.selected.After(m.today()) {
		return ErrFutureDate
	}
	m.editing = true
	return nil
}

// CancelEdit returns to display mode. For today it also stops the form from
// reopening automatically until another date is selected.
func (m *Machine) CancelEdit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.editing = false
	m.dismissed = true
}

// Submit writes a check-in for the selected date through the check-in source
// and returns to display mode as soon as the local write is applied. The
// returned channel reports the network outcome.
func (m *Machine) Submit(ctx context.Context, mood int, note string) (<-chan error, error) {
	m.mu.Lock()
	date := m.selected
	m.mu.Unlock()

	if date.IsZero() {
		return nil, ErrNoSelection
	}
	if date.After(m.today()) {
		return nil, ErrFutureDate
	}

	done, err := m.checkins.Submit(ctx, date, mood, note)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.selected == date {
		m.editing = false
	}
	m.mu.Unlock()

	logger.Debug("Check-in submitted from day view", "date", date, "mood", mood)
	return done, nil
}
