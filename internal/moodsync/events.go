// Package moodsync keeps month-batched prediction history and user check-ins
// in memory, fetching each month at most once per process.
package moodsync

import (
	"context"

	"github.com/julianstephens/moodlit/internal/models"
)

// EventKind names what settled
type EventKind string

const (
	EventHistory  EventKind = "history"
	EventCheckins EventKind = "checkins"
	EventSubmit   EventKind = "submit"
)

// Event is published whenever a fetch or a check-in submission settles.
type Event struct {
	Kind   EventKind
	Period models.PeriodKey
	Date   models.DateKey // set for EventSubmit
	Err    error
}

type options struct {
	events chan<- Event
}

// Option configures a HistorySync or CheckinSync
type Option func(*options)

// WithEvents publishes settle events on ch. Sends block until received or
// until the context the work ran with is done.
func WithEvents(ch chan<- Event) Option {
	return func(o *options) { o.events = ch }
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) publish(ctx context.Context, ev Event) {
	if o.events == nil {
		return
	}
	select {
	case o.events <- ev:
	case <-ctx.Done():
	}
}
