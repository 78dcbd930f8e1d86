// Package fetchguard issues at most one fetch per month-sized period.
//
// A period is marked before its fetch starts, so overlapping EnsureFetched
// calls for the same period start exactly one fetch. The mark is kept when the
// fetch fails; only an explicit Forget makes the period fetchable again.
package fetchguard

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/julianstephens/moodlit/internal/logger"
	"github.com/julianstephens/moodlit/internal/models"
	"github.com/julianstephens/moodlit/internal/utils"
)

// State is the lifecycle of one period
type State int

const (
	Unfetched State = iota
	Pending
	Loaded
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return "unfetched"
	}
}

// FetchFunc fetches the records between start and end (inclusive) and merges
// them into the caller's store.
type FetchFunc func(ctx context.Context, start, end models.DateKey) error

// SettleFunc is called once per fetch, after the period's state is updated.
// ctx is the context the fetch ran with.
type SettleFunc func(ctx context.Context, period models.PeriodKey, err error)

type entry struct {
	state State
	err   error
}

// Guard tracks the fetched-period set for one record kind.
type Guard struct {
	mu       sync.Mutex
	periods  map[models.PeriodKey]*entry
	group    errgroup.Group
	onSettle SettleFunc
}

// Option configures a Guard
type Option func(*Guard)

// WithSettleFunc registers a callback run after every fetch completes.
func WithSettleFunc(fn SettleFunc) Option {
	return func(g *Guard) { g.onSettle = fn }
}

// New creates an empty Guard
func New(opts ...Option) *Guard {
	g := &Guard{periods: make(map[models.PeriodKey]*entry)}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// EnsureFetched starts fetch for period unless the period has already been
// claimed. It returns true when a new fetch was started. The fetch runs on its
// own goroutine; its outcome is visible through State, Err and Wait.
func (g *Guard) EnsureFetched(ctx context.Context, period models.PeriodKey, fetch FetchFunc) bool {
	g.mu.Lock()
	if _, seen := g.periods[period]; seen {
		g.mu.Unlock()
		return false
	}
	e := &entry{state: Pending}
	g.periods[period] = e
	g.mu.Unlock()

	start, end := utils.PeriodBounds(period)
	logger.Debug("Fetching period", "period", period, "start", start, "end", end)

	g.group.Go(func() error {
		err := fetch(ctx, start, end)

		g.mu.Lock()
		if err != nil {
			e.state, e.err = Failed, err
		} else {
			e.state = Loaded
		}
		g.mu.Unlock()

		if err != nil {
			logger.Warn("Period fetch failed", "period", period, "error", err)
		} else {
			logger.Debug("Period fetched", "period", period)
		}
		if g.onSettle != nil {
			g.onSettle(ctx, period, err)
		}
		// Outcomes live in the period entries; Wait reads them there.
		return nil
	})
	return true
}

// State reports where period is in its lifecycle.
func (g *Guard) State(period models.PeriodKey) State {
	g.mu.Lock()
	defer g.mu.Unlock()
	if e, ok := g.periods[period]; ok {
		return e.state
	}
	return Unfetched
}

// Err returns the error of a failed period, or nil.
func (g *Guard) Err(period models.PeriodKey) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if e, ok := g.periods[period]; ok {
		return e.err
	}
	return nil
}

// Fetched reports whether period is in the fetched set, whatever its outcome.
func (g *Guard) Fetched(period models.PeriodKey) bool {
	return g.State(period) != Unfetched
}

// Forget removes a failed period from the fetched set so a later
// EnsureFetched fetches it again. Pending and loaded periods are kept.
func (g *Guard) Forget(period models.PeriodKey) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.periods[period]
	if !ok || e.state != Failed {
		return false
	}
	delete(g.periods, period)
	return true
}

// Wait blocks until every fetch started so far has settled and returns the
// errors of the periods that are failed now, oldest period first. A period
// that was forgotten and refetched successfully no longer contributes.
func (g *Guard) Wait() error {
	_ = g.group.Wait()

	g.mu.Lock()
	defer g.mu.Unlock()
	failed := make([]models.PeriodKey, 0, len(g.periods))
	for p, e := range g.periods {
		if e.state == Failed {
			failed = append(failed, p)
		}
	}
	slices.SortFunc(failed, func(a, b models.PeriodKey) int {
		return cmp.Or(cmp.Compare(a.Year, b.Year), cmp.Compare(a.Month, b.Month))
	})
	errs := make([]error, 0, len(failed))
	for _, p := range failed {
		errs = append(errs, g.periods[p].err)
	}
	return errors.Join(errs...)
}
