// Package recordstore holds day-keyed records merged from fetched batches.
package recordstore

import (
	"sort"
	"sync"

	"github.com/julianstephens/moodlit/internal/models"
)

// Record is anything keyed by a single calendar day
type Record interface {
	Key() models.DateKey
}

// Store maps DateKey to record. Writes are last-write-wins.
type Store[R Record] struct {
	mu      sync.RWMutex
	records map[models.DateKey]R
}

// New creates an empty Store
func New[R Record]() *Store[R] {
	return &Store[R]{records: make(map[models.DateKey]R)}
}

// MergeBatch inserts or overwrites every record at its DateKey.
// Merging the same batch twice leaves the same map as merging it once.
func (s *Store[R]) MergeBatch(batch []R) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range batch {
		s.records[r.Key()] = r
	}
}

// UpsertOne writes a single record outside the batch path. A later MergeBatch
// covering the same day overwrites it.
func (s *Store[R]) UpsertOne(r R) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[r.Key()] = r
}

// Get returns the record for date, if any.
func (s *Store[R]) Get(date models.DateKey) (R, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[date]
	return r, ok
}

// ValuesInMonth returns the records inside period in ascending date order.
func (s *Store[R]) ValuesInMonth(period models.PeriodKey) []R {
	s.mu.RLock()
	var out []R
	for date, r := range s.records {
		if period.Contains(date) {
			out = append(out, r)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Key().Before(out[j].Key())
	})
	return out
}

// Snapshot returns a copy of the whole map.
func (s *Store[R]) Snapshot() map[models.DateKey]R {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[models.DateKey]R, len(s.records))
	for k, v := range s.records {
		out[k] = v
	}
	return out
}

// Len returns the number of stored days.
func (s *Store[R]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
