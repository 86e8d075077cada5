// Package store holds the local view of active and historical alerts.
package store

import (
	"errors"
	"sync"

	"github.com/amirphl/alertdesk/internal/alert"
)

// DefaultHistoricalCapacity bounds the historical collection.
const DefaultHistoricalCapacity = 200

// ErrStaleFetch is returned when a fetch result is applied after a newer
// fetch for the same collection was issued.
var ErrStaleFetch = errors.New("stale fetch result")

// Store owns both alert collections. Every mutation is atomic at entry or
// whole-collection granularity.
type Store struct {
	mu sync.RWMutex

	active     *ordered[alert.ActiveAlert]
	historical *ordered[alert.HistoricalAlert]
	capacity   int

	// last issued fetch sequence per collection
	activeSeq     uint64
	historicalSeq uint64
}

func New(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultHistoricalCapacity
	}
	return &Store{
		active:     newOrdered[alert.ActiveAlert](),
		historical: newOrdered[alert.HistoricalAlert](),
		capacity:   capacity,
	}
}

func (s *Store) Capacity() int {
	return s.capacity
}

// -------- Active --------

// UpsertActive inserts or replaces an alert by key. It returns true when the
// key was not present before.
func (s *Store) UpsertActive(a alert.ActiveAlert) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active.put(a.Key(), a)
}

// RemoveActive removes an alert and reports whether it existed.
func (s *Store) RemoveActive(k alert.Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active.remove(k)
}

func (s *Store) Active(k alert.Key) (alert.ActiveAlert, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active.get(k)
}

// ActiveAlerts returns the active alerts in enumeration order.
func (s *Store) ActiveAlerts() []alert.ActiveAlert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active.values()
}

func (s *Store) ActiveLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active.len()
}

// ReplaceAllActive swaps the whole active collection. The input order becomes
// the enumeration order. It returns the keys that were present before and are
// absent now.
func (s *Store) ReplaceAllActive(list []alert.ActiveAlert) []alert.Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replaceActive(list)
}

// BeginActive issues a new fetch sequence for the active collection.
func (s *Store) BeginActive() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeSeq++
	return s.activeSeq
}

// ApplyActive replaces the active collection only if seq is the latest
// issued sequence. Older completions return ErrStaleFetch untouched.
func (s *Store) ApplyActive(seq uint64, list []alert.ActiveAlert) ([]alert.Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.activeSeq {
		return nil, ErrStaleFetch
	}
	return s.replaceActive(list), nil
}

func (s *Store) replaceActive(list []alert.ActiveAlert) []alert.Key {
	next := newOrdered[alert.ActiveAlert]()
	for _, a := range list {
		next.put(a.Key(), a)
	}
	removed := s.active.missingFrom(next)
	s.active = next
	return removed
}

// -------- Historical --------

// AppendHistorical inserts a fired alert, overwriting in place on key
// collision, then evicts the oldest entries above capacity. Evicted keys are
// returned oldest first.
func (s *Store) AppendHistorical(h alert.HistoricalAlert) []alert.Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.historical.put(h.Key(), h)
	return s.historical.evictOldest(s.historical.len() - s.capacity)
}

func (s *Store) Historical(k alert.Key) (alert.HistoricalAlert, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.historical.get(k)
}

// HistoricalAlerts returns the historical alerts oldest first.
func (s *Store) HistoricalAlerts() []alert.HistoricalAlert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.historical.values()
}

func (s *Store) HistoricalLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.historical.len()
}

// ReplaceAllHistorical swaps the whole historical collection, keeping at most
// capacity entries from the end of the list. It returns the keys dropped from
// the view: previous entries absent from the list and capped input entries.
func (s *Store) ReplaceAllHistorical(list []alert.HistoricalAlert) []alert.Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replaceHistorical(list)
}

func (s *Store) BeginHistorical() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.historicalSeq++
	return s.historicalSeq
}

// ApplyHistorical is the sequenced form of ReplaceAllHistorical.
func (s *Store) ApplyHistorical(seq uint64, list []alert.HistoricalAlert) ([]alert.Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.historicalSeq {
		return nil, ErrStaleFetch
	}
	return s.replaceHistorical(list), nil
}

func (s *Store) replaceHistorical(list []alert.HistoricalAlert) []alert.Key {
	next := newOrdered[alert.HistoricalAlert]()
	for _, h := range list {
		next.put(h.Key(), h)
	}
	capped := next.evictOldest(next.len() - s.capacity)
	dropped := s.historical.missingFrom(next)
	s.historical = next

	// a capped key may also have been present before
	seen := make(map[alert.Key]struct{}, len(dropped))
	for _, k := range dropped {
		seen[k] = struct{}{}
	}
	for _, k := range capped {
		if _, ok := seen[k]; !ok {
			dropped = append(dropped, k)
		}
	}
	return dropped
}
