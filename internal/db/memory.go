package db

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"
)

// DefaultMemoryEvents bounds the in-memory journal.
const DefaultMemoryEvents = 10000

type MemoryStorage struct {
	mu sync.RWMutex

	// Events (append-only, oldest dropped above maxEvents)
	events    []Event
	maxEvents int
}

func NewMemory(maxEvents int) *MemoryStorage {
	if maxEvents <= 0 {
		maxEvents = DefaultMemoryEvents
	}
	return &MemoryStorage{
		events:    make([]Event, 0, 1024),
		maxEvents: maxEvents,
	}
}

// GetDB returns nil for in-memory storage (no SQL database)
func (m *MemoryStorage) GetDB() *sql.DB { return nil }

func (m *MemoryStorage) LogEvent(ctx context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	event.Time = event.Time.UTC()
	m.events = append(m.events, event)
	if over := len(m.events) - m.maxEvents; over > 0 {
		m.events = append([]Event(nil), m.events[over:]...)
	}
	return nil
}

func (m *MemoryStorage) GetEvents(ctx context.Context, eventType string, start, end time.Time) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	start = start.UTC()
	end = end.UTC()
	var out []Event
	for _, e := range m.events {
		if e.Type == eventType && (e.Time.Equal(start) || e.Time.After(start)) && e.Time.Before(end) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}

func (m *MemoryStorage) DeleteEvents(ctx context.Context, eventType string, before time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	before = before.UTC()
	kept := m.events[:0]
	for _, e := range m.events {
		if e.Type == eventType && e.Time.Before(before) {
			continue
		}
		kept = append(kept, e)
	}
	m.events = kept
	return nil
}
