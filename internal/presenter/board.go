package presenter

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/amirphl/alertdesk/internal/alert"
)

// Board keeps the rendered records most recent first, replacing an entry in
// place when its key is seen again. It is a feed, not a mirror of snapshot
// order: a bulk load of [A, B] renders as [B, A], and a row already on the
// board keeps its position when a later snapshot lists it elsewhere.
type Board struct {
	mu         sync.RWMutex
	active     []ActiveRecord
	historical []HistoricalRecord
}

func NewBoard() *Board {
	return &Board{}
}

func (b *Board) OnAlertCreated(rec ActiveRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.active {
		if b.active[i].Key() == rec.Key() {
			b.active[i] = rec
			return
		}
	}
	b.active = append([]ActiveRecord{rec}, b.active...)
}

func (b *Board) OnAlertFired(rec HistoricalRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.historical {
		if b.historical[i].Key() == rec.Key() {
			b.historical[i] = rec
			return
		}
	}
	b.historical = append([]HistoricalRecord{rec}, b.historical...)
}

func (b *Board) OnAlertRemoved(k alert.Key) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.active {
		if b.active[i].Key() == k {
			b.active = append(b.active[:i], b.active[i+1:]...)
			return
		}
	}
}

func (b *Board) OnAlertEvicted(k alert.Key) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.historical {
		if b.historical[i].Key() == k {
			b.historical = append(b.historical[:i], b.historical[i+1:]...)
			return
		}
	}
}

func (b *Board) Active() []ActiveRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]ActiveRecord(nil), b.active...)
}

func (b *Board) Historical() []HistoricalRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]HistoricalRecord(nil), b.historical...)
}

type boardView struct {
	Active     []ActiveRecord     `json:"active"`
	Historical []HistoricalRecord `json:"historical"`
}

// ServeHTTP renders the board as JSON.
func (b *Board) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(boardView{Active: b.Active(), Historical: b.Historical()})
}

// Sinks fans every callback out to several sinks in order.
type Sinks []Sink

func (s Sinks) OnAlertCreated(rec ActiveRecord) {
	for _, sink := range s {
		sink.OnAlertCreated(rec)
	}
}

func (s Sinks) OnAlertFired(rec HistoricalRecord) {
	for _, sink := range s {
		sink.OnAlertFired(rec)
	}
}

func (s Sinks) OnAlertRemoved(k alert.Key) {
	for _, sink := range s {
		sink.OnAlertRemoved(k)
	}
}

func (s Sinks) OnAlertEvicted(k alert.Key) {
	for _, sink := range s {
		sink.OnAlertEvicted(k)
	}
}
