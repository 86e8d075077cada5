package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/amirphl/alertdesk/internal/alert"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeAlert(marketID string, id int, price float64) alert.ActiveAlert {
	return alert.ActiveAlert{
		ID:        id,
		MarketID:  marketID,
		Symbol:    marketID,
		Name:      alert.KindPriceCross,
		Direction: alert.Long,
		Price:     price,
	}
}

func historicalAlert(marketID string, id int, ts time.Time) alert.HistoricalAlert {
	return alert.HistoricalAlert{
		ID:        id,
		MarketID:  marketID,
		Symbol:    marketID,
		Name:      alert.KindPriceCross,
		Trigger:   1,
		Timestamp: ts,
	}
}

func keysOf[V interface{ Key() alert.Key }](list []V) []alert.Key {
	out := make([]alert.Key, len(list))
	for i, v := range list {
		out[i] = v.Key()
	}
	return out
}

func TestStore_Active(t *testing.T) {
	t.Run("Upsert twice keeps one entry with latest values", func(t *testing.T) {
		s := New(0)
		assert.True(t, s.UpsertActive(activeAlert("M1", 1, 100)))
		assert.False(t, s.UpsertActive(activeAlert("M1", 1, 120)))

		require.Equal(t, 1, s.ActiveLen())
		got, ok := s.Active(alert.NewKey("M1", 1))
		require.True(t, ok)
		assert.Equal(t, 120.0, got.Price)
	})

	t.Run("Overwrite keeps enumeration position", func(t *testing.T) {
		s := New(0)
		s.UpsertActive(activeAlert("M1", 1, 100))
		s.UpsertActive(activeAlert("M1", 2, 100))
		s.UpsertActive(activeAlert("M1", 1, 101))

		assert.Equal(t, []alert.Key{{MarketID: "M1", AlertID: 1}, {MarketID: "M1", AlertID: 2}}, keysOf(s.ActiveAlerts()))
	})

	t.Run("Remove reports existence", func(t *testing.T) {
		s := New(0)
		s.UpsertActive(activeAlert("M1", 1, 100))

		assert.True(t, s.RemoveActive(alert.NewKey("M1", 1)))
		assert.False(t, s.RemoveActive(alert.NewKey("M1", 1)))
		assert.False(t, s.RemoveActive(alert.NewKey("M2", 9)))
		assert.Equal(t, 0, s.ActiveLen())
	})

	t.Run("Replace preserves input order and reports vanished keys", func(t *testing.T) {
		s := New(0)
		s.UpsertActive(activeAlert("M1", 1, 100))
		s.UpsertActive(activeAlert("M1", 2, 100))

		removed := s.ReplaceAllActive([]alert.ActiveAlert{
			activeAlert("M3", 3, 1),
			activeAlert("M1", 2, 1),
			activeAlert("M0", 9, 1),
		})

		assert.Equal(t, []alert.Key{{MarketID: "M1", AlertID: 1}}, removed)
		assert.Equal(t, []alert.Key{{MarketID: "M3", AlertID: 3}, {MarketID: "M1", AlertID: 2}, {MarketID: "M0", AlertID: 9}}, keysOf(s.ActiveAlerts()))
	})
}

func TestStore_Sequences(t *testing.T) {
	t.Run("Only the latest issued fetch applies", func(t *testing.T) {
		s := New(0)
		first := s.BeginActive()
		second := s.BeginActive()

		_, err := s.ApplyActive(second, []alert.ActiveAlert{activeAlert("M1", 2, 100)})
		require.NoError(t, err)

		_, err = s.ApplyActive(first, []alert.ActiveAlert{activeAlert("M1", 1, 100)})
		assert.ErrorIs(t, err, ErrStaleFetch)
		assert.Equal(t, []alert.Key{{MarketID: "M1", AlertID: 2}}, keysOf(s.ActiveAlerts()))
	})

	t.Run("Collections are sequenced independently", func(t *testing.T) {
		s := New(0)
		a := s.BeginActive()
		h := s.BeginHistorical()
		s.BeginActive()

		_, err := s.ApplyHistorical(h, []alert.HistoricalAlert{historicalAlert("M1", 1, time.Now())})
		assert.NoError(t, err)
		_, err = s.ApplyActive(a, nil)
		assert.ErrorIs(t, err, ErrStaleFetch)
	})

	t.Run("Push after fetch start is overwritten by the fetch", func(t *testing.T) {
		s := New(0)
		seq := s.BeginActive()
		s.UpsertActive(activeAlert("M1", 5, 100))

		removed, err := s.ApplyActive(seq, []alert.ActiveAlert{activeAlert("M1", 1, 100)})
		require.NoError(t, err)
		assert.Equal(t, []alert.Key{{MarketID: "M1", AlertID: 5}}, removed)
		assert.Equal(t, 1, s.ActiveLen())
	})
}

func TestStore_HistoricalCapacity(t *testing.T) {
	t.Run("Never exceeds default capacity and evicts oldest first", func(t *testing.T) {
		s := New(0)
		base := time.Unix(1_700_000_000, 0)

		var evicted []alert.Key
		for i := 1; i <= 250; i++ {
			evicted = append(evicted, s.AppendHistorical(historicalAlert("M1", i, base.Add(time.Duration(i)*time.Second)))...)
			assert.LessOrEqual(t, s.HistoricalLen(), DefaultHistoricalCapacity)
		}

		require.Len(t, evicted, 50)
		for i, k := range evicted {
			assert.Equal(t, alert.NewKey("M1", i+1), k)
		}

		list := s.HistoricalAlerts()
		require.Len(t, list, 200)
		assert.Equal(t, 51, list[0].ID)
		assert.Equal(t, 250, list[len(list)-1].ID)
	})

	t.Run("Oldest is by insertion order, not timestamp", func(t *testing.T) {
		s := New(2)
		now := time.Now()
		s.AppendHistorical(historicalAlert("M1", 1, now))
		s.AppendHistorical(historicalAlert("M1", 2, now.Add(-time.Hour)))
		evicted := s.AppendHistorical(historicalAlert("M1", 3, now.Add(-2*time.Hour)))

		assert.Equal(t, []alert.Key{{MarketID: "M1", AlertID: 1}}, evicted)
	})

	t.Run("Duplicate append is idempotent", func(t *testing.T) {
		s := New(2)
		now := time.Now()
		s.AppendHistorical(historicalAlert("M1", 1, now))
		s.AppendHistorical(historicalAlert("M1", 2, now))
		evicted := s.AppendHistorical(historicalAlert("M1", 1, now))

		assert.Empty(t, evicted)
		assert.Equal(t, 2, s.HistoricalLen())
	})

	t.Run("Replace caps from the front", func(t *testing.T) {
		s := New(3)
		s.AppendHistorical(historicalAlert("X", 1, time.Now()))

		var list []alert.HistoricalAlert
		for i := 1; i <= 5; i++ {
			list = append(list, historicalAlert("M1", i, time.Now()))
		}
		dropped := s.ReplaceAllHistorical(list)

		assert.ElementsMatch(t, []alert.Key{{MarketID: "X", AlertID: 1}, {MarketID: "M1", AlertID: 1}, {MarketID: "M1", AlertID: 2}}, dropped)
		assert.Equal(t, []alert.Key{{MarketID: "M1", AlertID: 3}, {MarketID: "M1", AlertID: 4}, {MarketID: "M1", AlertID: 5}}, keysOf(s.HistoricalAlerts()))
	})
}

func TestStore_ConcurrentMutations(t *testing.T) {
	s := New(50)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 1; i <= 100; i++ {
				market := fmt.Sprintf("M%d", w)
				s.UpsertActive(activeAlert(market, i, 1))
				s.AppendHistorical(historicalAlert(market, i, time.Now()))
				if i%2 == 0 {
					s.RemoveActive(alert.NewKey(market, i))
				}
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 8*50, s.ActiveLen())
	assert.Equal(t, 50, s.HistoricalLen())
}
