package presenter

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/amirphl/alertdesk/internal/alert"
	"github.com/amirphl/alertdesk/internal/market"
	"github.com/amirphl/alertdesk/internal/notifier"
	"github.com/amirphl/alertdesk/internal/reconcile"
	"github.com/amirphl/alertdesk/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(message, title string, severity notifier.Severity) error {
	return m.Called(message, title, severity).Error(0)
}

func (m *mockNotifier) PlaySound(cue string) error {
	return m.Called(cue).Error(0)
}

type recordingSink struct {
	mu         sync.Mutex
	active     []ActiveRecord
	historical []HistoricalRecord
	removed    []alert.Key
	evicted    []alert.Key
}

func (r *recordingSink) OnAlertCreated(rec ActiveRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = append(r.active, rec)
}

func (r *recordingSink) OnAlertFired(rec HistoricalRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.historical = append(r.historical, rec)
}

func (r *recordingSink) OnAlertRemoved(k alert.Key) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, k)
}

func (r *recordingSink) OnAlertEvicted(k alert.Key) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evicted = append(r.evicted, k)
}

func fixedTime(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func TestBuildActiveRecord(t *testing.T) {
	f := Formatters{Price: market.PriceFormatter(market.NewStaticDirectory(market.Market{MarketID: "M1", Precision: 2})), Timestamp: fixedTime}

	tests := []struct {
		name         string
		alert        alert.ActiveAlert
		trigger      string
		cancellation string
		percent      string
		expiry       string
	}{
		{
			name:         "Long with cancellation",
			alert:        alert.ActiveAlert{ID: 1, MarketID: "M1", Name: alert.KindPriceCross, Direction: alert.Long, Price: 100, Cancellation: true, CancellationPrice: 95},
			trigger:      "if bid price goes above 100.00",
			cancellation: "if bid price < 95.00",
			percent:      "-5.00%",
			expiry:       "never",
		},
		{
			name:         "Short with expiry",
			alert:        alert.ActiveAlert{ID: 2, MarketID: "M1", Name: alert.KindPriceCross, Direction: alert.Short, PriceSource: alert.PriceSourceAsk, Price: 100, Cancellation: true, CancellationPrice: 110, Expiry: time.Unix(0, 0).Add(time.Hour)},
			trigger:      "if ask price goes below 100.00",
			cancellation: "if ask price > 110.00",
			percent:      "-10.00%",
			expiry:       "1970-01-01T01:00:00Z",
		},
		{
			name:         "Other kind without cancellation",
			alert:        alert.ActiveAlert{ID: 3, MarketID: "M2", Name: "volume-spike", Direction: alert.Long, PriceSource: alert.PriceSourceMid, Price: 1.5},
			trigger:      "-",
			cancellation: "never",
			expiry:       "never",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := BuildActiveRecord(tt.alert, f)
			assert.Equal(t, tt.trigger, rec.TriggerCondition)
			assert.Equal(t, tt.cancellation, rec.CancellationCondition)
			assert.Equal(t, tt.percent, rec.CancellationPercent)
			assert.Equal(t, tt.expiry, rec.ExpiryLabel)
			assert.Equal(t, "t", rec.TimeframeLabel)
			assert.Equal(t, "-", rec.CreatedLabel)
			assert.Equal(t, tt.alert.Key(), rec.Key())
		})
	}
}

func TestBuildHistoricalRecord(t *testing.T) {
	h := alert.HistoricalAlert{ID: 4, MarketID: "M1", Name: alert.KindPriceCross, Timeframe: 4 * time.Hour, Timestamp: time.Unix(60, 0)}
	rec := BuildHistoricalRecord(h, Formatters{Timestamp: fixedTime})
	assert.Equal(t, "4h", rec.TimeframeLabel)
	assert.Equal(t, "1970-01-01T00:01:00Z", rec.TimestampLabel)
}

func TestAdapter_Dispatch(t *testing.T) {
	created := alert.ActiveAlert{ID: 1, MarketID: "M1", Symbol: "EURUSD", Name: alert.KindPriceCross, Direction: alert.Long, Price: 100, Message: "breakout"}
	fired := alert.HistoricalAlert{ID: 1, MarketID: "M1", Symbol: "EURUSD", Name: alert.KindPriceCross, Trigger: -1, Reason: "price went below 99", Timestamp: time.Unix(1, 0)}

	t.Run("Silent events only reach the sink", func(t *testing.T) {
		n := &mockNotifier{}
		sink := &recordingSink{}
		a := NewAdapter(sink, n, Formatters{})

		a.AlertCreated(created, false)
		a.AlertFired(fired, false)

		assert.Len(t, sink.active, 1)
		assert.Len(t, sink.historical, 1)
		n.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything)
		n.AssertNotCalled(t, "PlaySound", mock.Anything)
	})

	t.Run("Created notifies without sound", func(t *testing.T) {
		n := &mockNotifier{}
		n.On("Notify", "price-cross if bid price goes above 100 EURUSD breakout", titleCreated, notifier.SeverityInfo).Return(nil).Once()
		a := NewAdapter(&recordingSink{}, n, Formatters{})

		a.AlertCreated(created, true)

		n.AssertExpectations(t)
		n.AssertNotCalled(t, "PlaySound", mock.Anything)
	})

	t.Run("Fired notifies with sound", func(t *testing.T) {
		n := &mockNotifier{}
		n.On("Notify", "price-cross price went below 99 EURUSD", titleFired, notifier.SeverityWarning).Return(nil).Once()
		n.On("PlaySound", notifier.CueAlert).Return(nil).Once()
		a := NewAdapter(&recordingSink{}, n, Formatters{})

		a.AlertFired(fired, true)

		n.AssertExpectations(t)
	})

	t.Run("Removed and evicted go to the sink only", func(t *testing.T) {
		sink := &recordingSink{}
		a := NewAdapter(sink, nil, Formatters{})
		a.AlertRemoved(alert.NewKey("M1", 1))
		a.AlertEvicted(alert.NewKey("M1", 2))
		assert.Equal(t, []alert.Key{alert.NewKey("M1", 1)}, sink.removed)
		assert.Equal(t, []alert.Key{alert.NewKey("M1", 2)}, sink.evicted)
	})
}

func TestFiredSeverity(t *testing.T) {
	assert.Equal(t, notifier.SeveritySuccess, FiredSeverity(1))
	assert.Equal(t, notifier.SeverityWarning, FiredSeverity(-2))
	assert.Equal(t, notifier.SeverityInfo, FiredSeverity(0))
}

func TestJoinMessage(t *testing.T) {
	assert.Equal(t, "a b", joinMessage("a", "", " b "))
	assert.Equal(t, "", joinMessage())
}

func TestBoard(t *testing.T) {
	b := NewBoard()
	f := Formatters{}
	b.OnAlertCreated(BuildActiveRecord(alert.ActiveAlert{ID: 1, MarketID: "M1", Price: 1}, f))
	b.OnAlertCreated(BuildActiveRecord(alert.ActiveAlert{ID: 2, MarketID: "M1", Price: 1}, f))
	b.OnAlertCreated(BuildActiveRecord(alert.ActiveAlert{ID: 1, MarketID: "M1", Price: 5}, f))

	list := b.Active()
	require.Len(t, list, 2)
	assert.Equal(t, 2, list[0].ID, "most recent first")
	assert.Equal(t, 5.0, list[1].Price, "replaced in place")

	b.OnAlertRemoved(alert.NewKey("M1", 2))
	assert.Len(t, b.Active(), 1)

	b.OnAlertFired(BuildHistoricalRecord(alert.HistoricalAlert{ID: 7, MarketID: "M1"}, f))
	b.OnAlertEvicted(alert.NewKey("M1", 7))
	assert.Empty(t, b.Historical())

	rec := httptest.NewRecorder()
	b.ServeHTTP(rec, httptest.NewRequest("GET", "/alerts", nil))
	var view map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Contains(t, view, "active")
}

func TestBoard_SnapshotOrder(t *testing.T) {
	b := NewBoard()
	f := Formatters{}
	for _, id := range []int{1, 2, 3} {
		b.OnAlertCreated(BuildActiveRecord(alert.ActiveAlert{ID: id, MarketID: "M1", Price: 1}, f))
	}
	ids := func() []int {
		var out []int
		for _, r := range b.Active() {
			out = append(out, r.ID)
		}
		return out
	}
	assert.Equal(t, []int{3, 2, 1}, ids())

	// a second snapshot listing the same alerts in another order
	for _, id := range []int{3, 1, 2} {
		b.OnAlertCreated(BuildActiveRecord(alert.ActiveAlert{ID: id, MarketID: "M1", Price: 2}, f))
	}
	assert.Equal(t, []int{3, 2, 1}, ids())
	assert.Equal(t, 2.0, b.Active()[0].Price)
}

type stubService struct {
	active []alert.ActiveAlert
}

func (s stubService) ActiveAlerts(context.Context) ([]alert.ActiveAlert, error) {
	return s.active, nil
}

func (s stubService) HistoricalAlerts(context.Context) ([]alert.HistoricalAlert, error) {
	return nil, nil
}

func (s stubService) RemoveAlert(context.Context, string, int) (remote.RemovalResult, error) {
	return remote.RemovalResult{}, nil
}

func TestEndToEnd_TriggerText(t *testing.T) {
	dir := market.NewStaticDirectory(market.Market{MarketID: "M1", Symbol: "EURUSD", Precision: 5})
	sink := &recordingSink{}
	adapter := NewAdapter(sink, nil, Formatters{Price: market.PriceFormatter(dir)})

	engine, err := reconcile.New(reconcile.Deps{
		Service:  stubService{active: []alert.ActiveAlert{{ID: 1, MarketID: "M1", Name: alert.KindPriceCross, Direction: alert.Long, Price: 100, PriceSource: alert.PriceSourceBid}}},
		Markets:  dir,
		Listener: adapter,
	})
	require.NoError(t, err)
	require.NoError(t, engine.RefreshActive(context.Background()))

	require.Len(t, sink.active, 1)
	assert.Equal(t, "if bid price goes above "+market.FormatPrice(dir, "M1", 100), sink.active[0].TriggerCondition)
	assert.Equal(t, "if bid price goes above 100.00000", sink.active[0].TriggerCondition)
}
