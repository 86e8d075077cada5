// Package reconcile keeps the local alert store in line with the remote
// alert service, from full pulls and from push events.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/amirphl/alertdesk/internal/alert"
	"github.com/amirphl/alertdesk/internal/journal"
	"github.com/amirphl/alertdesk/internal/market"
	"github.com/amirphl/alertdesk/internal/metrics"
	"github.com/amirphl/alertdesk/internal/notifier"
	"github.com/amirphl/alertdesk/internal/remote"
	"github.com/amirphl/alertdesk/internal/store"
	"github.com/amirphl/alertdesk/internal/utils"
)

var (
	ErrUnknownMarket   = errors.New("unknown market")
	ErrRemovalRejected = errors.New("removal rejected")
)

const notifyTitle = "Alerts"

// Service is the remote source of truth.
type Service interface {
	ActiveAlerts(ctx context.Context) ([]alert.ActiveAlert, error)
	HistoricalAlerts(ctx context.Context) ([]alert.HistoricalAlert, error)
	RemoveAlert(ctx context.Context, marketID string, alertID int) (remote.RemovalResult, error)
}

// Listener receives the domain events. Calls are serialized with the store
// mutation that produced them, so a listener must not call back into the
// Engine from the same goroutine.
type Listener interface {
	AlertCreated(a alert.ActiveAlert, notify bool)
	AlertFired(h alert.HistoricalAlert, notify bool)
	AlertRemoved(k alert.Key)
	AlertEvicted(k alert.Key)
}

type Deps struct {
	Store    *store.Store
	Service  Service
	Markets  market.Directory
	Notifier notifier.Notifier
	Listener Listener
	Journal  journal.Journaler
	Metrics  *metrics.Metrics
}

type Engine struct {
	store    *store.Store
	service  Service
	markets  market.Directory
	notifier notifier.Notifier
	listener Listener
	journal  journal.Journaler
	metrics  *metrics.Metrics
	now      func() time.Time

	// mu orders store mutations together with their listener calls.
	mu sync.Mutex
}

func New(d Deps) (*Engine, error) {
	if d.Service == nil {
		return nil, fmt.Errorf("alert service is required")
	}
	if d.Store == nil {
		d.Store = store.New(store.DefaultHistoricalCapacity)
	}
	if d.Listener == nil {
		d.Listener = nopListener{}
	}
	return &Engine{
		store:    d.Store,
		service:  d.Service,
		markets:  d.Markets,
		notifier: d.Notifier,
		listener: d.Listener,
		journal:  d.Journal,
		metrics:  d.Metrics,
		now:      time.Now,
	}, nil
}

func (e *Engine) Store() *store.Store {
	return e.store
}

// RefreshActive replaces the active collection with the remote one. Every
// loaded alert is emitted without notification. On failure the collection
// is left untouched and one error notification is shown.
func (e *Engine) RefreshActive(ctx context.Context) error {
	seq := e.store.BeginActive()
	alerts, err := e.service.ActiveAlerts(ctx)
	if err != nil {
		e.refreshFailed(ctx, metrics.Active, err)
		return err
	}

	removed, size, err := e.applyActive(seq, alerts)
	if err != nil {
		utils.GetLogger().Debugf("Reconcile | dropping active fetch %d: %v", seq, err)
		e.metrics.Refresh(metrics.Active, "stale")
		return err
	}

	for _, k := range removed {
		e.logEvent(ctx, journal.TypeAlertRemoved, "dropped by refresh", journal.KeyData(k))
	}
	utils.GetLogger().Infof("Reconcile | loaded %d active alerts", size)
	e.metrics.Refresh(metrics.Active, "ok")
	e.metrics.CollectionSize(metrics.Active, size)
	return nil
}

func (e *Engine) applyActive(seq uint64, alerts []alert.ActiveAlert) ([]alert.Key, int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	removed, err := e.store.ApplyActive(seq, alerts)
	if err != nil {
		return nil, 0, err
	}
	for _, k := range removed {
		e.listener.AlertRemoved(k)
	}
	current := e.store.ActiveAlerts()
	for _, a := range current {
		e.listener.AlertCreated(a, false)
	}
	return removed, len(current), nil
}

// RefreshHistorical is RefreshActive for the historical collection. Entries
// that vanish, or that do not fit the capacity, are reported as evicted.
func (e *Engine) RefreshHistorical(ctx context.Context) error {
	seq := e.store.BeginHistorical()
	alerts, err := e.service.HistoricalAlerts(ctx)
	if err != nil {
		e.refreshFailed(ctx, metrics.Historical, err)
		return err
	}

	dropped, size, err := e.applyHistorical(seq, alerts)
	if err != nil {
		utils.GetLogger().Debugf("Reconcile | dropping historical fetch %d: %v", seq, err)
		e.metrics.Refresh(metrics.Historical, "stale")
		return err
	}

	utils.GetLogger().Infof("Reconcile | loaded %d historical alerts (capacity %d)", size, e.store.Capacity())
	e.metrics.Refresh(metrics.Historical, "ok")
	e.metrics.Evicted(len(dropped))
	e.metrics.CollectionSize(metrics.Historical, size)
	return nil
}

func (e *Engine) applyHistorical(seq uint64, alerts []alert.HistoricalAlert) ([]alert.Key, int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	dropped, err := e.store.ApplyHistorical(seq, alerts)
	if err != nil {
		return nil, 0, err
	}
	for _, k := range dropped {
		e.listener.AlertEvicted(k)
	}
	current := e.store.HistoricalAlerts()
	for _, h := range current {
		e.listener.AlertFired(h, false)
	}
	return dropped, len(current), nil
}

// RefreshAll runs both refreshes concurrently and waits for them. A fetch
// superseded by a newer one is not an error here.
func (e *Engine) RefreshAll(ctx context.Context) error {
	var wg sync.WaitGroup
	var activeErr, historicalErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		activeErr = ignoreStale(e.RefreshActive(ctx))
	}()
	go func() {
		defer wg.Done()
		historicalErr = ignoreStale(e.RefreshHistorical(ctx))
	}()
	wg.Wait()
	return errors.Join(activeErr, historicalErr)
}

func ignoreStale(err error) error {
	if errors.Is(err, store.ErrStaleFetch) {
		return nil
	}
	return err
}

// RefreshAllAsync starts RefreshAll without waiting for it.
func (e *Engine) RefreshAllAsync(ctx context.Context) {
	go func() {
		if err := e.RefreshAll(ctx); err != nil {
			utils.GetLogger().Warnf("Reconcile | refresh: %v", err)
		}
	}()
}

// HandlePushCreate stores a newly created alert and emits it with
// notification.
func (e *Engine) HandlePushCreate(ctx context.Context, marketID string, alertID int, ts time.Time, payload []byte) error {
	key := alert.NewKey(marketID, alertID)
	if !key.Valid() {
		return fmt.Errorf("%w: %s", alert.ErrMalformedKey, key)
	}
	a, err := remote.DecodeActiveAlert(payload, key, ts)
	if err != nil {
		utils.GetLogger().Warnf("Reconcile | ignoring created alert %s: %v", key, err)
		return err
	}

	e.mu.Lock()
	e.store.UpsertActive(a)
	e.listener.AlertCreated(a, true)
	size := e.store.ActiveLen()
	e.mu.Unlock()

	e.metrics.PushEvent("created")
	e.metrics.CollectionSize(metrics.Active, size)
	e.logEvent(ctx, journal.TypeAlertCreated, a.Name+" "+a.Symbol, journal.KeyData(key))
	return nil
}

// HandlePushFire appends a fired alert, emits it with notification and
// reports anything the capacity policy evicted.
func (e *Engine) HandlePushFire(ctx context.Context, marketID string, alertID int, ts time.Time, payload []byte) error {
	key := alert.NewKey(marketID, alertID)
	if !key.Valid() {
		return fmt.Errorf("%w: %s", alert.ErrMalformedKey, key)
	}
	h, err := remote.DecodeHistoricalAlert(payload, key, ts)
	if err != nil {
		utils.GetLogger().Warnf("Reconcile | ignoring fired alert %s: %v", key, err)
		return err
	}

	e.mu.Lock()
	evicted := e.store.AppendHistorical(h)
	e.listener.AlertFired(h, true)
	for _, k := range evicted {
		e.listener.AlertEvicted(k)
	}
	size := e.store.HistoricalLen()
	e.mu.Unlock()

	e.metrics.PushEvent("fired")
	e.metrics.Evicted(len(evicted))
	e.metrics.CollectionSize(metrics.Historical, size)

	data := journal.KeyData(key)
	data["trigger"] = h.Trigger
	data["last_price"] = h.LastPrice
	e.logEvent(ctx, journal.TypeAlertFired, strings.TrimSpace(h.Name+" "+h.Reason), data)
	for _, k := range evicted {
		e.logEvent(ctx, journal.TypeAlertEvicted, "historical capacity", journal.KeyData(k))
	}
	return nil
}

// HandlePushRemove drops an active alert. Nothing is emitted when the alert
// was not known.
func (e *Engine) HandlePushRemove(ctx context.Context, marketID string, alertID int, ts time.Time) bool {
	key := alert.NewKey(marketID, alertID)

	e.mu.Lock()
	if !e.store.RemoveActive(key) {
		e.mu.Unlock()
		return false
	}
	e.listener.AlertRemoved(key)
	size := e.store.ActiveLen()
	e.mu.Unlock()

	e.metrics.PushEvent("removed")
	e.metrics.CollectionSize(metrics.Active, size)
	data := journal.KeyData(key)
	data["timestamp"] = ts.Unix()
	e.logEvent(ctx, journal.TypeAlertRemoved, "removed by server", data)
	return true
}

// RequestRemoval asks the service to delete the alert identified by rawKey
// ("<market-id>:<alert-id>"). Malformed keys and unknown markets are dropped
// locally without a request. The store is not touched; the removal lands with
// the matching push event or the next refresh.
func (e *Engine) RequestRemoval(ctx context.Context, rawKey string) error {
	key, err := alert.ParseKey(rawKey)
	if err != nil {
		utils.GetLogger().Debugf("Reconcile | rejecting removal: %v", err)
		e.metrics.Removal("invalid")
		return err
	}

	marketID := key.MarketID
	if e.markets != nil {
		m, ok := e.markets.Lookup(key.MarketID)
		if !ok {
			utils.GetLogger().Debugf("Reconcile | rejecting removal of %s: unknown market", key)
			e.metrics.Removal("invalid")
			return fmt.Errorf("%w: %s", ErrUnknownMarket, key.MarketID)
		}
		marketID = m.MarketID
	}

	e.logEvent(ctx, journal.TypeRemovalRequested, "", journal.KeyData(key))

	res, err := e.service.RemoveAlert(ctx, marketID, key.AlertID)
	if err != nil {
		utils.GetLogger().Errorf("Reconcile | removal of %s failed: %v", key, err)
		e.metrics.Removal("error")
		e.notify(fmt.Sprintf("Unable to remove alert %s: %v", key, err), notifier.SeverityError)
		e.logEvent(ctx, journal.TypeRemovalFailed, err.Error(), journal.KeyData(key))
		return err
	}

	if res.Error {
		e.metrics.Removal("rejected")
		messages := res.Messages
		if len(messages) == 0 {
			messages = []string{fmt.Sprintf("Removal of alert %s rejected", key)}
		}
		for _, msg := range messages {
			e.notify(msg, notifier.SeverityError)
		}
		e.logEvent(ctx, journal.TypeRemovalFailed, strings.Join(messages, "; "), journal.KeyData(key))
		return fmt.Errorf("%w: %s", ErrRemovalRejected, strings.Join(messages, "; "))
	}

	e.metrics.Removal("ok")
	e.notify(fmt.Sprintf("Removal of alert %s accepted", key), notifier.SeveritySuccess)
	return nil
}

func (e *Engine) refreshFailed(ctx context.Context, collection string, err error) {
	utils.GetLogger().Errorf("Reconcile | %s refresh failed: %v", collection, err)
	e.metrics.Refresh(collection, "error")
	e.notify(fmt.Sprintf("Unable to refresh %s alerts", collection), notifier.SeverityError)
	e.logEvent(ctx, journal.TypeRefreshFailed, err.Error(), map[string]any{"collection": collection})
}

func (e *Engine) notify(message string, severity notifier.Severity) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Notify(message, notifyTitle, severity); err != nil {
		utils.GetLogger().Warnf("Reconcile | notify: %v", err)
	}
}

// logEvent journals an event. Journal failures never affect the store.
func (e *Engine) logEvent(ctx context.Context, eventType, description string, data map[string]any) {
	if e.journal == nil {
		return
	}
	ev := journal.Event{Time: e.now(), Type: eventType, Description: description, Data: data}
	if err := e.journal.LogEvent(ctx, ev); err != nil {
		utils.GetLogger().Warnf("Reconcile | journal %s: %v", eventType, err)
	}
}

type nopListener struct{}

func (nopListener) AlertCreated(alert.ActiveAlert, bool) {}
func (nopListener) AlertFired(alert.HistoricalAlert, bool) {}
func (nopListener) AlertRemoved(alert.Key) {}
func (nopListener) AlertEvicted(alert.Key) {}
