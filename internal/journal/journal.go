package journal

import (
	"context"
	"time"

	"github.com/amirphl/alertdesk/internal/alert"
)

// Event types.
const (
	TypeAlertCreated     = "alert_created"
	TypeAlertFired       = "alert_fired"
	TypeAlertRemoved     = "alert_removed"
	TypeAlertEvicted     = "alert_evicted"
	TypeRefreshFailed    = "refresh_failed"
	TypeRemovalRequested = "removal_requested"
	TypeRemovalFailed    = "removal_failed"
)

// Types lists every event type the engine journals.
var Types = []string{
	TypeAlertCreated,
	TypeAlertFired,
	TypeAlertRemoved,
	TypeAlertEvicted,
	TypeRefreshFailed,
	TypeRemovalRequested,
	TypeRemovalFailed,
}

// Event represents a journaled event.
type Event struct {
	Time        time.Time
	Type        string // e.g., "alert_fired", "refresh_failed", etc.
	Description string
	Data        map[string]any
}

// Journaler interface for journaling events.
type Journaler interface {
	LogEvent(ctx context.Context, event Event) error
	GetEvents(ctx context.Context, eventType string, start, end time.Time) ([]Event, error)
}

// KeyData is the common payload of per-alert events.
func KeyData(k alert.Key) map[string]any {
	return map[string]any{
		"market_id": k.MarketID,
		"alert_id":  k.AlertID,
	}
}
