package presenter

import (
	"github.com/amirphl/alertdesk/internal/alert"
	"github.com/amirphl/alertdesk/internal/notifier"
	"github.com/amirphl/alertdesk/internal/utils"
)

const (
	titleCreated = "Alert created"
	titleFired   = "Alert"
)

// Sink renders display records. It owns presentation order; the adapter
// never reads back from it.
type Sink interface {
	OnAlertCreated(rec ActiveRecord)
	OnAlertFired(rec HistoricalRecord)
	OnAlertRemoved(k alert.Key)
	OnAlertEvicted(k alert.Key)
}

// Adapter receives engine events, forwards display records to the sink and
// dispatches notifications for events flagged notify.
type Adapter struct {
	sink       Sink
	notifier   notifier.Notifier
	formatters Formatters
}

func NewAdapter(sink Sink, n notifier.Notifier, f Formatters) *Adapter {
	return &Adapter{sink: sink, notifier: n, formatters: f.withDefaults()}
}

func (a *Adapter) AlertCreated(al alert.ActiveAlert, notify bool) {
	rec := BuildActiveRecord(al, a.formatters)
	if a.sink != nil {
		a.sink.OnAlertCreated(rec)
	}
	if notify {
		a.dispatch(CreatedMessage(rec), titleCreated, notifier.SeverityInfo, false)
	}
}

func (a *Adapter) AlertFired(h alert.HistoricalAlert, notify bool) {
	rec := BuildHistoricalRecord(h, a.formatters)
	if a.sink != nil {
		a.sink.OnAlertFired(rec)
	}
	if notify {
		a.dispatch(FiredMessage(rec), titleFired, FiredSeverity(h.Trigger), true)
	}
}

func (a *Adapter) AlertRemoved(k alert.Key) {
	if a.sink != nil {
		a.sink.OnAlertRemoved(k)
	}
}

func (a *Adapter) AlertEvicted(k alert.Key) {
	if a.sink != nil {
		a.sink.OnAlertEvicted(k)
	}
}

func (a *Adapter) dispatch(message, title string, severity notifier.Severity, sound bool) {
	if a.notifier == nil {
		return
	}
	if err := a.notifier.Notify(message, title, severity); err != nil {
		utils.GetLogger().Warnf("Presenter | notify: %v", err)
	}
	if sound {
		if err := a.notifier.PlaySound(notifier.CueAlert); err != nil {
			utils.GetLogger().Warnf("Presenter | sound: %v", err)
		}
	}
}

// CreatedMessage is the notification text of a new active alert.
func CreatedMessage(rec ActiveRecord) string {
	return joinMessage(rec.Name, rec.TriggerCondition, rec.Symbol, rec.Message)
}

// FiredMessage is the notification text of a fired alert.
func FiredMessage(rec HistoricalRecord) string {
	return joinMessage(rec.Name, rec.Reason, rec.Symbol, rec.Message)
}

// FiredSeverity maps the trigger side to a severity: up is success, down is
// a warning.
func FiredSeverity(trigger int) notifier.Severity {
	switch {
	case trigger > 0:
		return notifier.SeveritySuccess
	case trigger < 0:
		return notifier.SeverityWarning
	default:
		return notifier.SeverityInfo
	}
}
