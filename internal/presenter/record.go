// Package presenter turns domain events into display records and user
// notifications.
package presenter

import (
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/alertdesk/internal/alert"
	"github.com/amirphl/alertdesk/internal/tfutils"
)

const (
	DefaultTimeLayout = "2006-01-02 15:04:05"
	neverLabel        = "never"
)

// ActiveRecord is an active alert with its derived display fields.
type ActiveRecord struct {
	alert.ActiveAlert

	PriceSourceLabel      string
	TriggerCondition      string
	CancellationCondition string
	// CancellationPercent is set only when a cancellation threshold exists.
	CancellationPercent string
	CancellationRatio   float64
	PriceLabel          string
	TimeframeLabel      string
	CreatedLabel        string
	ExpiryLabel         string
}

// HistoricalRecord is a fired alert with its derived display fields.
type HistoricalRecord struct {
	alert.HistoricalAlert

	TimeframeLabel string
	TimestampLabel string
}

// Formatters carries the injected renderers. Nil members get defaults.
type Formatters struct {
	Price     alert.PriceFormatter
	Timestamp alert.TimestampFormatter
}

func DefaultTimestamp(t time.Time) string {
	return t.Local().Format(DefaultTimeLayout)
}

func (f Formatters) withDefaults() Formatters {
	if f.Price == nil {
		f.Price = func(_ string, price float64) string {
			return strconv.FormatFloat(price, 'f', -1, 64)
		}
	}
	if f.Timestamp == nil {
		f.Timestamp = DefaultTimestamp
	}
	return f
}

// BuildActiveRecord derives the display fields of an active alert.
func BuildActiveRecord(a alert.ActiveAlert, f Formatters) ActiveRecord {
	f = f.withDefaults()
	src := alert.PriceSourceLabel(a.PriceSource)

	rec := ActiveRecord{
		ActiveAlert:           a,
		PriceSourceLabel:      src,
		TriggerCondition:      alert.TriggerConditionText(a, a.MarketID, src, f.Price),
		CancellationCondition: alert.CancellationConditionText(a, a.MarketID, src, f.Price),
		PriceLabel:            f.Price(a.MarketID, a.Price),
		TimeframeLabel:        tfutils.TimeframeToString(a.Timeframe),
		CreatedLabel:          "-",
		ExpiryLabel:           neverLabel,
	}
	if !a.Created.IsZero() {
		rec.CreatedLabel = f.Timestamp(a.Created)
	}
	if !a.NeverExpires() {
		rec.ExpiryLabel = f.Timestamp(a.Expiry)
	}
	if a.Cancellation && a.CancellationPrice > 0 {
		rec.CancellationRatio = alert.SignedPricePercent(a.CancellationPrice, a.Price, a.Direction)
		rec.CancellationPercent = alert.FormatPercent(rec.CancellationRatio)
	}
	return rec
}

// BuildHistoricalRecord derives the display fields of a fired alert.
func BuildHistoricalRecord(h alert.HistoricalAlert, f Formatters) HistoricalRecord {
	f = f.withDefaults()
	return HistoricalRecord{
		HistoricalAlert: h,
		TimeframeLabel:  tfutils.TimeframeToString(h.Timeframe),
		TimestampLabel:  f.Timestamp(h.Timestamp),
	}
}

// joinMessage builds "{name} {conditionOrReason} {symbol} {message}",
// skipping empty parts.
func joinMessage(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
