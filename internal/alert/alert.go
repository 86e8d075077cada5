package alert

import (
	"errors"
	"fmt"
	"time"
)

// KindPriceCross is the only alert kind with a phrased trigger condition.
const KindPriceCross = "price-cross"

// ActiveAlert is a pending trigger condition attached to a strategy.
type ActiveAlert struct {
	ID          int
	MarketID    string
	Symbol      string
	Name        string
	Direction   Direction
	PriceSource PriceSource

	Price             float64
	CancellationPrice float64 // meaningful only when Cancellation is set
	Cancellation      bool

	Timeframe time.Duration // zero means tick level
	Created   time.Time
	Expiry    time.Time // zero means never
	Countdown int
	Message   string
}

func (a ActiveAlert) Key() Key {
	return Key{MarketID: a.MarketID, AlertID: a.ID}
}

// Validate checks the record invariants.
func (a ActiveAlert) Validate() error {
	if !a.Key().Valid() {
		return fmt.Errorf("invalid active alert key %s", a.Key())
	}
	if a.Price <= 0 {
		return fmt.Errorf("active alert %s: price is required", a.Key())
	}
	if !a.Direction.Valid() {
		return fmt.Errorf("active alert %s: invalid direction %d", a.Key(), int(a.Direction))
	}
	if a.Cancellation && a.CancellationPrice <= 0 {
		return fmt.Errorf("active alert %s: cancellation set without a price", a.Key())
	}
	return nil
}

// NeverExpires reports whether the alert has no expiry.
func (a ActiveAlert) NeverExpires() bool {
	return a.Expiry.IsZero()
}

// HistoricalAlert is an already fired signal. It is never mutated.
type HistoricalAlert struct {
	ID        int
	MarketID  string
	Symbol    string
	Name      string
	Trigger   int // sign tells which side fired
	Timeframe time.Duration
	Timestamp time.Time
	LastPrice string
	Reason    string
	Message   string
}

func (h HistoricalAlert) Key() Key {
	return Key{MarketID: h.MarketID, AlertID: h.ID}
}

var errNoTimestamp = errors.New("fire timestamp is required")

func (h HistoricalAlert) Validate() error {
	if !h.Key().Valid() {
		return fmt.Errorf("invalid historical alert key %s", h.Key())
	}
	if h.Timestamp.IsZero() {
		return fmt.Errorf("historical alert %s: %w", h.Key(), errNoTimestamp)
	}
	return nil
}
