// Package alert
package alert

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedKey is returned when a key string cannot be decomposed into a
// market id and a positive alert id.
var ErrMalformedKey = errors.New("malformed alert key")

// Key identifies an alert across its whole lifecycle. An active alert and the
// historical alert it fires into share the same key.
type Key struct {
	MarketID string
	AlertID  int
}

func NewKey(marketID string, alertID int) Key {
	return Key{MarketID: marketID, AlertID: alertID}
}

// String renders the key as "<market-id>:<alert-id>".
func (k Key) String() string {
	return fmt.Sprintf("%s:%d", k.MarketID, k.AlertID)
}

// Valid reports whether the key has a market id and a positive alert id.
func (k Key) Valid() bool {
	return k.MarketID != "" && k.AlertID > 0
}

// ParseKey parses "<market-id>:<alert-id>". The split happens on the last
// colon so market ids containing colons are accepted.
func ParseKey(s string) (Key, error) {
	idx := strings.LastIndex(s, ":")
	if idx < 0 {
		return Key{}, fmt.Errorf("%w: %q has no separator", ErrMalformedKey, s)
	}

	marketID := strings.TrimSpace(s[:idx])
	alertID, err := strconv.Atoi(strings.TrimSpace(s[idx+1:]))
	if err != nil {
		return Key{}, fmt.Errorf("%w: %q: %v", ErrMalformedKey, s, err)
	}

	k := Key{MarketID: marketID, AlertID: alertID}
	if !k.Valid() {
		return Key{}, fmt.Errorf("%w: %q", ErrMalformedKey, s)
	}
	return k, nil
}
