// Package market
package market

import (
	"strings"
	"sync"
)

// Market is the dashboard view of a tradable instrument.
type Market struct {
	MarketID  string // canonical identifier used by the remote service
	Symbol    string // display symbol
	Precision int32  // price decimals, 0 when unknown
}

// Directory resolves a market id to its canonical market.
type Directory interface {
	Lookup(marketID string) (Market, bool)
}

// StaticDirectory is an in-memory Directory. Lookups try the exact id first
// and then the normalized symbol.
type StaticDirectory struct {
	mu         sync.RWMutex
	markets    map[string]Market
	normalized map[string]string
}

func NewStaticDirectory(markets ...Market) *StaticDirectory {
	d := &StaticDirectory{
		markets:    make(map[string]Market),
		normalized: make(map[string]string),
	}
	for _, m := range markets {
		d.add(m)
	}
	return d
}

// Add registers or replaces a market.
func (d *StaticDirectory) Add(m Market) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.add(m)
}

// AddIfAbsent registers a market unless its id is already known. It reports
// whether the market was added.
func (d *StaticDirectory) AddIfAbsent(m Market) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.markets[m.MarketID]; ok {
		return false
	}
	d.add(m)
	return true
}

func (d *StaticDirectory) add(m Market) {
	if m.Symbol == "" {
		m.Symbol = m.MarketID
	}
	d.markets[m.MarketID] = m
	d.normalized[NormalizeSymbol(m.MarketID)] = m.MarketID
	d.normalized[NormalizeSymbol(m.Symbol)] = m.MarketID
}

func (d *StaticDirectory) Lookup(marketID string) (Market, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if m, ok := d.markets[marketID]; ok {
		return m, true
	}
	if id, ok := d.normalized[NormalizeSymbol(marketID)]; ok {
		return d.markets[id], true
	}
	return Market{}, false
}

func (d *StaticDirectory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.markets)
}

// NormalizeSymbol converts e.g. btc-usdt or BTC/USDT to BTCUSDT
func NormalizeSymbol(symbol string) string {
	r := strings.NewReplacer("-", "", "/", "", "_", "")
	return strings.ToUpper(r.Replace(strings.TrimSpace(symbol)))
}
