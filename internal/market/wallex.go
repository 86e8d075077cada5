package market

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/alertdesk/internal/utils"
	wallex "github.com/wallexchange/wallex-go"
)

// WallexDirectory is a Directory filled from the Wallex market list.
// Markets registered before Load keep their settings.
type WallexDirectory struct {
	*StaticDirectory
	fetch func() ([]Market, error)
}

func NewWallexDirectory(apiKey string, base *StaticDirectory) *WallexDirectory {
	client := wallex.New(wallex.ClientOptions{APIKey: apiKey})
	return newWallexDirectory(base, func() ([]Market, error) {
		markets, err := client.Markets()
		if err != nil {
			return nil, err
		}
		out := make([]Market, 0, len(markets))
		for _, m := range markets {
			out = append(out, Market{
				MarketID:  m.Symbol,
				Symbol:    m.Symbol,
				Precision: PrecisionOf(string(m.Stats.BidPrice)),
			})
		}
		return out, nil
	})
}

func newWallexDirectory(base *StaticDirectory, fetch func() ([]Market, error)) *WallexDirectory {
	if base == nil {
		base = NewStaticDirectory()
	}
	return &WallexDirectory{StaticDirectory: base, fetch: fetch}
}

// Load fetches the market list and registers unknown markets.
func (w *WallexDirectory) Load(ctx context.Context) error {
	var markets []Market
	err := retry(ctx, 3, 2*time.Second, func() error {
		var err error
		markets, err = w.fetch()
		if err != nil {
			return fmt.Errorf("fetching markets: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("market list failed: %w", err)
	}
	if len(markets) == 0 {
		return errors.New("no markets found")
	}

	added := 0
	for _, m := range markets {
		if w.AddIfAbsent(m) {
			added++
		}
	}
	utils.GetLogger().Infof("Market | Wallex directory loaded %d markets (%d new)", len(markets), added)
	return nil
}

// retry wraps a function with retry logic for transient errors, using exponential backoff and error logging.
func retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	backoff := delay
	var err error
	for i := 1; i <= attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		utils.GetLogger().Warnf("Market | Retry attempt %d/%d failed: %v. Backing off for %v", i, attempts, err, backoff)
		if i == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return fmt.Errorf("all retry attempts failed: %w", err)
}
