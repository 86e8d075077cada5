package alert

import (
	"fmt"
	"strconv"
	"time"
)

// PriceFormatter renders a price with the precision of the given market.
type PriceFormatter func(marketID string, price float64) string

// TimestampFormatter renders an absolute time for display.
type TimestampFormatter func(t time.Time) string

func defaultPriceFormatter(_ string, price float64) string {
	return strconv.FormatFloat(price, 'f', -1, 64)
}

// PriceSourceLabel maps a price source to its display label. Unknown sources
// yield an empty string.
func PriceSourceLabel(src PriceSource) string {
	switch src {
	case PriceSourceBid:
		return "bid"
	case PriceSourceAsk:
		return "ask"
	case PriceSourceMid:
		return "mid"
	default:
		return ""
	}
}

// TriggerConditionText phrases the trigger of a price-cross alert. Any other
// kind, or an alert without a direction, renders "-".
func TriggerConditionText(a ActiveAlert, marketID, srcLabel string, format PriceFormatter) string {
	if a.Name != KindPriceCross {
		return "-"
	}
	if format == nil {
		format = defaultPriceFormatter
	}

	switch {
	case a.Direction > 0:
		return fmt.Sprintf("if %s price goes above %s", srcLabel, format(marketID, a.Price))
	case a.Direction < 0:
		return fmt.Sprintf("if %s price goes below %s", srcLabel, format(marketID, a.Price))
	default:
		return "-"
	}
}

// CancellationConditionText phrases the cancellation threshold: below it for
// long alerts, above it for short ones, "never" when none is set.
func CancellationConditionText(a ActiveAlert, marketID, srcLabel string, format PriceFormatter) string {
	if !a.Cancellation || a.CancellationPrice <= 0 {
		return "never"
	}
	if format == nil {
		format = defaultPriceFormatter
	}

	switch {
	case a.Direction > 0:
		return fmt.Sprintf("if %s price < %s", srcLabel, format(marketID, a.CancellationPrice))
	case a.Direction < 0:
		return fmt.Sprintf("if %s price > %s", srcLabel, format(marketID, a.CancellationPrice))
	default:
		return "-"
	}
}

// SignedPricePercent returns (cancellationPrice/entryPrice - 1) * sign(direction)
// as a ratio. A zero entry price yields 0.
func SignedPricePercent(cancellationPrice, entryPrice float64, dir Direction) float64 {
	if entryPrice == 0 {
		return 0
	}
	return (cancellationPrice/entryPrice - 1) * dir.Sign()
}

// FormatPercent renders a ratio as a percentage with two decimals, e.g.
// -0.05 -> "-5.00%".
func FormatPercent(ratio float64) string {
	return fmt.Sprintf("%.2f%%", ratio*100)
}
