package market

import (
	"github.com/amirphl/alertdesk/internal/alert"
	"github.com/shopspring/decimal"
)

// FormatPrice renders price with the precision of the market. Unknown
// markets and markets without a precision get the shortest exact decimal.
func FormatPrice(d Directory, marketID string, price float64) string {
	v := decimal.NewFromFloat(price)
	if d != nil {
		if m, ok := d.Lookup(marketID); ok && m.Precision > 0 {
			return v.StringFixed(m.Precision)
		}
	}
	return v.String()
}

// PriceFormatter binds FormatPrice to a directory.
func PriceFormatter(d Directory) alert.PriceFormatter {
	return func(marketID string, price float64) string {
		return FormatPrice(d, marketID, price)
	}
}

// PrecisionOf returns the number of decimals in a quoted price string, e.g.
// "27123.40" -> 2. Unparseable input yields 0.
func PrecisionOf(price string) int32 {
	v, err := decimal.NewFromString(price)
	if err != nil {
		return 0
	}
	if exp := v.Exponent(); exp < 0 {
		return -exp
	}
	return 0
}
