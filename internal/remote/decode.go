package remote

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/amirphl/alertdesk/internal/alert"
	"github.com/amirphl/alertdesk/internal/tfutils"
	"github.com/go-playground/validator/v10"
)

// ErrDecode marks a record that could not be turned into a typed alert.
var ErrDecode = errors.New("invalid alert record")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type activeRecord struct {
	ID                int             `json:"id" validate:"gt=0"`
	MarketID          string          `json:"market-id" validate:"required"`
	Symbol            string          `json:"symbol"`
	Name              string          `json:"name" validate:"required"`
	Direction         alert.Direction `json:"direction" validate:"oneof=-1 1"`
	PriceSource       int             `json:"price-src"`
	Price             float64         `json:"price" validate:"gt=0"`
	CancellationPrice float64         `json:"cancellation-price" validate:"gte=0"`
	Cancellation      *bool           `json:"cancellation"`
	Timeframe         *float64        `json:"timeframe" validate:"omitempty,gte=0"`
	Created           float64         `json:"created" validate:"gte=0"`
	Expiry            float64         `json:"expiry"`
	Countdown         int             `json:"countdown"`
	Message           string          `json:"message"`
}

type historicalRecord struct {
	ID        int       `json:"id" validate:"gt=0"`
	MarketID  string    `json:"market-id" validate:"required"`
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name" validate:"required"`
	Trigger   int       `json:"trigger"`
	Timeframe *float64  `json:"timeframe" validate:"omitempty,gte=0"`
	Timestamp float64   `json:"timestamp" validate:"gt=0"`
	LastPrice flexValue `json:"last-price"`
	Reason    string    `json:"reason"`
	Message   string    `json:"message"`
}

// flexValue accepts a JSON string or number and keeps its text form.
type flexValue string

func (f *flexValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*f = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexValue(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*f = flexValue(n.String())
	}
	return nil
}

// maxUnix is 9999-12-31T23:59:59Z. Later instants saturate to it.
const maxUnix = 253402300799

// FromUnix converts fractional unix seconds. Zero or negative is the zero time.
func FromUnix(sec float64) time.Time {
	if sec <= 0 || math.IsNaN(sec) {
		return time.Time{}
	}
	if sec >= maxUnix {
		return time.Unix(maxUnix, 0)
	}
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(frac*float64(time.Second)))
}

func secondsToDuration(sec *float64) time.Duration {
	if sec == nil {
		return 0
	}
	return tfutils.FromSeconds(*sec)
}

func validationError(err error) error {
	var fields validator.ValidationErrors
	if errors.As(err, &fields) {
		parts := make([]string, 0, len(fields))
		for _, f := range fields {
			parts = append(parts, f.Field()+" "+f.Tag())
		}
		return fmt.Errorf("%w: %s", ErrDecode, strings.Join(parts, ", "))
	}
	return fmt.Errorf("%w: %v", ErrDecode, err)
}

func (r activeRecord) toAlert() (alert.ActiveAlert, error) {
	if err := validate.Struct(r); err != nil {
		return alert.ActiveAlert{}, validationError(err)
	}

	cancellation := r.CancellationPrice > 0
	if r.Cancellation != nil {
		cancellation = *r.Cancellation
	}

	a := alert.ActiveAlert{
		ID:                r.ID,
		MarketID:          r.MarketID,
		Symbol:            r.Symbol,
		Name:              r.Name,
		Direction:         r.Direction,
		PriceSource:       alert.PriceSource(r.PriceSource),
		Price:             r.Price,
		CancellationPrice: r.CancellationPrice,
		Cancellation:      cancellation,
		Timeframe:         secondsToDuration(r.Timeframe),
		Created:           FromUnix(r.Created),
		Expiry:            FromUnix(r.Expiry),
		Countdown:         r.Countdown,
		Message:           r.Message,
	}
	if a.Symbol == "" {
		a.Symbol = a.MarketID
	}
	if err := a.Validate(); err != nil {
		return alert.ActiveAlert{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return a, nil
}

func (r historicalRecord) toAlert() (alert.HistoricalAlert, error) {
	if err := validate.Struct(r); err != nil {
		return alert.HistoricalAlert{}, validationError(err)
	}

	h := alert.HistoricalAlert{
		ID:        r.ID,
		MarketID:  r.MarketID,
		Symbol:    r.Symbol,
		Name:      r.Name,
		Trigger:   r.Trigger,
		Timeframe: secondsToDuration(r.Timeframe),
		Timestamp: FromUnix(r.Timestamp),
		LastPrice: string(r.LastPrice),
		Reason:    r.Reason,
		Message:   r.Message,
	}
	if h.Symbol == "" {
		h.Symbol = h.MarketID
	}
	if err := h.Validate(); err != nil {
		return alert.HistoricalAlert{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return h, nil
}

// DecodeActiveAlert decodes a pushed active alert payload. A valid key
// overrides the identity carried by the payload and ts fills a missing
// creation time.
func DecodeActiveAlert(data []byte, key alert.Key, ts time.Time) (alert.ActiveAlert, error) {
	var r activeRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return alert.ActiveAlert{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if key.Valid() {
		r.MarketID, r.ID = key.MarketID, key.AlertID
	}
	a, err := r.toAlert()
	if err != nil {
		return a, err
	}
	if a.Created.IsZero() {
		a.Created = ts
	}
	return a, nil
}

// DecodeHistoricalAlert decodes a pushed fired alert payload. A valid key
// overrides the payload identity and ts fills a missing fire time.
func DecodeHistoricalAlert(data []byte, key alert.Key, ts time.Time) (alert.HistoricalAlert, error) {
	var r historicalRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return alert.HistoricalAlert{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if key.Valid() {
		r.MarketID, r.ID = key.MarketID, key.AlertID
	}
	if r.Timestamp <= 0 && !ts.IsZero() {
		r.Timestamp = float64(ts.UnixNano()) / float64(time.Second)
	}
	return r.toAlert()
}

// decodeList decodes each element independently so a bad record only drops
// itself. It returns the good values and one error per skipped record.
func decodeList[R any, A any](raw []json.RawMessage, conv func(R) (A, error)) ([]A, []error) {
	out := make([]A, 0, len(raw))
	var errs []error
	for i, item := range raw {
		var r R
		if err := json.Unmarshal(item, &r); err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w: %v", i, ErrDecode, err))
			continue
		}
		a, err := conv(r)
		if err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		out = append(out, a)
	}
	return out, errs
}
