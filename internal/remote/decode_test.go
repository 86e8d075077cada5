package remote

import (
	"math"
	"testing"
	"time"

	"github.com/amirphl/alertdesk/internal/alert"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeActiveAlert(t *testing.T) {
	ts := time.Unix(1700000000, 0)

	t.Run("Key and timestamp fill the payload", func(t *testing.T) {
		a, err := DecodeActiveAlert([]byte(`{"name":"price-cross","direction":"buy","price":1.5,"price-src":2}`), alert.NewKey("M1", 4), ts)
		require.NoError(t, err)
		assert.Equal(t, alert.NewKey("M1", 4), a.Key())
		assert.Equal(t, alert.Long, a.Direction)
		assert.Equal(t, alert.PriceSourceMid, a.PriceSource)
		assert.True(t, a.Created.Equal(ts))
	})

	t.Run("Unknown price source is kept", func(t *testing.T) {
		a, err := DecodeActiveAlert([]byte(`{"name":"price-cross","direction":1,"price":1,"price-src":5}`), alert.NewKey("M1", 1), ts)
		require.NoError(t, err)
		assert.Equal(t, alert.PriceSource(5), a.PriceSource)
		assert.Equal(t, "", alert.PriceSourceLabel(a.PriceSource))
	})

	t.Run("Huge timeframe saturates", func(t *testing.T) {
		a, err := DecodeActiveAlert([]byte(`{"name":"price-cross","direction":1,"price":1,"timeframe":1e13}`), alert.NewKey("M1", 1), ts)
		require.NoError(t, err)
		assert.Positive(t, a.Timeframe)
	})

	t.Run("Payload identity used without key", func(t *testing.T) {
		a, err := DecodeActiveAlert([]byte(`{"id":9,"market-id":"M2","name":"price-cross","direction":-1,"price":3,"created":1600000000}`), alert.Key{}, ts)
		require.NoError(t, err)
		assert.Equal(t, alert.NewKey("M2", 9), a.Key())
		assert.Equal(t, int64(1600000000), a.Created.Unix())
	})

	tests := []struct {
		name string
		data string
	}{
		{"Missing price", `{"name":"price-cross","direction":1}`},
		{"Zero direction", `{"name":"price-cross","direction":0,"price":1}`},
		{"Cancellation flag without price", `{"name":"price-cross","direction":1,"price":1,"cancellation":true}`},
		{"Not json", `nope`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeActiveAlert([]byte(tt.data), alert.NewKey("M1", 1), ts)
			assert.ErrorIs(t, err, ErrDecode)
		})
	}
}

func TestDecodeHistoricalAlert(t *testing.T) {
	ts := time.Unix(1700000000, 0)

	h, err := DecodeHistoricalAlert([]byte(`{"name":"price-cross","trigger":1,"last-price":101.25}`), alert.NewKey("M1", 2), ts)
	require.NoError(t, err)
	assert.Equal(t, alert.NewKey("M1", 2), h.Key())
	assert.Equal(t, "101.25", h.LastPrice)
	assert.Equal(t, ts.Unix(), h.Timestamp.Unix())

	_, err = DecodeHistoricalAlert([]byte(`{"name":"price-cross"}`), alert.NewKey("M1", 2), time.Time{})
	assert.ErrorIs(t, err, ErrDecode)

	_, err = DecodeHistoricalAlert([]byte(`{"timestamp":1}`), alert.NewKey("M1", 2), ts)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestFromUnix(t *testing.T) {
	assert.True(t, FromUnix(0).IsZero())
	assert.True(t, FromUnix(-5).IsZero())
	got := FromUnix(10.5)
	assert.Equal(t, int64(10), got.Unix())
	assert.Equal(t, 500*time.Millisecond, time.Duration(got.Nanosecond()))
	assert.Equal(t, int64(maxUnix), FromUnix(1e20).Unix())
	assert.Equal(t, int64(maxUnix), FromUnix(math.Inf(1)).Unix())
}
