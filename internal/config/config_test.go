package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Flags(t *testing.T) {
	t.Setenv("ALERTDESK_AUTH_TOKEN", "token-from-env")

	cfg, err := Load([]string{
		"-service-url", "http://localhost:8080",
		"-refresh-interval", "30s",
		"-markets", "BTCUSDT:BTC/USDT:2,EURUSD:EUR/USD:5",
		"-sound=false",
	})
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.ServiceURL)
	assert.Equal(t, 30*time.Second, cfg.RefreshInterval)
	assert.Equal(t, 200, cfg.HistoricalCapacity)
	assert.False(t, cfg.Sound)
	assert.Equal(t, 30*24*time.Hour, cfg.JournalRetention)
	assert.Equal(t, "token-from-env", cfg.AuthToken)
	assert.Equal(t, []MarketConfig{
		{MarketID: "BTCUSDT", Symbol: "BTC/USDT", Precision: 2},
		{MarketID: "EURUSD", Symbol: "EUR/USD", Precision: 5},
	}, cfg.Markets)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "alertdesk.yaml")
	content := `
service_url: "http://remote"
auth_token: "file-token"
refresh_interval: 2m
historical_capacity: 50
journal_retention: 48h
markets:
  - { market_id: "M1", symbol: "M/ONE", precision: 3 }
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load([]string{"-config", path})
	require.NoError(t, err)

	assert.Equal(t, "http://remote", cfg.ServiceURL)
	assert.Equal(t, "file-token", cfg.AuthToken)
	assert.Equal(t, 2*time.Minute, cfg.RefreshInterval)
	assert.Equal(t, 50, cfg.HistoricalCapacity)
	assert.Equal(t, 48*time.Hour, cfg.JournalRetention)
	assert.Equal(t, 3, cfg.NotificationRetries)
	require.Len(t, cfg.Markets, 1)
	assert.Equal(t, int32(3), cfg.Markets[0].Precision)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("ALERTDESK_SERVICE_URL", "")

	t.Run("Missing service url", func(t *testing.T) {
		_, err := Load(nil)
		assert.Error(t, err)
	})

	t.Run("Malformed market triple", func(t *testing.T) {
		_, err := Load([]string{"-service-url", "http://x", "-markets", "BTCUSDT:2"})
		assert.Error(t, err)
	})

	t.Run("Negative journal retention", func(t *testing.T) {
		_, err := Load([]string{"-service-url", "http://x", "-journal-retention", "-1h"})
		assert.Error(t, err)
	})

	t.Run("Missing file", func(t *testing.T) {
		_, err := Load([]string{"-config", filepath.Join(t.TempDir(), "nope.yaml")})
		assert.Error(t, err)
	})
}
