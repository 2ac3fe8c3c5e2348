package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
api:
  base-url: "http://api.example.com"
payment:
  listing:
    interval-ms: 5000
    max-attempts: 10
  publish:
    interval-ms: 3000
database:
  host: "db"
`

func writeConfig(t *testing.T, body string) string {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o600))
	return dir
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, testConfig))
	require.NoError(t, err)

	assert.Equal(t, "http://api.example.com", cfg.API.BaseURL)
	assert.Equal(t, 10_000, cfg.API.TimeoutMs)
	assert.Equal(t, 5*time.Second, cfg.Payment.Listing.Interval())
	assert.Equal(t, 10, cfg.Payment.Listing.MaxAttempts)
	assert.Equal(t, 3*time.Second, cfg.Payment.Publish.Interval())
	assert.Equal(t, 3*time.Second, cfg.Payment.Credits.Interval())
	assert.True(t, cfg.Payment.Credits.Authenticated)
	assert.Equal(t, "hm_session", cfg.Session.CookieName)
	assert.Equal(t, 7*24*time.Hour, cfg.Session.TTL())
	assert.Equal(t, "payment-outcomes", cfg.Kafka.Topic.PaymentOutcomes)
	assert.Equal(t, "db", cfg.Database.Host)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("HM_API_BASE_URL", "http://override.example.com")
	t.Setenv("HM_PAYMENT_PUBLISH_INTERVAL_MS", "1500")

	cfg, err := LoadConfig(writeConfig(t, testConfig))
	require.NoError(t, err)

	assert.Equal(t, "http://override.example.com", cfg.API.BaseURL)
	assert.Equal(t, 1500*time.Millisecond, cfg.Payment.Publish.Interval())
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(t.TempDir())
	assert.Error(t, err)
}
