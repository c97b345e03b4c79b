package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mavuno/mavuno-api/internal/pkg/env"
)

func withEnv(t *testing.T, vars map[string]string) {
	t.Helper()
	env.Env = vars
	t.Cleanup(func() { env.Env = nil })
}

func TestLoadDefaults(t *testing.T) {
	withEnv(t, map[string]string{
		"WAVE_API_KEY":        "wave_sn_prod_key",
		"WAVE_WEBHOOK_SECRET": "wave_sn_WHS_secret",
	})

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.ListenAddr())
	assert.Equal(t, "mavuno-api", cfg.ServiceName)
	assert.Equal(t, "https://api.wave.com", cfg.Wave.BaseURL)
	assert.Equal(t, "GMD", cfg.Wave.Currency)
	assert.Equal(t, "hex", cfg.Wave.SignatureEncoding)
	assert.Equal(t, 300*time.Second, cfg.Wave.WebhookTolerance)
	assert.Equal(t, 10*time.Second, cfg.Wave.HTTPTimeout)
	assert.Equal(t, IdempotencyMemory, cfg.IdempotencyBackend)
	assert.False(t, cfg.LedgerEnabled)
	assert.False(t, cfg.Twilio.Enabled())
	assert.False(t, cfg.NeedsDatabase())
}

func TestLoadRequiresWaveCredentials(t *testing.T) {
	withEnv(t, map[string]string{})

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "APIKey")
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	withEnv(t, map[string]string{
		"WAVE_API_KEY":        "k",
		"WAVE_WEBHOOK_SECRET": "s",
		"IDEMPOTENCY_BACKEND": "etcd",
	})

	_, err := Load()
	require.Error(t, err)
}

func TestLoadCrossFieldRequirements(t *testing.T) {
	withEnv(t, map[string]string{
		"WAVE_API_KEY":        "k",
		"WAVE_WEBHOOK_SECRET": "s",
		"LEDGER_ENABLED":      "true",
	})
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_USER")

	withEnv(t, map[string]string{
		"WAVE_API_KEY":        "k",
		"WAVE_WEBHOOK_SECRET": "s",
		"IDEMPOTENCY_BACKEND": "redis",
	})
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CACHE_HOST")
}

func TestPortFallsBackToAppPort(t *testing.T) {
	withEnv(t, map[string]string{
		"WAVE_API_KEY":        "k",
		"WAVE_WEBHOOK_SECRET": "s",
		"APP_PORT":            "4000",
	})
	t.Setenv("PORT", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "4000", cfg.Port)
}

func TestDatabaseDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: "3306", User: "u", Password: "p", Name: "mavuno"}
	assert.Equal(t, "u:p@tcp(db:3306)/mavuno?charset=utf8mb4&parseTime=True&loc=UTC", c.DSN())
}

func TestLoadDatabaseIsSharedWithLoad(t *testing.T) {
	withEnv(t, map[string]string{
		"WAVE_API_KEY":        "k",
		"WAVE_WEBHOOK_SECRET": "s",
		"LEDGER_ENABLED":      "true",
	})
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "3306")
	t.Setenv("DB_USER", "mavuno")
	t.Setenv("DB_PASSWORD", "")
	t.Setenv("DB_NAME", "mavuno")

	db := LoadDatabase()
	assert.Equal(t, DatabaseConfig{Host: "db", Port: "3306", User: "mavuno", Name: "mavuno"}, db)
	require.NoError(t, db.Validate())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, db, cfg.Database)
}

func TestDatabaseValidate(t *testing.T) {
	assert.Error(t, DatabaseConfig{Host: "db", Port: "3306"}.Validate())
	assert.Error(t, DatabaseConfig{User: "u"}.Validate())
	assert.NoError(t, DatabaseConfig{User: "u", Name: "n"}.Validate())
}
