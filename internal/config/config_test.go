package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("JWT_SECRET", "short")
	t.Setenv("REMINDER_DAYS_AHEAD", "")
	t.Setenv("CORS_ORIGINS", "")
	t.Setenv("TRUSTED_PROXIES", "")

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.GreaterOrEqual(t, len(cfg.JWTSecret), 32)
	assert.Equal(t, 1, cfg.ReminderDaysAhead)
	assert.Equal(t, "America/Sao_Paulo", cfg.ReminderTZ)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORSOrigins)
	assert.Empty(t, cfg.TrustedProxies)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("DB_MAX_CONN_LIFETIME", "5m")
	t.Setenv("REMINDER_DAYS_AHEAD", "2")
	t.Setenv("LOGIN_RATE_RPS", "1.5")
	t.Setenv("APP_ENV", "development")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 127.0.0.1")

	cfg := Load()
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 5*time.Minute, cfg.DBMaxConnLifetime)
	assert.Equal(t, 2, cfg.ReminderDaysAhead)
	assert.InDelta(t, 1.5, cfg.LoginRateRPS, 0.0001)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1"}, cfg.TrustedProxies)
}

func TestLoadIgnoresInvalidNumbers(t *testing.T) {
	t.Setenv("DB_MAX_CONNS", "abc")
	cfg := Load()
	assert.Equal(t, 10, cfg.DBMaxConns)
}
