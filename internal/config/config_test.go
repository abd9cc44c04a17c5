package config

import (
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{"JWT_SECRET": "s"}))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Empty(t, cfg.DatabaseURL)
	assert.True(t, cfg.DefaultCommissionRate.Equal(decimal.RequireFromString("0.02")))
	assert.Equal(t, 4, cfg.DefaultRoomCapacity)
	assert.Equal(t, 10, cfg.BroadcastWorkers)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{
		"JWT_SECRET":              "s",
		"PORT":                    "9000",
		"DATABASE_URL":            "postgres://localhost/zugu",
		"DEFAULT_COMMISSION_RATE": "0.05",
		"DEFAULT_ROOM_CAPACITY":   "2",
		"BROADCAST_WEBHOOK_URL":   "http://hub/events",
		"BROADCAST_WORKERS":       "3",
		"MIN_STAKE":               "10",
		"MAX_STAKE":               "5000",
		"CORS_ALLOWED_ORIGINS":    "https://a.example, https://b.example,",
		"LOG_LEVEL":               "debug",
	}))
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "postgres://localhost/zugu", cfg.DatabaseURL)
	assert.True(t, cfg.DefaultCommissionRate.Equal(decimal.RequireFromString("0.05")))
	assert.Equal(t, 2, cfg.DefaultRoomCapacity)
	assert.Equal(t, "http://hub/events", cfg.BroadcastWebhookURL)
	assert.Equal(t, 3, cfg.BroadcastWorkers)
	assert.Equal(t, int64(10), cfg.MinStake)
	assert.Equal(t, int64(5000), cfg.MaxStake)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"missing secret": {},
		"bad rate":       {"JWT_SECRET": "s", "DEFAULT_COMMISSION_RATE": "two percent"},
		"rate too fine":  {"JWT_SECRET": "s", "DEFAULT_COMMISSION_RATE": "0.123456"},
		"rate of one":    {"JWT_SECRET": "s", "DEFAULT_COMMISSION_RATE": "1"},
		"bad capacity":   {"JWT_SECRET": "s", "DEFAULT_ROOM_CAPACITY": "four"},
		"zero workers":   {"JWT_SECRET": "s", "BROADCAST_WORKERS": "0"},
		"bad log level":  {"JWT_SECRET": "s", "LOG_LEVEL": "loud"},
		"inverted stake": {"JWT_SECRET": "s", "MIN_STAKE": "100", "MAX_STAKE": "10"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := FromEnv(envOf(env))
			assert.Error(t, err)
		})
	}
}
