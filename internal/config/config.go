// Package config reads process settings from the environment, after an
// optional .env file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/Khelendrameena/zugu-ludo-backend/internal/payout"
)

type Config struct {
	Port                  string
	DatabaseURL           string
	JWTSecret             string
	DefaultCommissionRate decimal.Decimal
	DefaultRoomCapacity   int
	MinStake              int64
	MaxStake              int64
	BroadcastWebhookURL   string
	BroadcastWorkers      int
	CORSAllowedOrigins    []string
	LogLevel              slog.Level
}

// Load reads .env (if present) and then the environment. An empty
// DATABASE_URL selects the in-memory store.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv, applying defaults.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Port:                getOr(getenv, "PORT", "8080"),
		DatabaseURL:         getenv("DATABASE_URL"),
		JWTSecret:           getenv("JWT_SECRET"),
		BroadcastWebhookURL: getenv("BROADCAST_WEBHOOK_URL"),
		CORSAllowedOrigins:  splitList(getOr(getenv, "CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	rate, err := decimal.NewFromString(getOr(getenv, "DEFAULT_COMMISSION_RATE", "0.02"))
	if err != nil {
		return nil, fmt.Errorf("DEFAULT_COMMISSION_RATE: %w", err)
	}
	if err := payout.ValidateRate(rate); err != nil {
		return nil, fmt.Errorf("DEFAULT_COMMISSION_RATE: %w", err)
	}
	cfg.DefaultCommissionRate = rate

	if cfg.DefaultRoomCapacity, err = atoi(getenv, "DEFAULT_ROOM_CAPACITY", 4); err != nil {
		return nil, err
	}
	minStake, err := atoi(getenv, "MIN_STAKE", 0)
	if err != nil {
		return nil, err
	}
	maxStake, err := atoi(getenv, "MAX_STAKE", 0)
	if err != nil {
		return nil, err
	}
	if minStake < 0 || maxStake < 0 || (maxStake > 0 && maxStake < minStake) {
		return nil, fmt.Errorf("MIN_STAKE/MAX_STAKE: invalid range %d..%d", minStake, maxStake)
	}
	cfg.MinStake, cfg.MaxStake = int64(minStake), int64(maxStake)

	if cfg.BroadcastWorkers, err = atoi(getenv, "BROADCAST_WORKERS", 10); err != nil {
		return nil, err
	}
	if cfg.BroadcastWorkers < 1 {
		return nil, fmt.Errorf("BROADCAST_WORKERS must be at least 1")
	}

	if v := getenv("LOG_LEVEL"); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("LOG_LEVEL: %w", err)
		}
	}
	return cfg, nil
}

func getOr(getenv func(string) string, key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}

func atoi(getenv func(string) string, key string, def int) (int, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
