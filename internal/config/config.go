// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

const envPrefix = "QSX_"

// Config holds everything the API process needs at startup.
type Config struct {
	ListenAddr  string
	PostgresDSN string

	AuthSecret string
	TokenTTL   time.Duration

	LogLevel   string
	RateBurst  int
	RatePerSec int
}

// Load reads configuration from QSX_* environment variables, applying
// defaults for everything except the auth secret.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr:  getEnv("LISTEN_ADDR", ":8080"),
		PostgresDSN: getEnv("PG_DSN", ""),
		AuthSecret:  strings.TrimSpace(os.Getenv(envPrefix + "AUTH_SECRET")),
		TokenTTL:    getDuration("TOKEN_TTL", 12*time.Hour),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		RateBurst:   getInt("RATE_BURST", 50),
		RatePerSec:  getInt("RATE_PER_SEC", 25),
	}
	if cfg.AuthSecret == "" {
		return Config{}, errors.New("config: " + envPrefix + "AUTH_SECRET is required")
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(envPrefix + key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(envPrefix + key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func getDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(envPrefix + key))
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}
