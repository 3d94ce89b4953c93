package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins string

	// Database connection settings are read by pkg/database directly.
	RedisURL string

	FlushPollInterval time.Duration
	GuardRetryBackoff time.Duration
	RepairInterval    time.Duration

	RankCacheTTL  time.Duration
	GraphCacheTTL time.Duration

	PublicLeaderboardCount int
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),

		RedisURL: os.Getenv("REDIS_URL"),

		PublicLeaderboardCount: 30,
	}

	// Parsing durations
	var err error
	cfg.FlushPollInterval, err = parseDuration(getEnv("FLUSH_POLL_INTERVAL", "1s"))
	if err != nil {
		return nil, fmt.Errorf("invalid FLUSH_POLL_INTERVAL: %w", err)
	}
	cfg.GuardRetryBackoff, err = parseDuration(getEnv("GUARD_RETRY_BACKOFF", "2s"))
	if err != nil {
		return nil, fmt.Errorf("invalid GUARD_RETRY_BACKOFF: %w", err)
	}
	cfg.RepairInterval, err = parseDuration(getEnv("REPAIR_INTERVAL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid REPAIR_INTERVAL: %w", err)
	}
	cfg.RankCacheTTL, err = parseDuration(getEnv("RANK_CACHE_TTL", "30m"))
	if err != nil {
		return nil, fmt.Errorf("invalid RANK_CACHE_TTL: %w", err)
	}
	cfg.GraphCacheTTL, err = parseDuration(getEnv("GRAPH_CACHE_TTL", "20m"))
	if err != nil {
		return nil, fmt.Errorf("invalid GRAPH_CACHE_TTL: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func parseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}
