package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds relay and peer configuration.
type Config struct {
	DatabaseURL     string
	ServerAddr      string
	RelayURL        string
	TickRateHz      int
	ShutdownTimeout time.Duration
	LogPretty       bool
}

// Load reads configuration from environment.
func Load() (*Config, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		user := getenv("POSTGRES_USER", "netcore")
		pass := getenv("POSTGRES_PASSWORD", "netcore_pass")
		db := getenv("POSTGRES_DB", "netcore")
		host := getenv("POSTGRES_HOST", "localhost")
		port := getenv("POSTGRES_PORT", "5432")
		sslmode := getenv("DATABASE_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, sslmode)
	}
	addr := getenv("SERVER_ADDR", "0.0.0.0:8080")
	relayURL := getenv("RELAY_URL", "ws://localhost:8080")
	tickRate := parseInt(getenv("TICK_RATE_HZ", "10"), 10)
	shutdown := parseDuration(getenv("SHUTDOWN_TIMEOUT", "10s"), 10*time.Second)
	pretty := parseBool(getenv("LOG_PRETTY", "false"), false)

	return &Config{
		DatabaseURL:     dsn,
		ServerAddr:      addr,
		RelayURL:        relayURL,
		TickRateHz:      tickRate,
		ShutdownTimeout: shutdown,
		LogPretty:       pretty,
	}, nil
}

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func parseDuration(val string, def time.Duration) time.Duration {
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return def
	}
	return d
}

func parseBool(val string, def bool) bool {
	if val == "" {
		return def
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return def
	}
	return b
}
