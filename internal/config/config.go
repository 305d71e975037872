// Package config loads the API server configuration from WATCHTOWER_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the server configuration.
type Config struct {
	// HTTP and gRPC bind addresses.
	Addr     string
	GRPCAddr string

	// DBDriver is one of pgx, postgres or sqlite.
	DBDriver string
	DBDSN    string

	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string

	// SeedFile is an optional YAML file of accounts created at startup.
	SeedFile string

	// AlertsURL points at an Elasticsearch-compatible cluster. AlertsFile is
	// a YAML fixture used when no cluster is available. URL wins when both
	// are set.
	AlertsURL  string
	AlertsFile string
	AlertPoll  time.Duration

	CORSOrigins []string
	RateBurst   int
	RatePerSec  int

	LogLevel string
}

// Load reads configuration from environment variables with fallback defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Addr:          getEnv("WATCHTOWER_ADDR", ":8080"),
		GRPCAddr:      getEnv("WATCHTOWER_GRPC_ADDR", ":9090"),
		DBDriver:      strings.ToLower(getEnv("WATCHTOWER_DB_DRIVER", "sqlite")),
		DBDSN:         getEnv("WATCHTOWER_DB_DSN", "watchtower.db"),
		AccessSecret:  os.Getenv("WATCHTOWER_ACCESS_SECRET"),
		RefreshSecret: os.Getenv("WATCHTOWER_REFRESH_SECRET"),
		Issuer:        getEnv("WATCHTOWER_ISSUER", "watchtower"),
		SeedFile:      os.Getenv("WATCHTOWER_SEED_FILE"),
		AlertsURL:     os.Getenv("WATCHTOWER_ALERTS_URL"),
		AlertsFile:    os.Getenv("WATCHTOWER_ALERTS_FILE"),
		CORSOrigins:   getEnvList("WATCHTOWER_CORS_ORIGINS"),
		LogLevel:      getEnv("WATCHTOWER_LOG_LEVEL", "info"),
	}

	var err error
	if cfg.AccessTTL, err = getEnvDuration("WATCHTOWER_ACCESS_TTL", 2*time.Hour); err != nil {
		return nil, err
	}
	if cfg.RefreshTTL, err = getEnvDuration("WATCHTOWER_REFRESH_TTL", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.AlertPoll, err = getEnvDuration("WATCHTOWER_ALERT_POLL", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.RateBurst, err = getEnvInt("WATCHTOWER_RATE_BURST", 60); err != nil {
		return nil, err
	}
	if cfg.RatePerSec, err = getEnvInt("WATCHTOWER_RATE_PER_SEC", 30); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and cross-field constraints.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "pgx", "postgres", "sqlite":
	default:
		return fmt.Errorf("WATCHTOWER_DB_DRIVER must be pgx, postgres or sqlite, got %q", c.DBDriver)
	}
	if strings.TrimSpace(c.DBDSN) == "" {
		return errors.New("WATCHTOWER_DB_DSN is required")
	}
	if c.AccessSecret == "" {
		return errors.New("WATCHTOWER_ACCESS_SECRET is required")
	}
	if c.RefreshSecret == "" {
		return errors.New("WATCHTOWER_REFRESH_SECRET is required")
	}
	if c.AccessSecret == c.RefreshSecret {
		return errors.New("WATCHTOWER_ACCESS_SECRET and WATCHTOWER_REFRESH_SECRET must differ")
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	if c.RefreshTTL < c.AccessTTL {
		return errors.New("WATCHTOWER_REFRESH_TTL must not be shorter than WATCHTOWER_ACCESS_TTL")
	}
	if c.RateBurst <= 0 || c.RatePerSec <= 0 {
		return errors.New("rate limits must be positive")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getEnvList(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
