package console

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	defaultServer  = "http://localhost:8080"
	defaultTimeout = 30
)

// Config is the console configuration, read from
// ~/.watchtower/config.toml:
//
//	server = "https://watchtower.example.com"
//	state_file = "/home/me/.watchtower/state.json"
//	timeout_seconds = 30
type Config struct {
	Server         string `toml:"server"`
	StateFile      string `toml:"state_file"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Timeout returns the HTTP timeout.
func (c Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return defaultTimeout * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Dir returns ~/.watchtower.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".watchtower"), nil
}

// DefaultConfigPath returns ~/.watchtower/config.toml.
func DefaultConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// LoadConfig reads path when it exists, fills defaults and applies the
// WATCHTOWER_SERVER override. A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("read %s: %w", path, err)
		}
	}
	if v := strings.TrimSpace(os.Getenv("WATCHTOWER_SERVER")); v != "" {
		cfg.Server = v
	}
	if strings.TrimSpace(cfg.Server) == "" {
		cfg.Server = defaultServer
	}
	if cfg.StateFile == "" {
		dir, err := Dir()
		if err != nil {
			return Config{}, err
		}
		cfg.StateFile = filepath.Join(dir, "state.json")
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = defaultTimeout
	}
	return cfg, nil
}

// SaveConfig writes cfg to path as TOML.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
