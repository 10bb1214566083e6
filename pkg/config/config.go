// Package config loads service configuration from an optional YAML file
// with environment overrides on top.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Port the HTTP server listens on.
	Port string `yaml:"port"`
	// DatabaseURL is the Postgres DSN. Empty selects the in-memory ledger,
	// which is what dev and the test suite run on.
	DatabaseURL string `yaml:"database_url"`
	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`
}

func defaults() Config {
	return Config{Port: "8090", LogLevel: "info"}
}

// Load reads path (skipped when empty or missing) and applies environment
// overrides: SERVICE_PORT, DATABASE_URL, LOG_LEVEL.
func Load(path string) (Config, error) {
	cfg := defaults()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if v := os.Getenv("SERVICE_PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	return cfg, nil
}
