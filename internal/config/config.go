// Package config loads tether settings from the environment.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
)

// Config holds process-wide settings. Command-line flags override it.
type Config struct {
	// LogMode selects the logger preset: "dev" or "prod".
	LogMode string `env:"TETHER_LOG_MODE" envDefault:"dev"`

	// LogLevel is the minimum level logged.
	LogLevel string `env:"TETHER_LOG_LEVEL" envDefault:"info"`

	// TraceCalls logs every bridged call at debug level.
	TraceCalls bool `env:"TETHER_TRACE_CALLS" envDefault:"false"`

	// HistorySize bounds the REPL history.
	HistorySize int `env:"TETHER_HISTORY_SIZE" envDefault:"500"`
}

// Load parses Config from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.HistorySize < 0 {
		return Config{}, fmt.Errorf("TETHER_HISTORY_SIZE: must not be negative, got %d", cfg.HistorySize)
	}
	return cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Exitf writes a formatted error message to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
