// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the configuration shared by reduxctl commands. Command-line
// flags override it.
type Config struct {
	// DBPath is the journal database. Empty means no journal.
	DBPath string `env:"REDUX_DB"`

	// MaxDepth is the cascade depth limit per chain. Zero disables it.
	MaxDepth int `env:"REDUX_MAX_DEPTH" envDefault:"1000"`

	// MaxEffects bounds concurrent epic runs. Zero means unbounded.
	MaxEffects int `env:"REDUX_MAX_EFFECTS" envDefault:"0"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"REDUX_LOG_LEVEL" envDefault:"info"`

	// OTelEndpoint is the OTLP/HTTP endpoint URL. Empty disables tracing.
	OTelEndpoint string `env:"REDUX_OTEL_ENDPOINT"`

	// OTelEnabled turns tracing off even when an endpoint is set.
	OTelEnabled bool `env:"REDUX_OTEL_ENABLED" envDefault:"true"`

	// StepTimeout bounds each scenario step.
	StepTimeout time.Duration `env:"REDUX_STEP_TIMEOUT" envDefault:"5s"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses and validates Config from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.MaxDepth < 0 {
		return fmt.Errorf("REDUX_MAX_DEPTH must be non-negative, got %d", c.MaxDepth)
	}
	if c.MaxEffects < 0 {
		return fmt.Errorf("REDUX_MAX_EFFECTS must be non-negative, got %d", c.MaxEffects)
	}
	if c.StepTimeout <= 0 {
		return fmt.Errorf("REDUX_STEP_TIMEOUT must be positive, got %s", c.StepTimeout)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// TracingEnabled reports whether an OTLP exporter should be installed.
func (c Config) TracingEnabled() bool {
	return c.OTelEnabled && c.OTelEndpoint != ""
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}

// Logger builds a text logger on w at the configured level. verbose forces
// debug.
func (c Config) Logger(w io.Writer, verbose bool) *slog.Logger {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
