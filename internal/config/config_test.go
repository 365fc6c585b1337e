package config

import (
	"bytes"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"REDUX_DB", "REDUX_MAX_DEPTH", "REDUX_MAX_EFFECTS", "REDUX_LOG_LEVEL",
		"REDUX_OTEL_ENDPOINT", "REDUX_OTEL_ENABLED", "REDUX_STEP_TIMEOUT",
	} {
		t.Setenv(key, "") // restores the original value after the test
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "", cfg.DBPath)
	assert.Equal(t, 1000, cfg.MaxDepth)
	assert.Equal(t, 0, cfg.MaxEffects)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.OTelEnabled)
	assert.False(t, cfg.TracingEnabled())
	assert.Equal(t, 5*time.Second, cfg.StepTimeout)
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDUX_DB", "/tmp/journal.db")
	t.Setenv("REDUX_MAX_DEPTH", "12")
	t.Setenv("REDUX_MAX_EFFECTS", "4")
	t.Setenv("REDUX_LOG_LEVEL", "debug")
	t.Setenv("REDUX_OTEL_ENDPOINT", "http://localhost:4318")
	t.Setenv("REDUX_STEP_TIMEOUT", "250ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/journal.db", cfg.DBPath)
	assert.Equal(t, 12, cfg.MaxDepth)
	assert.Equal(t, 4, cfg.MaxEffects)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.TracingEnabled())
	assert.Equal(t, 250*time.Millisecond, cfg.StepTimeout)
}

func TestLoad_TracingExplicitlyDisabled(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDUX_OTEL_ENDPOINT", "http://localhost:4318")
	t.Setenv("REDUX_OTEL_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.TracingEnabled())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"unparsable depth", "REDUX_MAX_DEPTH", "deep", "parse env:"},
		{"negative depth", "REDUX_MAX_DEPTH", "-1", "REDUX_MAX_DEPTH must be non-negative"},
		{"negative effects", "REDUX_MAX_EFFECTS", "-2", "REDUX_MAX_EFFECTS must be non-negative"},
		{"zero timeout", "REDUX_STEP_TIMEOUT", "0s", "REDUX_STEP_TIMEOUT must be positive"},
		{"unknown level", "REDUX_LOG_LEVEL", "loud", `unknown log level "loud"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	cfg := Config{LogLevel: "warn"}

	logger := cfg.Logger(&buf, false)
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	cfg.Logger(&buf, true).Debug("verbose")
	assert.True(t, strings.Contains(buf.String(), "verbose"))
}
