package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Server config
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	// Rate limit config
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)

	// Terminal config
	assert.Equal(t, 16, cfg.Terminal.MaxSessions)
	assert.Equal(t, 262144, cfg.Terminal.BufferBytes)
	assert.Equal(t, 2*time.Second, cfg.Terminal.KillGrace)
	assert.Equal(t, 30*time.Second, cfg.Terminal.ReapGrace)

	// Exec config
	assert.Equal(t, 30*time.Second, cfg.Exec.DefaultTimeout)
	assert.Equal(t, 1048576, cfg.Exec.MaxCaptureBytes)
}

func TestLoadOrDefault(t *testing.T) {
	cfg := LoadOrDefault()

	assert.NotNil(t, cfg)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":                  "9000",
		"HOST":                  "127.0.0.1",
		"LOG_LEVEL":             "debug",
		"LOG_DEV":               "true",
		"TERMINAL_MAX_SESSIONS": "4",
		"TERMINAL_REAP_GRACE":   "5s",
		"EXEC_DEFAULT_TIMEOUT":  "10s",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, 4, cfg.Terminal.MaxSessions)
	assert.Equal(t, 5*time.Second, cfg.Terminal.ReapGrace)
	assert.Equal(t, 10*time.Second, cfg.Exec.DefaultTimeout)
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("TERMINAL_KILL_GRACE", "not-a-duration")

	_, err := Load()
	require.Error(t, err)
}
