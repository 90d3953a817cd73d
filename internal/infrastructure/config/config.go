package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Terminal  TerminalConfig
	Exec      ExecConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// TerminalConfig holds terminal session configuration.
type TerminalConfig struct {
	Shell            string        `envconfig:"TERMINAL_SHELL" default:""`
	MaxSessions      int           `envconfig:"TERMINAL_MAX_SESSIONS" default:"16"`
	BufferBytes      int           `envconfig:"TERMINAL_BUFFER_BYTES" default:"262144"`
	SubscriberBuffer int           `envconfig:"TERMINAL_SUBSCRIBER_BUFFER" default:"256"`
	KillGrace        time.Duration `envconfig:"TERMINAL_KILL_GRACE" default:"2s"`
	ReapGrace        time.Duration `envconfig:"TERMINAL_REAP_GRACE" default:"30s"`
	ReapInterval     time.Duration `envconfig:"TERMINAL_REAP_INTERVAL" default:"15s"`
}

// ExecConfig holds one-off command execution configuration.
type ExecConfig struct {
	DefaultTimeout  time.Duration `envconfig:"EXEC_DEFAULT_TIMEOUT" default:"30s"`
	MaxTimeout      time.Duration `envconfig:"EXEC_MAX_TIMEOUT" default:"5m"`
	MaxCaptureBytes int           `envconfig:"EXEC_MAX_CAPTURE_BYTES" default:"1048576"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8080",
			Host: "0.0.0.0",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Terminal: TerminalConfig{
			MaxSessions:      16,
			BufferBytes:      262144,
			SubscriberBuffer: 256,
			KillGrace:        2 * time.Second,
			ReapGrace:        30 * time.Second,
			ReapInterval:     15 * time.Second,
		},
		Exec: ExecConfig{
			DefaultTimeout:  30 * time.Second,
			MaxTimeout:      5 * time.Minute,
			MaxCaptureBytes: 1048576,
		},
	}
}
