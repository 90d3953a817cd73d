// Package config loads application configuration from environment
// variables (12-factor style) via envconfig, with sensible defaults for
// development.
package config
