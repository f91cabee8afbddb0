// Package config loads process defaults for the system card server from the
// environment. Command-line flags take precedence over these values.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/joeshaw/envdecode"
)

// Config holds server settings. Defaults are provided via struct tags.
type Config struct {
	// Host is the listen address. ENV: SYSTEMCARD_HOST
	Host string `env:"SYSTEMCARD_HOST,default=127.0.0.1"`
	// Port is the listen port. ENV: SYSTEMCARD_PORT
	Port int `env:"SYSTEMCARD_PORT,default=8000"`
	// LogLevel is one of debug, info, warn, error. ENV: SYSTEMCARD_LOG_LEVEL
	LogLevel string `env:"SYSTEMCARD_LOG_LEVEL,default=info"`
	// LogFormat is text or json. ENV: SYSTEMCARD_LOG_FORMAT
	LogFormat string `env:"SYSTEMCARD_LOG_FORMAT,default=text"`
	// MaxBodyBytes bounds POST /mcp bodies. ENV: SYSTEMCARD_MAX_BODY_BYTES
	MaxBodyBytes int64 `env:"SYSTEMCARD_MAX_BODY_BYTES,default=1048576"`
}

// Default returns the configuration used when the environment is empty.
func Default() Config {
	return Config{
		Host:         "127.0.0.1",
		Port:         8000,
		LogLevel:     "info",
		LogFormat:    "text",
		MaxBodyBytes: 1 << 20,
	}
}

// FromEnv decodes a Config from the environment. Unset or empty variables
// take their tag default; explicitly set values, zero included, are kept and
// checked by Validate.
func FromEnv() (Config, error) {
	cfg := Default()
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate reports settings that cannot be served.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range 1-65535", c.Port)
	}
	if c.MaxBodyBytes < 1 {
		return fmt.Errorf("max body bytes must be positive, got %d", c.MaxBodyBytes)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q (want text or json)", c.LogFormat)
	}
	return nil
}

// Addr is the host:port listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
