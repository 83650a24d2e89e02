// Package server provides configuration helpers that define runtime defaults,
// validation, and keepalive parameters for the relay service.
package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const (
	defaultHost            = "localhost"
	defaultPort            = 8765
	defaultMaxMessageSize  = 1 << 20
	defaultSendQueueSize   = 256
	defaultPingInterval    = 20 * time.Second
	defaultPingTimeout     = 20 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// Config holds the relay configuration. Every field can be set from the
// environment; see the env tags for variable names.
type Config struct {
	Host           string `env:"RELAY_HOST" default:"localhost"`
	Port           int    `env:"RELAY_PORT" default:"8765"`
	AllowedOrigins string `env:"RELAY_ALLOWED_ORIGINS"`

	MaxMessageSize int64         `env:"RELAY_MAX_MESSAGE_SIZE" default:"1048576"`
	SendQueueSize  int           `env:"RELAY_SEND_QUEUE_SIZE" default:"256"`
	PingInterval   time.Duration `env:"RELAY_PING_INTERVAL" default:"20s"`
	PingTimeout    time.Duration `env:"RELAY_PING_TIMEOUT" default:"20s"`
	WriteTimeout   time.Duration `env:"RELAY_WRITE_TIMEOUT" default:"10s"`

	RateLimit float64 `env:"RELAY_RATE_LIMIT" default:"0"`
	RateBurst int     `env:"RELAY_RATE_BURST" default:"0"`

	ShutdownTimeout time.Duration `env:"RELAY_SHUTDOWN_TIMEOUT" default:"10s"`

	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`
}

// DefaultConfig returns a Config populated with default values for all settings.
func DefaultConfig() Config {
	return Config{
		Host:            defaultHost,
		Port:            defaultPort,
		MaxMessageSize:  defaultMaxMessageSize,
		SendQueueSize:   defaultSendQueueSize,
		PingInterval:    defaultPingInterval,
		PingTimeout:     defaultPingTimeout,
		WriteTimeout:    defaultWriteTimeout,
		ShutdownTimeout: defaultShutdownTimeout,
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// LoadConfig reads an optional .env file and then the process environment.
// Out-of-range values fall back to their defaults; an invalid port is an error.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	sanitized := sanitizeConfig(cfg)
	return &sanitized, nil
}

func validate(cfg *Config) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("RELAY_PORT must be between 1 and 65535, got %d", cfg.Port)
	}
	if cfg.RateLimit < 0 {
		return errors.New("RELAY_RATE_LIMIT must not be negative")
	}
	return nil
}

func sanitizeConfig(cfg Config) Config {
	if strings.TrimSpace(cfg.Host) == "" {
		cfg.Host = defaultHost
	}

	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaultMaxMessageSize
	}

	if cfg.SendQueueSize <= 0 {
		cfg.SendQueueSize = defaultSendQueueSize
	}

	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaultPingInterval
	}

	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = defaultPingTimeout
	}

	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	return cfg
}

// Addr returns the host:port listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Origins returns the configured allowed origins as a list.
func (c Config) Origins() []string {
	return parseOrigins(c.AllowedOrigins)
}

func parseOrigins(origins string) []string {
	if strings.TrimSpace(origins) == "" {
		return nil
	}
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
