// Package relay provides runtime configuration with environment overrides,
// validation, and the default throttling policy.
package relay

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the relay's runtime settings. Zero or negative values are
// clamped back to defaults by Sanitize.
type Config struct {
	Port           string   `env:"SERVER_PORT" envDefault:":8080"`
	Environment    string   `env:"APP_ENV" envDefault:"development"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://localhost:8080"`
	MaxMessageSize int64    `env:"MAX_MESSAGE_SIZE" envDefault:"65536"`
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`

	RateLimitWindow  time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"60s"`
	DedupeWindow     time.Duration `env:"DEDUPE_WINDOW" envDefault:"120s"`
	DedupeMaxEntries int           `env:"DEDUPE_MAX_ENTRIES" envDefault:"20000"`

	SendBufferSize  int           `env:"SEND_BUFFER_SIZE" envDefault:"256"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// RedisURL enables cross-instance room fan-out when set.
	RedisURL string `env:"REDIS_URL"`
	// PushEndpoint enables push notifications for tokened private messages.
	PushEndpoint string `env:"PUSH_ENDPOINT"`
}

// NewConfig returns the default configuration, ignoring the process
// environment.
func NewConfig() *Config {
	cfg := &Config{}
	_ = env.ParseWithOptions(cfg, env.Options{Environment: map[string]string{}})
	return cfg.Sanitize()
}

// NewConfigFromEnv builds the configuration from environment variables,
// applying defaults for anything unset.
func NewConfigFromEnv() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg.Sanitize(), nil
}

// Sanitize clamps out-of-range values to their defaults and returns the
// config for chaining.
func (c *Config) Sanitize() *Config {
	if c.Port == "" {
		c.Port = ":8080"
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 65536
	}
	if c.RateLimitWindow <= 0 {
		c.RateLimitWindow = 60 * time.Second
	}
	if c.DedupeWindow <= 0 {
		c.DedupeWindow = 120 * time.Second
	}
	if c.DedupeMaxEntries <= 0 {
		c.DedupeMaxEntries = 20000
	}
	if c.SendBufferSize <= 0 {
		c.SendBufferSize = 256
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	return c
}

// EventLimits is the throttling policy: per-event maximums over the
// configured window. Events not listed are never throttled.
func (c *Config) EventLimits() map[string]EventLimit {
	w := c.RateLimitWindow
	return map[string]EventLimit{
		EventMessage:        {Max: 60, Window: w},
		EventTyping:         {Max: 30, Window: w},
		EventCallUser:       {Max: 10, Window: w},
		EventPrivateMessage: {Max: 120, Window: w},
		EventReaction:       {Max: 60, Window: w},
		EventLiveScript:     {Max: 120, Window: w},
	}
}
