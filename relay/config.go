package relay

import (
	"fmt"
	"regexp"
	"time"
)

var prefixPattern = regexp.MustCompile(`^[A-Za-z0-9_.:-]+$`)

// Config controls cross-instance fan-out.
type Config struct {
	// Enabled routes publishes through Redis instead of the local registry.
	Enabled bool `mapstructure:"enabled"`

	// Prefix namespaces the Redis channel: "<prefix>:events".
	Prefix string `mapstructure:"prefix"`

	// PublishAttempts bounds the tries per published event.
	PublishAttempts int `mapstructure:"publish_attempts"`

	// BreakerFailures is the number of consecutive failed publishes that
	// opens the circuit. While open, publishes fail immediately.
	BreakerFailures int `mapstructure:"breaker_failures"`

	// BreakerTimeout is how long the circuit stays open, e.g. "10s".
	BreakerTimeout string `mapstructure:"breaker_timeout"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Prefix == "" {
		c.Prefix = "ssehub"
	}
	if c.PublishAttempts <= 0 {
		c.PublishAttempts = 3
	}
	if c.BreakerFailures <= 0 {
		c.BreakerFailures = 5
	}
	if c.BreakerTimeout == "" {
		c.BreakerTimeout = "10s"
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if !prefixPattern.MatchString(c.Prefix) {
		return fmt.Errorf("relay prefix %q contains invalid characters", c.Prefix)
	}
	if d, err := time.ParseDuration(c.BreakerTimeout); err != nil || d <= 0 {
		return fmt.Errorf("relay breaker_timeout %q must be a positive duration", c.BreakerTimeout)
	}
	return nil
}

// BreakerTimeoutDuration returns the parsed breaker timeout.
func (c *Config) BreakerTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.BreakerTimeout)
	return d
}

// Topic returns the Redis channel events are relayed on.
func (c *Config) Topic() string {
	return c.Prefix + ":events"
}
