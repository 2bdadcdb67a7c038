package sse

import (
	"fmt"
	"time"
)

// Config is the sse section of the application config.
type Config struct {
	Path               string `mapstructure:"path"`
	KeepAlive          string `mapstructure:"keep_alive"`
	WriteTimeout       string `mapstructure:"write_timeout"`
	Retry              string `mapstructure:"retry"`
	QueueSize          int    `mapstructure:"queue_size"`
	EvictSlowConsumers bool   `mapstructure:"evict_slow_consumers"`
	PresenceTTL        string `mapstructure:"presence_ttl"`
	// StorageTimeout bounds each presence or log write made for a stream.
	StorageTimeout string `mapstructure:"storage_timeout"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Path == "" {
		c.Path = "/events"
	}
	if c.KeepAlive == "" {
		c.KeepAlive = "30s"
	}
	if c.WriteTimeout == "" {
		c.WriteTimeout = "10s"
	}
	if c.Retry == "" {
		c.Retry = "3s"
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaultQueueSize
	}
	if c.PresenceTTL == "" {
		c.PresenceTTL = "90s"
	}
	if c.StorageTimeout == "" {
		c.StorageTimeout = "5s"
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	for name, v := range map[string]string{
		"keep_alive":      c.KeepAlive,
		"write_timeout":   c.WriteTimeout,
		"retry":           c.Retry,
		"presence_ttl":    c.PresenceTTL,
		"storage_timeout": c.StorageTimeout,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("sse: invalid %s %q: %w", name, v, err)
		}
	}
	if c.KeepAliveInterval() <= 0 {
		return fmt.Errorf("sse: keep_alive must be positive")
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("sse: queue_size must be at least 1, got %d", c.QueueSize)
	}
	if c.StorageTimeoutDuration() <= 0 {
		return fmt.Errorf("sse: storage_timeout must be positive")
	}
	if c.PresenceTTLDuration() <= c.KeepAliveInterval() {
		return fmt.Errorf("sse: presence_ttl (%s) must exceed keep_alive (%s)", c.PresenceTTL, c.KeepAlive)
	}
	return nil
}

// KeepAliveInterval returns the parsed keep-alive interval.
func (c *Config) KeepAliveInterval() time.Duration { return parse(c.KeepAlive) }

// WriteTimeoutDuration returns the parsed per-write deadline.
func (c *Config) WriteTimeoutDuration() time.Duration { return parse(c.WriteTimeout) }

// RetryDuration returns the parsed client reconnect hint.
func (c *Config) RetryDuration() time.Duration { return parse(c.Retry) }

// PresenceTTLDuration returns the parsed presence TTL.
func (c *Config) PresenceTTLDuration() time.Duration { return parse(c.PresenceTTL) }

// StorageTimeoutDuration returns the parsed storage call deadline.
func (c *Config) StorageTimeoutDuration() time.Duration { return parse(c.StorageTimeout) }

// HandlerOptions translates the config into handler options.
func (c *Config) HandlerOptions() []HandlerOption {
	return []HandlerOption{
		WithKeepAlive(c.KeepAliveInterval()),
		WithRetry(c.RetryDuration()),
		WithConnectionOptions(
			WithQueueSize(c.QueueSize),
			WithWriteTimeout(c.WriteTimeoutDuration()),
		),
	}
}

func parse(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
