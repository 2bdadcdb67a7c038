package redis

import (
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Config is the redis section of the application config. Redis backs
// presence tracking and the cross-instance relay; both are skipped when it
// is disabled. Durations are Go duration strings.
type Config struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	PoolSize     int `mapstructure:"pool_size"`
	MinIdleConns int `mapstructure:"min_idle_conns"`
	// MaxRetries applies to every command, including relay publishes.
	MaxRetries      int    `mapstructure:"max_retries"`
	MinRetryBackoff string `mapstructure:"min_retry_backoff"`
	MaxRetryBackoff string `mapstructure:"max_retry_backoff"`

	DialTimeout  string `mapstructure:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	PoolTimeout  string `mapstructure:"pool_timeout"`

	ConnMaxIdleTime string `mapstructure:"idle_timeout"`
	// ConnMaxLifetime of zero keeps connections forever.
	ConnMaxLifetime string `mapstructure:"max_conn_age"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = "localhost:6379"
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}
	if c.MinIdleConns <= 0 {
		c.MinIdleConns = 2
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	for _, d := range []struct {
		dst *string
		def string
	}{
		{&c.MinRetryBackoff, "8ms"},
		{&c.MaxRetryBackoff, "512ms"},
		{&c.DialTimeout, "5s"},
		{&c.ReadTimeout, "3s"},
		{&c.WriteTimeout, "3s"},
	} {
		if *d.dst == "" {
			*d.dst = d.def
		}
	}
}

// durations maps each duration key to its value. Empty values are optional.
func (c *Config) durations() map[string]string {
	return map[string]string{
		"min_retry_backoff": c.MinRetryBackoff,
		"max_retry_backoff": c.MaxRetryBackoff,
		"dial_timeout":      c.DialTimeout,
		"read_timeout":      c.ReadTimeout,
		"write_timeout":     c.WriteTimeout,
		"pool_timeout":      c.PoolTimeout,
		"idle_timeout":      c.ConnMaxIdleTime,
		"max_conn_age":      c.ConnMaxLifetime,
	}
}

// Validate checks the configuration. A disabled section always validates.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Addr == "" {
		return fmt.Errorf("redis: addr is required")
	}
	if c.PoolSize <= 0 {
		return fmt.Errorf("redis: pool_size must be > 0")
	}
	for key, v := range c.durations() {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("redis: invalid %s %q: %w", key, v, err)
		}
	}
	return nil
}

// Options builds the go-redis options. Command deadlines follow the caller's
// context, so a tracker or relay timeout cuts a stalled call short.
func (c *Config) Options() *goredis.Options {
	return &goredis.Options{
		Addr:                  c.Addr,
		Password:              c.Password,
		DB:                    c.DB,
		PoolSize:              c.PoolSize,
		MinIdleConns:          c.MinIdleConns,
		MaxRetries:            c.MaxRetries,
		MinRetryBackoff:       parseDuration(c.MinRetryBackoff),
		MaxRetryBackoff:       parseDuration(c.MaxRetryBackoff),
		DialTimeout:           parseDuration(c.DialTimeout),
		ReadTimeout:           parseDuration(c.ReadTimeout),
		WriteTimeout:          parseDuration(c.WriteTimeout),
		PoolTimeout:           parseDuration(c.PoolTimeout),
		ConnMaxIdleTime:       parseDuration(c.ConnMaxIdleTime),
		ConnMaxLifetime:       parseDuration(c.ConnMaxLifetime),
		ContextTimeoutEnabled: true,
	}
}

func parseDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
