package server

import (
	"fmt"
	"time"

	"github.com/kbukum/ssehub/server/middleware"
)

// Config holds HTTP server configuration.
//
// WriteTimeout bounds a whole response. It defaults to 0 because event
// streams live for hours; streams bound each write with their own deadline.
type Config struct {
	Host             string                `yaml:"host" mapstructure:"host"`
	Port             int                   `yaml:"port" mapstructure:"port"`
	ReadTimeout      int                   `yaml:"read_timeout" mapstructure:"read_timeout"`   // seconds
	WriteTimeout     int                   `yaml:"write_timeout" mapstructure:"write_timeout"` // seconds, 0 = none
	IdleTimeout      int                   `yaml:"idle_timeout" mapstructure:"idle_timeout"`   // seconds
	ShutdownTimeout  int                   `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	MaxBodySize      string                `yaml:"max_body_size" mapstructure:"max_body_size"`           // e.g. "1MB"
	PublishRateLimit int                   `yaml:"publish_rate_limit" mapstructure:"publish_rate_limit"` // per minute, 0 = off
	CORS             middleware.CORSConfig `yaml:"cors" mapstructure:"cors"`
}

// ApplyDefaults sets sensible default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 15
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 5
	}
	if c.MaxBodySize == "" {
		c.MaxBodySize = "1MB"
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}
	if len(c.CORS.AllowedMethods) == 0 {
		c.CORS.AllowedMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	}
	if len(c.CORS.AllowedHeaders) == 0 {
		c.CORS.AllowedHeaders = []string{"Origin", "Content-Type", "Accept", "Last-Event-ID", "X-User-ID", "X-Session-ID", "X-Request-Id"}
	}
	if c.CORS.MaxAge == 0 {
		c.CORS.MaxAge = 600
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535 (got: %d)", c.Port)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("server.read_timeout must be non-negative (got: %d)", c.ReadTimeout)
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("server.write_timeout must be non-negative (got: %d)", c.WriteTimeout)
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("server.idle_timeout must be non-negative (got: %d)", c.IdleTimeout)
	}
	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("server.shutdown_timeout must be non-negative (got: %d)", c.ShutdownTimeout)
	}
	if c.PublishRateLimit < 0 {
		return fmt.Errorf("server.publish_rate_limit must be non-negative (got: %d)", c.PublishRateLimit)
	}
	return nil
}

// Address returns host:port.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
