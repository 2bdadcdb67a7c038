package observability

import (
	"fmt"
	"time"
)

// Config is the observability section of the application config.
type Config struct {
	Enabled        bool    `mapstructure:"enabled"`
	Endpoint       string  `mapstructure:"endpoint"`
	Insecure       bool    `mapstructure:"insecure"`
	SampleRate     float64 `mapstructure:"sample_rate"`
	ExportInterval string  `mapstructure:"export_interval"`
	ServiceVersion string  `mapstructure:"service_version"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1.0
	}
	if c.ExportInterval == "" {
		c.ExportInterval = "15s"
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = "dev"
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("observability: sample_rate must be between 0 and 1, got %v", c.SampleRate)
	}
	if _, err := time.ParseDuration(c.ExportInterval); err != nil {
		return fmt.Errorf("observability: invalid export_interval %q: %w", c.ExportInterval, err)
	}
	if c.Enabled && c.Endpoint == "" {
		return fmt.Errorf("observability: endpoint is required when enabled")
	}
	return nil
}

// MeterConfig derives the meter settings for serviceName.
func (c *Config) MeterConfig(serviceName, environment string) MeterConfig {
	interval, _ := time.ParseDuration(c.ExportInterval)
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: c.ServiceVersion,
		Environment:    environment,
		Endpoint:       c.Endpoint,
		Insecure:       c.Insecure,
		Interval:       interval,
	}
}

// TracerConfig derives the tracer settings for serviceName.
func (c *Config) TracerConfig(serviceName, environment string) TracerConfig {
	return TracerConfig{
		ServiceName:    serviceName,
		ServiceVersion: c.ServiceVersion,
		Environment:    environment,
		Endpoint:       c.Endpoint,
		Insecure:       c.Insecure,
		SampleRate:     c.SampleRate,
	}
}
