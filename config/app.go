package config

import (
	"errors"
	"fmt"

	"github.com/kbukum/ssehub/database"
	"github.com/kbukum/ssehub/kafka"
	"github.com/kbukum/ssehub/observability"
	"github.com/kbukum/ssehub/redis"
	"github.com/kbukum/ssehub/relay"
	"github.com/kbukum/ssehub/server"
	"github.com/kbukum/ssehub/sse"
)

// AppConfig is the full ssehub configuration.
type AppConfig struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server        server.Config        `yaml:"server" mapstructure:"server"`
	SSE           sse.Config           `yaml:"sse" mapstructure:"sse"`
	Database      database.Config      `yaml:"database" mapstructure:"database"`
	Redis         redis.Config         `yaml:"redis" mapstructure:"redis"`
	Relay         relay.Config         `yaml:"relay" mapstructure:"relay"`
	Kafka         kafka.Config         `yaml:"kafka" mapstructure:"kafka"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// ApplyDefaults fills every section.
func (c *AppConfig) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.SSE.ApplyDefaults()
	c.Database.ApplyDefaults()
	c.Redis.ApplyDefaults()
	c.Relay.ApplyDefaults()
	c.Kafka.ApplyDefaults()
	c.Observability.ApplyDefaults()
	if c.Observability.ServiceVersion == "dev" && c.Version != "" {
		c.Observability.ServiceVersion = c.Version
	}
}

// Validate checks every section and the dependencies between them. All
// problems are reported together.
func (c *AppConfig) Validate() error {
	var errs []error
	check := func(section string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", section, err))
		}
	}

	check("service", c.ServiceConfig.Validate())
	check("server", c.Server.Validate())
	check("sse", c.SSE.Validate())
	check("database", c.Database.Validate())
	check("redis", c.Redis.Validate())
	check("relay", c.Relay.Validate())
	check("kafka", c.Kafka.Validate())
	check("observability", c.Observability.Validate())

	if c.Relay.Enabled && !c.Redis.Enabled {
		errs = append(errs, errors.New("relay: requires redis.enabled"))
	}
	return errors.Join(errs...)
}
