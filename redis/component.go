package redis

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/ssehub/component"
	"github.com/kbukum/ssehub/logger"
)

// Component wraps Client and implements component.Component for lifecycle management.
type Component struct {
	cfg Config
	log *logger.Logger

	mu     sync.RWMutex
	client *Client
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates a Redis component for use with the component registry.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Component{
		cfg: cfg,
		log: log.WithComponent("redis"),
	}
}

// Client returns the underlying *Client, or nil if not started or disabled.
func (c *Component) Client() *Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}

// Name returns the component name.
func (c *Component) Name() string { return "redis" }

// Start initializes the Redis client and verifies connectivity.
func (c *Component) Start(ctx context.Context) error {
	if !c.cfg.Enabled {
		c.log.Info("Redis disabled, skipping connection")
		return nil
	}

	client, err := New(c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("redis start: %w", err)
	}

	if err := client.Ping(ctx); err != nil {
		_ = client.Close()
		return fmt.Errorf("redis start ping: %w", err)
	}

	c.mu.Lock()
	c.client = client
	c.mu.Unlock()
	c.log.Info("Redis component started")
	return nil
}

// Stop gracefully closes the Redis connection.
func (c *Component) Stop(_ context.Context) error {
	client := c.Client()
	if client == nil {
		return nil
	}
	c.log.Info("Redis component stopping")
	return client.Close()
}

// Health returns the current health status of the Redis connection.
func (c *Component) Health(ctx context.Context) component.Health {
	if !c.cfg.Enabled {
		return component.Health{Name: c.Name(), Status: component.StatusDisabled}
	}

	client := c.Client()
	if client == nil {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: "redis not initialized",
		}
	}

	if err := client.Ping(ctx); err != nil {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: fmt.Sprintf("ping failed: %v", err),
		}
	}

	return component.Health{
		Name:   c.Name(),
		Status: component.StatusHealthy,
	}
}

// Describe returns infrastructure summary info for the bootstrap display.
func (c *Component) Describe() component.Description {
	details := fmt.Sprintf("%s db=%d pool=%d", c.cfg.Addr, c.cfg.DB, c.cfg.PoolSize)
	if !c.cfg.Enabled {
		details = "disabled"
	}
	return component.Description{
		Name:    "Redis",
		Type:    "redis",
		Details: details,
	}
}
