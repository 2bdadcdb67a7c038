package sse

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/ssehub/component"
)

// Component wraps a Registry as a lifecycle-managed component. Stopping it
// closes every open stream.
type Component struct {
	registry *Registry
	path     string

	mu      sync.Mutex
	stopped bool
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates a component around reg, served at path.
func NewComponent(reg *Registry, path string) *Component {
	return &Component{
		registry: reg,
		path:     path,
	}
}

// Registry returns the wrapped registry.
func (c *Component) Registry() *Registry { return c.registry }

// Name returns the component name.
func (c *Component) Name() string { return "sse" }

// Start is a no-op; the registry accepts connections from creation.
func (c *Component) Start(_ context.Context) error {
	return nil
}

// Stop closes all connections.
func (c *Component) Stop(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.registry.Close()
	c.stopped = true
	return nil
}

// Health reports the number of open connections.
func (c *Component) Health(_ context.Context) component.Health {
	c.mu.Lock()
	stopped := c.stopped
	c.mu.Unlock()

	if stopped {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: "registry closed",
		}
	}
	return component.Health{
		Name:    c.Name(),
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("%d connections open", c.registry.Len()),
	}
}

// Describe returns infrastructure summary info for the bootstrap display.
func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "SSE Registry",
		Type:    "sse",
		Details: fmt.Sprintf("Path: %s", c.path),
	}
}
