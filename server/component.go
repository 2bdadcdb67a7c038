package server

import (
	"context"

	"github.com/kbukum/ssehub/component"
)

const componentName = "http-server"

var (
	_ component.Component     = (*Component)(nil)
	_ component.Describable   = (*Component)(nil)
	_ component.RouteProvider = (*Component)(nil)
)

// Component wraps Server to implement component.Component.
type Component struct {
	server *Server
}

// NewComponent returns a component.Component backed by the given Server.
func NewComponent(s *Server) *Component {
	return &Component{server: s}
}

// Server returns the wrapped server.
func (c *Component) Server() *Server { return c.server }

// Name returns the component name used for registration.
func (c *Component) Name() string { return componentName }

// Start starts the underlying HTTP server.
func (c *Component) Start(ctx context.Context) error {
	return c.server.Start(ctx)
}

// Stop gracefully shuts down the underlying HTTP server.
func (c *Component) Stop(ctx context.Context) error {
	return c.server.Stop(ctx)
}

// Health reports whether the server is listening.
func (c *Component) Health(_ context.Context) component.Health {
	if c.server.Running() {
		return component.Health{
			Name:    componentName,
			Status:  component.StatusHealthy,
			Message: "listening on " + c.server.Addr(),
		}
	}
	return component.Health{
		Name:    componentName,
		Status:  component.StatusUnhealthy,
		Message: "HTTP server not started",
	}
}

// Describe returns infrastructure summary info for the bootstrap display.
func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "HTTP Server",
		Type:    "server",
		Details: c.server.Addr() + " (h2c)",
	}
}

// Routes returns all registered HTTP routes for the startup summary.
func (c *Component) Routes() []component.Route {
	return c.server.Routes()
}
