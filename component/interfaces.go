package component

import "context"

// HealthStatus represents the health state of a component.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusDisabled  HealthStatus = "disabled"
)

// Health holds health information for a component.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component is a lifecycle-managed piece of infrastructure: the database,
// redis, the connection registry, relays, and the HTTP server.
type Component interface {
	// Name returns the unique registration name.
	Name() string

	// Start initializes and starts the component.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the component and releases resources.
	Stop(ctx context.Context) error

	// Health returns the current health status of the component.
	Health(ctx context.Context) Health
}

// Description holds summary information logged at startup.
type Description struct {
	// Name is the human-readable display name. Name() is used when empty.
	Name string
	// Type categorizes the component: "database", "server", "redis", "sse"...
	Type string
	// Details is a one-liner such as "localhost:6379 db=0 pool=10".
	Details string
}

// Describable is optionally implemented by Components to self-report
// configuration in the startup summary.
type Describable interface {
	Describe() Description
}

// Route is one HTTP route reported in the startup summary.
type Route struct {
	Method  string
	Path    string
	Handler string
}

// RouteProvider is optionally implemented by Components that serve HTTP routes.
type RouteProvider interface {
	Routes() []Route
}
