package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/kbukum/ssehub/component"
)

// InfrastructureInfo is one infrastructure line of the startup summary.
type InfrastructureInfo struct {
	Name    string
	Type    string // "database", "server", "redis", "sse", "relay", "kafka"
	Details string
	Healthy bool
}

// RouteInfo represents a registered HTTP route.
type RouteInfo struct {
	Method  string
	Path    string
	Handler string
}

// ConsumerInfo represents a message consumer such as the kafka ingest.
type ConsumerInfo struct {
	Name   string
	Group  string
	Topic  string
	Status string
}

// Summary tracks and displays the application bootstrap process.
// Infrastructure and routes are collected from the component registry;
// consumers are tracked explicitly.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
	out             io.Writer
	infrastructure  []InfrastructureInfo
	routes          []RouteInfo
	consumers       []ConsumerInfo
}

// NewSummary creates a new bootstrap summary tracker writing to stdout.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{
		serviceName: serviceName,
		version:     version,
		out:         os.Stdout,
	}
}

// SetOutput redirects the rendered summary.
func (s *Summary) SetOutput(w io.Writer) {
	s.out = w
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// TrackInfrastructure adds an infrastructure line that is not a registered component.
func (s *Summary) TrackInfrastructure(name, componentType, details string, healthy bool) {
	s.infrastructure = append(s.infrastructure, InfrastructureInfo{
		Name:    name,
		Type:    componentType,
		Details: details,
		Healthy: healthy,
	})
}

// TrackRoute records an HTTP route.
func (s *Summary) TrackRoute(method, path, handler string) {
	s.routes = append(s.routes, RouteInfo{Method: method, Path: path, Handler: handler})
}

// TrackConsumer records a message consumer.
func (s *Summary) TrackConsumer(name, group, topic, status string) {
	s.consumers = append(s.consumers, ConsumerInfo{
		Name:   name,
		Group:  group,
		Topic:  topic,
		Status: status,
	})
}

// collect pulls infrastructure descriptions and routes from the registry.
// It returns the live health results keyed by component name.
func (s *Summary) collect(ctx context.Context, registry *component.Registry) []component.Health {
	if registry == nil {
		return nil
	}
	health := registry.HealthAll(ctx)
	byName := make(map[string]component.Health, len(health))
	for _, h := range health {
		byName[h.Name] = h
	}

	for _, c := range registry.All() {
		if d, ok := c.(component.Describable); ok {
			desc := d.Describe()
			name := desc.Name
			if name == "" {
				name = c.Name()
			}
			h, found := byName[c.Name()]
			healthy := !found || h.Status == component.StatusHealthy || h.Status == component.StatusDisabled
			s.TrackInfrastructure(name, desc.Type, desc.Details, healthy)
		}
		if rp, ok := c.(component.RouteProvider); ok {
			for _, r := range rp.Routes() {
				s.TrackRoute(r.Method, r.Path, r.Handler)
			}
		}
	}
	return health
}

// DisplaySummary collects from the registry and renders the summary.
func (s *Summary) DisplaySummary(ctx context.Context, registry *component.Registry) {
	health := s.collect(ctx, registry)
	w := s.out

	fmt.Fprintf(w, "\n🚀 %s %s started in %.2fs\n\n",
		s.serviceName, s.version, s.startupDuration.Seconds())

	if len(s.infrastructure) > 0 {
		fmt.Fprintf(w, "📊 Infrastructure\n")
		for i, inf := range s.infrastructure {
			fmt.Fprintf(w, "   %s %s %s [%s]: %s\n",
				treePrefix(i, len(s.infrastructure)), healthyIcon(inf.Healthy), inf.Name, inf.Type, inf.Details)
		}
	} else {
		fmt.Fprintf(w, "   └── No components registered\n")
	}

	if len(s.routes) > 0 {
		fmt.Fprintf(w, "\n🌐 Routes (%d)\n", len(s.routes))
		for i, r := range s.routes {
			fmt.Fprintf(w, "   %s %-7s %s → %s\n", treePrefix(i, len(s.routes)), r.Method, r.Path, r.Handler)
		}
	}

	if len(s.consumers) > 0 {
		fmt.Fprintf(w, "\n📨 Consumers\n")
		for i, c := range s.consumers {
			fmt.Fprintf(w, "   %s %s (group: %s, topic: %s) [%s]\n",
				treePrefix(i, len(s.consumers)), c.Name, c.Group, c.Topic, c.Status)
		}
	}

	if len(health) > 0 {
		fmt.Fprintf(w, "\n🏥 Health Check\n")
		healthy := 0
		for i, h := range health {
			msg := ""
			if h.Message != "" {
				msg = " (" + h.Message + ")"
			}
			fmt.Fprintf(w, "   %s %s %s: %s%s\n",
				treePrefix(i, len(health)), healthStatusIcon(h.Status), h.Name, strings.ToLower(string(h.Status)), msg)
			if h.Status == component.StatusHealthy || h.Status == component.StatusDisabled {
				healthy++
			}
		}
		if healthy == len(health) {
			fmt.Fprintf(w, "\n✅ All components healthy (%d/%d)\n", healthy, len(health))
		} else {
			fmt.Fprintf(w, "\n⚠️  Some components have issues (%d/%d healthy)\n", healthy, len(health))
		}
	}

	fmt.Fprintln(w)
}

func treePrefix(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func healthyIcon(healthy bool) string {
	if healthy {
		return "✅"
	}
	return "❌"
}

func healthStatusIcon(status component.HealthStatus) string {
	switch status {
	case component.StatusHealthy:
		return "✅"
	case component.StatusDegraded:
		return "⚠️"
	case component.StatusUnhealthy:
		return "❌"
	case component.StatusDisabled:
		return "⏸️"
	default:
		return "❓"
	}
}
