package server

import (
	"sort"
	"strings"

	"github.com/kbukum/ssehub/component"
)

// Probe and info routes registered by RegisterDefaultEndpoints.
var systemPaths = map[string]bool{
	"/health":  true,
	"/alive":   true,
	"/ready":   true,
	"/info":    true,
	"/version": true,
	"/metrics": true,
}

// Routes lists the registered Gin routes, API routes first, each group
// ordered by path then method.
func (s *Server) Routes() []component.Route {
	ginRoutes := s.engine.Routes()

	sort.Slice(ginRoutes, func(i, j int) bool {
		iSys := systemPaths[ginRoutes[i].Path]
		jSys := systemPaths[ginRoutes[j].Path]
		if iSys != jSys {
			return !iSys
		}
		if ginRoutes[i].Path != ginRoutes[j].Path {
			return ginRoutes[i].Path < ginRoutes[j].Path
		}
		return methodOrder(ginRoutes[i].Method) < methodOrder(ginRoutes[j].Method)
	})

	routes := make([]component.Route, 0, len(ginRoutes))
	for _, r := range ginRoutes {
		handler := formatHandlerName(r.Handler)
		if systemPaths[r.Path] {
			handler += " (system)"
		}
		routes = append(routes, component.Route{
			Method:  r.Method,
			Path:    r.Path,
			Handler: handler,
		})
	}
	return routes
}

// formatHandlerName trims Gin's full handler path.
//
//	"github.com/kbukum/ssehub/api.(*Handlers).Publish-fm" -> "Handlers.Publish"
func formatHandlerName(fullPath string) string {
	name := strings.TrimSuffix(fullPath, "-fm")

	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}

	name = strings.ReplaceAll(name, "(*", "")
	name = strings.ReplaceAll(name, ")", "")

	// Closures such as "endpoint.Health.func1" become "health".
	if strings.Contains(name, ".func") {
		parts := strings.Split(name, ".")
		for i := len(parts) - 1; i >= 0; i-- {
			if !strings.HasPrefix(parts[i], "func") {
				name = strings.ToLower(parts[i])
				break
			}
		}
	}

	// Drop a lowercase package prefix.
	parts := strings.SplitN(name, ".", 2)
	if len(parts) == 2 && parts[0] == strings.ToLower(parts[0]) && parts[1] != "" {
		name = parts[1]
	}

	return name
}

// methodOrder returns a sort key for HTTP methods (GET first, DELETE last).
func methodOrder(method string) int {
	switch method {
	case "GET":
		return 0
	case "POST":
		return 1
	case "PUT":
		return 2
	case "PATCH":
		return 3
	case "DELETE":
		return 4
	default:
		return 5
	}
}
