// Package routing maps an inbound path's first segment to the backend that
// owns it. The table is built once at startup and read-only afterwards, so
// lookups need no locking.
package routing

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Route describes one backend service entry in the routing table
type Route struct {
	// Service is the path's first segment, e.g. "equipment"
	Service string `json:"service"`
	// BaseURL is the backend's base address (scheme + host + port)
	BaseURL string `json:"base_url"`
	// Host is the backend's own authority, used to overwrite the Host
	// header on the outbound call
	Host string `json:"-"`
}

// Table is the static routing table. Match is exact-equality on the first
// path segment only; there is no wildcard or longest-prefix matching.
type Table struct {
	routes map[string]Route
}

// NewTable builds a routing table from a service-name to base-URL mapping
func NewTable(services map[string]string) (*Table, error) {
	routes := make(map[string]Route, len(services))

	for name, addr := range services {
		if name == "" || strings.Contains(name, "/") {
			return nil, fmt.Errorf("invalid service name %q", name)
		}

		u, err := url.Parse(addr)
		if err != nil {
			return nil, fmt.Errorf("service %q: invalid base URL %q: %w", name, addr, err)
		}
		if u.Host == "" {
			return nil, fmt.Errorf("service %q: base URL %q has no host", name, addr)
		}

		routes[name] = Route{
			Service: name,
			BaseURL: strings.TrimSuffix(addr, "/"),
			Host:    u.Host,
		}
	}

	return &Table{routes: routes}, nil
}

// Resolve classifies a request path. It returns the owning route and true
// when the path's first segment matches a configured service; otherwise it
// returns false, meaning the request is not a gateway route and falls
// through to local handling.
func (t *Table) Resolve(path string) (Route, bool) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return Route{}, false
	}

	service := trimmed
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		service = trimmed[:i]
	}

	route, ok := t.routes[service]
	return route, ok
}

// Routes returns all routing table entries sorted by service name
func (t *Table) Routes() []Route {
	routes := make([]Route, 0, len(t.routes))
	for _, route := range t.routes {
		routes = append(routes, route)
	}

	sort.Slice(routes, func(i, j int) bool {
		return routes[i].Service < routes[j].Service
	})

	return routes
}

// Len returns the number of configured services
func (t *Table) Len() int {
	return len(t.routes)
}
