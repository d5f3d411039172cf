// Package routes declares HTTP endpoints as nested groups and registers
// them on a ServeMux using method-qualified patterns.
package routes

import (
	"net/http"
	"slices"
)

// Route binds an HTTP method and pattern to a handler.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

// Group shares a path prefix and middleware across its routes and children.
// Middleware of an outer group wraps that of inner groups.
type Group struct {
	Prefix     string
	Middleware []func(http.Handler) http.Handler
	Routes     []Route
	Children   []Group
}

// Register adds every route of groups to mux.
func Register(mux *http.ServeMux, groups ...Group) {
	walk(groups, "", nil, func(pattern string, h http.Handler) {
		mux.Handle(pattern, h)
	})
}

// Patterns lists the sorted patterns groups would register.
func Patterns(groups ...Group) []string {
	var out []string
	walk(groups, "", nil, func(pattern string, _ http.Handler) {
		out = append(out, pattern)
	})
	slices.Sort(out)
	return out
}

func walk(groups []Group, prefix string, outer []func(http.Handler) http.Handler, visit func(string, http.Handler)) {
	for _, g := range groups {
		chain := append(slices.Clone(outer), g.Middleware...)
		base := prefix + g.Prefix

		for _, r := range g.Routes {
			var h http.Handler = r.Handler
			for i := len(chain) - 1; i >= 0; i-- {
				h = chain[i](h)
			}
			visit(r.Method+" "+base+r.Pattern, h)
		}

		walk(g.Children, base, chain, visit)
	}
}
