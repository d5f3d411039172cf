package module

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Router is the server's top-level handler. Modules own their prefixes;
// operational endpoints are registered directly.
type Router struct {
	mux chi.Router
}

// NewRouter creates a Router that ignores trailing slashes.
func NewRouter() *Router {
	mux := chi.NewRouter()
	mux.Use(chimw.StripSlashes)
	return &Router{mux: mux}
}

// Handle registers an operational endpoint outside any module.
func (r *Router) Handle(method, path string, handler http.HandlerFunc) {
	r.mux.Method(method, path, handler)
}

// Mount serves m for its prefix and everything below it.
func (r *Router) Mount(m *Module) {
	r.mux.Mount(m.prefix, m.Handler())
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}
