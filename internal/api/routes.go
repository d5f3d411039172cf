package api

import (
	"net/http"

	"github.com/BerndBr/taskana/internal/config"
	"github.com/BerndBr/taskana/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	runtime *Runtime,
) {
	archives := newArchiveHandler(runtime.Storage, runtime.Logger)

	groups := []routes.Group{
		domain.Classifications.Handler(cfg.API.MaxUploadSizeBytes()).Routes(),
		domain.AccessItems.Handler().Routes(),
		archives.routes(),
	}

	routes.Register(mux, groups...)
	runtime.Logger.Debug("api routes registered",
		"base_path", cfg.API.BasePath,
		"routes", routes.Patterns(groups...),
	)
}
