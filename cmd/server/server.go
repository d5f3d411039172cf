package main

import (
	"time"

	"github.com/BerndBr/taskana/internal/api"
	"github.com/BerndBr/taskana/internal/config"
	"github.com/BerndBr/taskana/internal/infrastructure"
)

// Server owns the infrastructure and the HTTP listener of the taskana service.
type Server struct {
	infra *infrastructure.Infrastructure
	http  *httpServer
}

func NewServer(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}

	apiModule, err := api.NewModule(cfg, infra)
	if err != nil {
		return nil, err
	}

	router := buildRouter(infra)
	router.Mount(apiModule)

	return &Server{
		infra: infra,
		http:  newHTTPServer(&cfg.Server, router, infra.Logger),
	}, nil
}

// Start starts the infrastructure, then binds the listener. A bind failure
// is returned rather than logged.
func (s *Server) Start() error {
	if err := s.infra.Start(); err != nil {
		return err
	}

	if err := s.http.Start(s.infra.Lifecycle); err != nil {
		return err
	}

	go func() {
		s.infra.Lifecycle.WaitForStartup()
		s.infra.Logger.Info("all subsystems ready")
	}()

	return nil
}

func (s *Server) Shutdown(timeout time.Duration) error {
	s.infra.Logger.Info("initiating shutdown")
	return s.infra.Lifecycle.Shutdown(timeout)
}
