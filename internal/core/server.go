// Package core provides the API chassis for the ClimaRoute risk service.
// It creates a chi router and enforces cross-cutting concerns -- panic
// recovery, request timeouts, correlation IDs, logging, and CORS -- before
// requests reach domain-specific handlers.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"climaroute/internal/config"
)

// ArtifactStatus exposes the loaded state of the inference artifacts to the
// health and readiness endpoints. Implemented by *model.ArtifactSet.
type ArtifactStatus interface {
	Loaded() bool
}

// Server encapsulates all dependencies for the risk API, allowing for easy
// injection during testing and distinct configuration for different
// environments.
type Server struct {
	Config    *config.Config
	Logger    *slog.Logger
	Validator *Validator
	Artifacts ArtifactStatus

	// RouteRegistrars are populated by the application entry point before
	// MountRoutes. This indirection avoids import cycles between core and
	// handler packages.
	RouteRegistrars []func(chi.Router)

	router *chi.Mux
}

// NewServer initializes dependencies and prepares the server for route
// mounting. It performs a fail-fast check on critical dependencies.
//
// The caller is responsible for appending RouteRegistrars and calling
// MountRoutes after construction.
func NewServer(cfg *config.Config, artifacts ArtifactStatus, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if artifacts == nil {
		return nil, fmt.Errorf("artifact status must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(logger),
		Artifacts: artifacts,
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the http.Handler interface for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration in tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Shutdown performs a graceful termination of server resources.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("server shutdown complete")
	return nil
}
