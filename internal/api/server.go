package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gestor360/commission/internal/calculator"
	"github.com/gestor360/commission/internal/domain"
	"github.com/gestor360/commission/internal/goals"
	"github.com/gestor360/commission/internal/rules"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, repo domain.Repository, cache domain.Cache, calc *calculator.Calculator, engine *rules.Engine, goalSvc *goals.Service, version string) *Server {
	handler := NewHandler(repo, cache, calc, engine, goalSvc, version)
	router := chi.NewRouter()

	router.Use(CORSMiddleware)
	router.Use(RecoverMiddleware)
	router.Use(TracingMiddleware)
	router.Use(LoggingMiddleware)
	router.Use(middleware.RealIP)
	router.Use(middleware.Compress(5))

	// Health endpoints (no tenant required)
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	router.Group(func(r chi.Router) {
		r.Use(TenantMiddleware)

		r.Post("/commission/simulate", handler.Simulate)

		r.Post("/sales", handler.CreateSale)
		r.Get("/sales/{id}", handler.GetSale)

		r.Get("/commission-tables", handler.ListCommissionTables)
		r.Get("/commission-tables/{productType}", handler.GetCommissionTable)
		r.Put("/commission-tables/{productType}", handler.PutCommissionTable)

		r.Get("/campaigns", handler.ListCampaigns)
		r.Post("/campaigns", handler.CreateCampaign)
		r.Get("/campaigns/{id}", handler.GetCampaign)
		r.Put("/campaigns/{id}", handler.UpdateCampaign)
		r.Delete("/campaigns/{id}", handler.DeleteCampaign)

		r.Get("/settings/avista-rule", handler.GetAvistaRule)
		r.Put("/settings/avista-rule", handler.PutAvistaRule)

		r.Get("/goals/{userId}/{month}", handler.GetGoal)
		r.Put("/goals/{userId}/{month}", handler.PutGoal)
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
