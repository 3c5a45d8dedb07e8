package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/temperature-map/internal/domain"
	"github.com/couchcryptid/temperature-map/internal/pipeline"
)

// Service is the dataset API consumed by the handlers. *pipeline.Loader implements it.
type Service interface {
	sharedobs.ReadinessChecker
	Current() (*pipeline.Dataset, error)
	Periods() ([]string, string, error)
	Range(period string) (domain.Range, error)
	Choropleth(period string) (pipeline.Choropleth, error)
	Tooltip(id, period string) (domain.Tooltip, error)
	Load(ctx context.Context) (*pipeline.Dataset, error)
}

// Server exposes the dataset API alongside health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	service    Service
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the /api/v1 routes.
func NewServer(addr string, service Service, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		service: service,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(service))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/v1/periods", s.handlePeriods)
	mux.HandleFunc("GET /api/v1/entities", s.handleEntities)
	mux.HandleFunc("GET /api/v1/range", s.handleRange)
	mux.HandleFunc("GET /api/v1/choropleth", s.handleChoropleth)
	mux.HandleFunc("GET /api/v1/tooltip", s.handleTooltip)
	mux.HandleFunc("GET /api/v1/legend", s.handleLegend)
	mux.HandleFunc("GET /api/v1/series", s.handleSeries)
	mux.HandleFunc("POST /api/v1/reload", s.handleReload)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}
