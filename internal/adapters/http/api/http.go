// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/paulmach/orb"

	"github.com/okian/saferoute/internal/domain/model"
	"github.com/okian/saferoute/internal/domain/types"
	"github.com/okian/saferoute/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	PointRisk(ctx context.Context, lat, lng float64, since *time.Time) (types.PointRisk, error)
	RouteRisk(ctx context.Context, origin, destination orb.Point, mode model.Mode) (types.RouteRisk, error)
	ScoreRoutes(ctx context.Context, candidates []model.RouteCandidate) (types.RouteRisk, error)

	// Ready reports whether incident data is loaded.
	Ready() bool
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	pointHandler  *PointHandler
	routeHandler  *RouteHandler

	corsOrigins    []string
	requestTimeout time.Duration
	logger         logger.Logger
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithCORSOrigins sets the browser origins allowed to call the API.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		s.corsOrigins = origins
	}
}

// WithRequestTimeout bounds each request end to end. Zero disables it.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.requestTimeout = d
	}
}

// WithLogger sets a custom logger for the handlers.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("http")
	}
	s.healthHandler = NewHealthHandler(deps)
	s.statsHandler = NewStatsHandler(statsProvider)
	s.pointHandler = NewPointHandler(deps, s.logger)
	s.routeHandler = NewRouteHandler(deps, s.logger)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /readyz", MetricsMiddleware(s.healthHandler.HandleReady, "readyz"))
	mux.HandleFunc("GET /metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /v1/risk/point", MetricsMiddleware(s.pointHandler.HandlePoint, "risk_point"))
	mux.HandleFunc("GET /v1/risk/route", MetricsMiddleware(s.routeHandler.HandleRoute, "risk_route"))
	mux.HandleFunc("POST /v1/risk/routes", MetricsMiddleware(s.routeHandler.HandleScoreRoutes, "risk_routes"))
}

// Handler wraps mux with request IDs, the request timeout and CORS.
func (s *Server) Handler(mux *http.ServeMux) http.Handler {
	var h http.Handler = mux
	if s.requestTimeout > 0 {
		h = TimeoutMiddleware(h, s.requestTimeout)
	}
	h = RequestIDMiddleware(h)
	if len(s.corsOrigins) > 0 {
		h = cors.Handler(cors.Options{
			AllowedOrigins: s.corsOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", RequestIDHeader},
			ExposedHeaders: []string{RequestIDHeader},
			MaxAge:         corsMaxAge,
		})(h)
	}
	return h
}
