package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/geo-risk-service/internal/dashboard"
	"github.com/couchcryptid/geo-risk-service/internal/domain"
	"github.com/couchcryptid/geo-risk-service/internal/observability"
	"github.com/couchcryptid/geo-risk-service/internal/presentation"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/paulmach/orb/geojson"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dashboard is the query surface the API exposes. It is implemented by
// dashboard.Service.
type Dashboard interface {
	Assess(ctx context.Context, req domain.AssessmentRequest) (domain.Assessment, error)
	Score(sample domain.EnvironmentalSample) (dashboard.ScoreResult, error)
	Project(base domain.EnvironmentalSample, targetYear int, scenario string) (dashboard.ProjectionResult, error)
	StyledLayer() (*geojson.FeatureCollection, error)
	Feature(id string) (presentation.FeatureSummary, error)
	FeatureTrend(id string) (domain.Trend, error)
	Trend() domain.Trend
	KPIs() (presentation.KPIs, error)
	Legend() presentation.Legend
	Status() dashboard.Status
}

// Options tunes the API surface.
type Options struct {
	RateLimitRPS     float64
	RateLimitBurst   int
	DefaultDatasetID string

	// Pipeline, when set, is reported as pipeline_ready on /api/v1/status.
	Pipeline sharedobs.ReadinessChecker
}

// Server exposes the dashboard API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server. catalog may be nil, in which case the
// catalog routes answer 503.
func NewServer(addr string, api Dashboard, catalog domain.CatalogFetcher, ready sharedobs.ReadinessChecker, opts Options, metrics *observability.Metrics, logger *slog.Logger) *Server {
	h := &handlers{
		api:       api,
		catalog:   catalog,
		datasetID: opts.DefaultDatasetID,
		pipeline:  opts.Pipeline,
		logger:    logger,
	}

	apiMux := http.NewServeMux()
	apiMux.HandleFunc("POST /api/v1/assess", h.assess)
	apiMux.HandleFunc("GET /api/v1/score", h.score)
	apiMux.HandleFunc("GET /api/v1/project", h.project)
	apiMux.HandleFunc("GET /api/v1/layer", h.layer)
	apiMux.HandleFunc("GET /api/v1/legend", h.legend)
	apiMux.HandleFunc("GET /api/v1/kpis", h.kpis)
	apiMux.HandleFunc("GET /api/v1/trend", h.trend)
	apiMux.HandleFunc("GET /api/v1/status", h.status)
	apiMux.HandleFunc("GET /api/v1/features/{id}", h.feature)
	apiMux.HandleFunc("GET /api/v1/features/{id}/trend", h.featureTrend)
	apiMux.HandleFunc("GET /api/v1/catalog", h.dataset)
	apiMux.HandleFunc("GET /api/v1/catalog/{id}", h.dataset)

	limiter := newRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst, metrics)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("/api/", limiter.middleware(withMetrics(apiMux, metrics)))

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      withLogging(withRecovery(mux, logger), logger),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
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
