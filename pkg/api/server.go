// Package api serves the relationship queries over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dd0wney/cluso-archgraph/pkg/algorithms"
	"github.com/dd0wney/cluso-archgraph/pkg/api/middleware"
	"github.com/dd0wney/cluso-archgraph/pkg/engine"
	"github.com/dd0wney/cluso-archgraph/pkg/graph"
	"github.com/dd0wney/cluso-archgraph/pkg/health"
	"github.com/dd0wney/cluso-archgraph/pkg/logging"
	"github.com/dd0wney/cluso-archgraph/pkg/metrics"
)

// QueryEngine is the engine surface served over HTTP. *engine.Engine
// implements it.
type QueryEngine interface {
	Chains(ctx context.Context, q engine.ChainsQuery) (*algorithms.ChainResult, error)
	Impact(ctx context.Context, id string) (*algorithms.ImpactResult, error)
	Matrix(ctx context.Context, q engine.MatrixQuery) (*algorithms.MatrixResult, error)
	CriticalPaths(ctx context.Context, q engine.PathsQuery) ([]algorithms.CriticalPath, error)
	RelationshipTypes(ctx context.Context) ([]algorithms.TypeSummary, error)
	Cycles(ctx context.Context, q engine.CyclesQuery) (*engine.CycleReport, error)
	Snapshot(ctx context.Context) (graph.Stats, error)
	Invalidate(source string)
}

// Server represents the HTTP API server
type Server struct {
	engine         QueryEngine
	healthChecker  *health.HealthChecker
	metrics        *metrics.Registry
	graphqlHandler http.Handler
	corsConfig     *middleware.CORSConfig
	tlsEnabled     bool
	maxBodyBytes   int64
	logger         logging.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithHealth serves /health, /health/ready and /health/live.
func WithHealth(hc *health.HealthChecker) Option {
	return func(s *Server) { s.healthChecker = hc }
}

// WithMetrics records HTTP metrics and serves /metrics.
func WithMetrics(r *metrics.Registry) Option {
	return func(s *Server) { s.metrics = r }
}

// WithGraphQL serves h at /graphql.
func WithGraphQL(h http.Handler) Option {
	return func(s *Server) { s.graphqlHandler = h }
}

// WithCORSOrigins allows cross-origin requests from origins.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) { s.corsConfig = middleware.NewCORSConfig(origins) }
}

// WithTLS marks the server as served over TLS, enabling HSTS.
func WithTLS(enabled bool) Option {
	return func(s *Server) { s.tlsEnabled = enabled }
}

// WithLogger sets the request and error logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer creates a new API server
func NewServer(eng QueryEngine, opts ...Option) *Server {
	s := &Server{
		engine:       eng,
		corsConfig:   middleware.DefaultCORSConfig(),
		maxBodyBytes: middleware.DefaultMaxBodyBytes,
		logger:       logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logging.Component("api"))
	return s
}

// Routes registers every endpoint on a fresh mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /relationships/{id}/chains", s.handleChains)
	mux.HandleFunc("GET /relationships/{id}/impact", s.handleImpact)
	mux.HandleFunc("GET /relationships/matrix", s.handleMatrix)
	mux.HandleFunc("POST /relationships/matrix", s.handleMatrixBody)
	mux.HandleFunc("GET /relationships/critical-paths", s.handleCriticalPaths)
	mux.HandleFunc("GET /relationships/types", s.handleTypes)
	mux.HandleFunc("GET /relationships/cycles", s.handleCycles)
	mux.HandleFunc("GET /relationships/snapshot", s.handleSnapshot)
	mux.HandleFunc("POST /relationships/invalidate", s.handleInvalidate)

	mux.HandleFunc("/graphql", s.handleGraphQL)

	if s.healthChecker != nil {
		mux.HandleFunc("GET /health", s.healthChecker.HTTPHandler())
		mux.HandleFunc("GET /health/ready", s.healthChecker.ReadinessHandler())
		mux.HandleFunc("GET /health/live", s.healthChecker.LivenessHandler())
	}
	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.GetPrometheusRegistry(), promhttp.HandlerOpts{}))
	}
	return mux
}

// Handler returns the routes wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	var recorder middleware.MetricsRecorder
	if s.metrics != nil {
		recorder = s.metrics
	}

	var h http.Handler = s.Routes()
	h = middleware.Metrics(recorder)(h)
	h = middleware.BodySizeLimit(s.maxBodyBytes)(h)
	h = middleware.CORS(s.corsConfig)(h)
	h = middleware.SecurityHeaders(&middleware.SecurityHeadersConfig{TLSEnabled: s.tlsEnabled})(h)
	h = middleware.Logging(s.logger)(h)
	h = middleware.RequestID()(h)
	h = middleware.PanicRecovery(s.logger)(h)
	return h
}

func (s *Server) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	if s.graphqlHandler == nil {
		s.respondError(w, r, graph.NewError("graphql").Kind(graph.KindUnavailable).
			Context("GraphQL endpoint not enabled").Cause(graph.ErrUnavailable).Err())
		return
	}
	s.graphqlHandler.ServeHTTP(w, r)
}
