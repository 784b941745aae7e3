// Package server exposes the question-answering pipeline and the document
// collection over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// QueryRunner answers questions. *pipeline.Orchestrator implements it.
type QueryRunner interface {
	Run(ctx context.Context, question string) (*models.QueryState, error)
	RunMany(ctx context.Context, questions []string) []pipeline.BatchItem
}

// Collection manages the ingested documents. *indexer.Indexer implements it.
type Collection interface {
	Info(ctx context.Context) (*models.CollectionInfo, error)
	IndexFile(ctx context.Context, path string) (*indexer.FileResult, error)
	IndexDirectory(ctx context.Context, dir string) (*indexer.DirectoryResult, error)
	Clear(ctx context.Context) error
}

// Server is the HTTP server for the kotae API.
type Server struct {
	pipeline   QueryRunner
	collection Collection
	config     config.ServerConfig
	gatherer   prometheus.Gatherer
	version    string
	logger     *zap.Logger
	handler    http.Handler
	server     *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithGatherer serves metrics from g on /metrics instead of the default registry.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithVersion sets the version reported on /.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// NewServer creates a server with the given dependencies.
func NewServer(p QueryRunner, c Collection, cfg config.ServerConfig, opts ...Option) *Server {
	s := &Server{
		pipeline:   p,
		collection: c,
		config:     cfg,
		gatherer:   prometheus.DefaultGatherer,
		version:    "dev",
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.handler = s.routes()
	return s
}

func (s *Server) requestTimeout() time.Duration {
	if s.config.WriteTimeout <= 0 {
		return 120 * time.Second
	}
	return s.config.WriteTimeout
}

func (s *Server) routes() http.Handler {
	timeout := s.requestTimeout()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	r.Use(middleware.Compress(5))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/query", s.handleQuery)
		r.Post("/batch-query", s.handleBatchQuery)
		r.Get("/collection", s.handleCollectionInfo)
		r.Delete("/collection", s.handleCollectionClear)
		r.Post("/documents", s.handleIngest)
	})
	return r
}

// Handler returns the HTTP handler with all routes and middleware.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.config.Addr()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadTimeout:       s.config.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		// Leave room for the timeout middleware to write its 503.
		WriteTimeout: s.requestTimeout() + 5*time.Second,
	}
	s.logger.Info("starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
