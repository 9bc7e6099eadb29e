// Package server provides the HTTP API for RFQ Rocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/rfqrocket/internal/config"
	"github.com/hyperjump/rfqrocket/internal/metrics"
	"github.com/hyperjump/rfqrocket/internal/service"
	"go.uber.org/zap"
)

// Server is the HTTP server for the RFQ Rocket API.
type Server struct {
	svc        *service.Service
	config     *config.ServerConfig
	uploadDir  string
	extensions []string
	metrics    *metrics.Metrics
	logger     *zap.Logger
	server     *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics records upload and email outcomes and serves /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// NewServer creates a server with the given dependencies. Uploads are staged
// in uploadDir and must carry one of extensions.
func NewServer(
	svc *service.Service,
	cfg *config.ServerConfig,
	uploadDir string,
	extensions []string,
	logger *zap.Logger,
	opts ...Option,
) *Server {
	s := &Server{
		svc:        svc,
		config:     cfg,
		uploadDir:  uploadDir,
		extensions: extensions,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// Generation runs one model call per chunk and is not bounded by the
	// request timeout below.
	r.Post("/api/upload", s.handleUpload)
	r.Post("/api/send-email", s.handleSendEmail)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Get("/download/{filename}", s.handleDownload)
		r.Get("/api/v1/generations", s.handleListGenerations)
		r.Get("/api/v1/generations/{id}", s.handleGetGeneration)
		r.Delete("/api/v1/generations/{id}", s.handleDeleteGeneration)
		r.Get("/api/v1/search", s.handleSearch)
		r.Get("/api/v1/status", s.handleStatus)
		r.Get("/health", s.handleHealth)
		if s.metrics != nil {
			r.Handle("/metrics", s.metrics.Handler())
		}
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
// After Stop it returns nil.
func (s *Server) Start() error {
	s.logger.Info("Starting server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
