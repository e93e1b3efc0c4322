// Package server provides the HTTP API for predab.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/protein-design/predict-antibody/internal/config"
	"github.com/protein-design/predict-antibody/internal/pipeline"
	"github.com/protein-design/predict-antibody/internal/storage"
)

// WatchService manages the watched input directories.
type WatchService interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
}

// Server is the HTTP server for the predab API.
type Server struct {
	pipeline *pipeline.Pipeline
	storage  storage.Storage
	config   *config.ServerConfig
	logger   *zap.Logger
	server   *http.Server

	watch         WatchService
	configPath    string
	appConfig     *config.Config
	appConfigMu   sync.Mutex
	maxUploadSize int64
}

// NewServer creates a server with the given dependencies. watch may be nil,
// in which case the watch endpoints answer 501. When configPath and
// appConfig are set, watch directory changes are persisted to the config file.
func NewServer(
	p *pipeline.Pipeline,
	store storage.Storage,
	cfg *config.ServerConfig,
	logger *zap.Logger,
	watch WatchService,
	configPath string,
	appConfig *config.Config,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		pipeline:      p,
		storage:       store,
		config:        cfg,
		logger:        logger,
		watch:         watch,
		configPath:    configPath,
		appConfig:     appConfig,
		maxUploadSize: 64 << 20,
	}
}

// Router returns the HTTP handler with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/match", s.handleMatch)
		r.Post("/distances", s.handleDistances)
		r.Post("/imports/{kind}", s.handleImport)

		r.Post("/runs/match", s.handleRunMatch)
		r.Post("/runs/distance", s.handleRunDistance)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
		r.Get("/runs/{id}/matches", s.handleRunMatches)
		r.Get("/runs/{id}/distances", s.handleRunDistances)
		r.Get("/runs/{id}/report", s.handleRunReport)
		r.Get("/runs/{id}/export", s.handleRunExport)

		r.Get("/status", s.handleStatus)

		r.Get("/watch/directories", s.handleWatchDirectoriesList)
		r.Post("/watch/directories", s.handleWatchDirectoriesAdd)
		r.Delete("/watch/directories", s.handleWatchDirectoriesRemove)
	})
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
