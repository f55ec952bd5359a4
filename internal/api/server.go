// Package api serves schedule analysis over HTTP for the visualization
// layer.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AlgoNouir/atomation/internal/config"
	"github.com/AlgoNouir/atomation/internal/cpm"
	"github.com/AlgoNouir/atomation/internal/history"
)

// Version is reported by the health endpoint.
var Version = "dev"

// Store is the subset of the history store the server uses. A nil Store
// disables recording and the history endpoints.
type Store interface {
	Record(ctx context.Context, run *history.Run) error
	List(ctx context.Context, limit int) ([]history.Run, error)
	Get(ctx context.Context, id string) (*history.Run, error)
}

// Server is the HTTP API server.
type Server struct {
	cfg        config.ServerConfig
	relations  cpm.RelationMode
	deadlines  bool
	store      Store
	logger     *slog.Logger
	router     *gin.Engine
	httpServer *http.Server
	startTime  time.Time
}

// NewServer builds a server and its routes. store may be nil.
func NewServer(cfg *config.Config, store Store, logger *slog.Logger) (*Server, error) {
	mode, err := cpm.ParseRelationMode(cfg.Analysis.Relations)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:       cfg.Server,
		relations: mode,
		deadlines: cfg.Analysis.Deadlines,
		store:     store,
		logger:    logger,
		startTime: time.Now(),
	}
	s.router = s.setupRouter()
	s.httpServer = &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	return s, nil
}

// Router returns the HTTP handler, for embedding or tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start listens on the configured address and blocks until the server is
// shut down.
func (s *Server) Start() error {
	s.logger.Info("api server starting", "addr", s.cfg.Addr())

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server listen failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("api server shutting down")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("api server stopped")
	return nil
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.cfg.Addr()
}
