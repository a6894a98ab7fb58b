//-------------------------------------------------------------------------
//
// Catena RAG Server
//
// Portions copyright (c) 2025 - 2026, The Catena Authors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package server provides the HTTP server for the question-answering API.
package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/catenadev/catena-rag-server/internal/config"
	"github.com/catenadev/catena-rag-server/internal/engine"
	"github.com/catenadev/catena-rag-server/internal/index"
)

// EngineManager defines the interface for the query engine lifecycle.
type EngineManager interface {
	Ready() bool
	Engine() *engine.Engine
	Stats(ctx context.Context) index.Stats
	Description() string
	CollectionName() string
	EmbeddingModel() string
	RAGModel() string
	Close() error
}

// Server is the HTTP server for the question-answering API.
type Server struct {
	config  *config.Config
	engines EngineManager
	version string
	logger  *slog.Logger
	server  *http.Server
	mux     *http.ServeMux
}

// New creates a new HTTP server.
func New(cfg *config.Config, em EngineManager, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:  cfg,
		engines: em,
		version: version,
		logger:  logger,
		mux:     http.NewServeMux(),
	}

	// Set up routes
	s.setupRoutes()

	return s
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.ListenAddress, s.config.Server.Port)

	s.server = &http.Server{
		Addr:    addr,
		Handler: s.applyMiddleware(s.mux),
		// The ask handler lifts the write deadline for SSE responses.
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info("starting server",
		"address", addr,
		"tls", s.config.Server.TLS.Enabled)

	if s.config.Server.TLS.Enabled {
		return s.serveTLS()
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	return s.server.Serve(listener)
}

// serveTLS starts the server with TLS.
func (s *Server) serveTLS() error {
	tlsCfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}
	s.server.TLSConfig = tlsCfg

	return s.server.ListenAndServeTLS(
		s.config.Server.TLS.CertFile,
		s.config.Server.TLS.KeyFile,
	)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}

	return nil
}

// Addr returns the server's address. Returns empty string if not started.
func (s *Server) Addr() string {
	if s.server != nil {
		return s.server.Addr
	}
	return ""
}
