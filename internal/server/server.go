// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jeranaias/chatrelay/internal/cloud"
	"github.com/jeranaias/chatrelay/internal/config"
)

// =============================================================================
// SERVER
// =============================================================================

// Server is the chat relay HTTP server.
type Server struct {
	cfg     *config.Config
	factory cloud.Factory
	metrics *Metrics
	router  *http.ServeMux
	handler http.Handler

	mu     sync.Mutex
	server *http.Server
}

// New creates a relay server. factory builds the upstream provider for the
// credential found at request time.
func New(cfg *config.Config, factory cloud.Factory) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	s := &Server{
		cfg:     cfg,
		factory: factory,
		metrics: NewMetrics(knownModels(cfg)...),
		router:  http.NewServeMux(),
	}
	s.setupRoutes()
	s.handler = Chain(
		RecoveryMiddleware(),
		SecurityHeadersMiddleware(),
		LoggingMiddleware(log.Default()),
		CORSMiddleware(NewCORSConfig(cfg.Server.CORSOrigins)),
	)(s.router)
	return s
}

// knownModels lists the upstream model names the relay expects to serve:
// the default plus the concrete name of every configured client model.
func knownModels(cfg *config.Config) []string {
	names := []string{cfg.Upstream.DefaultModel}
	for _, opt := range cfg.Client.Models {
		names = append(names, SelectModel(opt.Value, false, cfg.Upstream.DefaultModel))
	}
	return names
}

// setupRoutes configures the HTTP routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("POST /api/chat", s.handleChat)
	s.router.HandleFunc("GET /api/test", s.handleDiagnostic)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.Handle("GET /metrics", s.metrics.Handler())
}

// Handler returns the routed handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Metrics returns the server's metrics.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Start listens on the configured address and serves until Shutdown.
// It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	addr := s.cfg.Server.Addr()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Streams are bounded by the request timeout; leave headroom for the
		// final flush.
		WriteTimeout: s.cfg.Server.RequestTimeout() + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()

	log.Printf("SERVER_START | addr=%s model=%s", ln.Addr(), s.cfg.Upstream.DefaultModel)
	err := srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	log.Printf("SERVER_SHUTDOWN | starting graceful shutdown")
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("SERVER_SHUTDOWN | error=%v", err)
		return err
	}
	log.Printf("SERVER_SHUTDOWN | complete")
	return nil
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("JSON_ENCODE_ERROR | error=%v", err)
	}
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
