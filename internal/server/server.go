// Package server provides the HTTP server for repwatch: the sessions API,
// the live detection WebSocket and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ayusman/repwatch/internal/logging"
	"github.com/ayusman/repwatch/internal/server/api"
	"github.com/ayusman/repwatch/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir   string
	Store       *store.Store
	Broadcaster *Broadcaster
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

// Server represents the HTTP server.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	logger *zap.Logger
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
		logger: logging.OrNop(config.Logger),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Store != nil {
		sessions := api.NewSessionHandler(s.config.Store)
		s.mux.Handle("/api/sessions", sessions)
		s.mux.Handle("/api/sessions/", sessions)
	}

	if s.config.Broadcaster != nil {
		s.mux.Handle("/api/events", s.config.Broadcaster)
	}

	if s.config.Gatherer != nil {
		s.mux.Handle("/metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.Broadcaster != nil {
		response["clients"] = s.config.Broadcaster.ClientCount()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	if s.config.Broadcaster != nil {
		s.config.Broadcaster.Close()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
