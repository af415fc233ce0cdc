// Package monitoring serves the bridge's status over HTTP so an
// operator can check the rig without joining the control session.
package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"rigbridge/bridge"
	"rigbridge/config"
)

// Server is the HTTP monitoring server
type Server struct {
	cfg        *config.MonitoringConfig
	bridge     *bridge.Bridge
	logger     *slog.Logger
	httpServer *http.Server
	startTime  time.Time
}

// NewServer creates a new monitoring server
func NewServer(cfg *config.MonitoringConfig, b *bridge.Bridge, logger *slog.Logger) *Server {
	return &Server{
		cfg:       cfg,
		bridge:    b,
		logger:    logger,
		startTime: time.Now(),
	}
}

// Start starts the HTTP server. A port of 0 disables monitoring.
func (s *Server) Start() error {
	if s.cfg.Port == 0 {
		s.logger.Info("Monitoring server disabled")
		return nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/stats", s.handleStats)

	addr := fmt.Sprintf(":%d", s.cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.httpServer = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Monitoring server error", "error", err)
		}
	}()

	s.logger.Info("Monitoring server started", "port", s.cfg.Port)
	return nil
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// handleHealth responds to health checks
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":     "ok",
		"uptime_sec": int64(time.Since(s.startTime).Seconds()),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleStats returns the bridge status snapshot
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.bridge.Snapshot())
}
