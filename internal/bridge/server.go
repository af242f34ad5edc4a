// Package bridge exposes the agent's latest state to local collaborators,
// typically a desktop widget or the app UI during development. Everything it
// serves is read-only; mutation always goes through the agent pipeline.
package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/glucopilot/glucopilot-agent/internal/config"
	"github.com/glucopilot/glucopilot-agent/internal/domain"
	"github.com/glucopilot/glucopilot-agent/internal/logger"
	"github.com/glucopilot/glucopilot-agent/internal/status"
)

// Server is the local HTTP surface over the status store and event hub.
type Server struct {
	cfg    config.BridgeConfig
	status status.Store
	hub    *Hub
	server *http.Server
}

// NewServer creates a bridge server. The hub may be shared with an agent
// event forwarder.
func NewServer(cfg config.BridgeConfig, store status.Store, hub *Hub) *Server {
	return &Server{cfg: cfg, status: store, hub: hub}
}

// Handler builds the full middleware-wrapped route tree.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/status", s.handleStatus).Methods("GET")
	r.HandleFunc("/api/glucose/latest", s.handleLatestGlucose).Methods("GET")
	r.HandleFunc("/api/insights", s.handleInsights).Methods("GET")
	r.HandleFunc("/ws", s.hub.HandleWS)
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.HandleFunc("/", s.handleRoot).Methods("GET")

	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET"},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(loggingMiddleware(r))
}

// Start serves until the context is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("bridge listening", "addr", s.Address())
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown()
	case err := <-errCh:
		return err
	}
}

// Shutdown closes WebSocket clients and stops the HTTP server.
func (s *Server) Shutdown() error {
	s.hub.CloseAll()
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Address returns the base URL the server binds to.
func (s *Server) Address() string {
	return fmt.Sprintf("http://%s:%d", s.cfg.Host, s.cfg.Port)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": "glucopilot-agent-bridge",
		"endpoints": []string{
			"/api/status", "/api/glucose/latest", "/api/insights", "/metrics", "/ws",
		},
		"clients": s.hub.ClientCount(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status.Snapshot())
}

func (s *Server) handleLatestGlucose(w http.ResponseWriter, r *http.Request) {
	snap := s.status.Snapshot()
	if snap.LatestReading == nil {
		writeError(w, http.StatusNotFound, "no glucose reading recorded yet")
		return
	}
	writeJSON(w, http.StatusOK, snap.LatestReading)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	insights := s.status.Snapshot().Insights
	if insights == nil {
		insights = []domain.Insight{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"insights": insights})
}

func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to encode bridge response", "error", err)
	}
}

// writeError uses the same {"detail": ...} envelope as the backend so UI
// clients parse one error shape.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"detail": message})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)
		logger.Debug("bridge request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapper.statusCode,
			"duration", time.Since(start).String(),
		)
	})
}

type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack passes WebSocket upgrades through the wrapper.
func (rw *responseWrapper) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("underlying ResponseWriter does not support hijacking")
	}
	return hj.Hijack()
}
