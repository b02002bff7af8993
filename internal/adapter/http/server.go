// Package http exposes the service's HTTP surface: health, readiness,
// metrics, the on-demand sweep trigger, active-alert reads, and the
// realtime event stream.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trailhaven/ecowatch/internal/domain"
	"github.com/trailhaven/ecowatch/internal/fanout"
	"github.com/trailhaven/ecowatch/internal/monitor"
)

// Sweeper runs a monitoring sweep on demand.
type Sweeper interface {
	RunSweep(ctx context.Context, destinationID string) monitor.Report
	CheckReadiness(ctx context.Context) error
}

// AlertReader lists currently-active alerts from the record store.
type AlertReader interface {
	ActiveAlerts(ctx context.Context, destinationID string) ([]domain.Alert, error)
}

// Server exposes the HTTP endpoints.
type Server struct {
	httpServer *http.Server
	sweeper    Sweeper
	alerts     AlertReader
	hub        *fanout.Hub
	logger     *slog.Logger
}

// NewServer creates the HTTP server and wires all routes.
func NewServer(addr string, sweeper Sweeper, alerts AlertReader, hub *fanout.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:        addr,
			Handler:     mux,
			ReadTimeout: 10 * time.Second,
			// No WriteTimeout: /events streams indefinitely.
			IdleTimeout: 60 * time.Second,
		},
		sweeper: sweeper,
		alerts:  alerts,
		hub:     hub,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /api/v1/sweep", s.handleSweep)
	mux.HandleFunc("GET /api/v1/alerts/active", s.handleActiveAlerts)
	mux.HandleFunc("GET /events", s.handleEvents)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.sweeper.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleSweep runs a sweep and returns its report. The report is always a
// structured 200 response; per-destination failures live inside it.
func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	destinationID := r.URL.Query().Get("destination")
	report := s.sweeper.RunSweep(r.Context(), destinationID)
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleActiveAlerts(w http.ResponseWriter, r *http.Request) {
	destinationID := r.URL.Query().Get("destination")
	alerts, err := s.alerts.ActiveAlerts(r.Context(), destinationID)
	if err != nil {
		s.logger.Error("active alerts read failed", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "record store unavailable"})
		return
	}
	if alerts == nil {
		alerts = []domain.Alert{}
	}
	writeJSON(w, http.StatusOK, alerts)
}

// handleEvents streams broadcast events to one client over SSE. The client
// opens the stream once and reconnects on its own if it drops; there is no
// resumption token and no replay of earlier events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := s.hub.Subscribe()
	defer s.hub.Unsubscribe(sub)

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				s.logger.Warn("event marshal failed", "event_type", ev.Type, "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
