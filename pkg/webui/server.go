// Package webui serves a read-only view of a running pipeline: current state,
// recent logs, Prometheus metrics and a websocket stream of stage events.
package webui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"projectgen/pkg/logx"
)

// maxLogEntries caps /api/logs responses.
const maxLogEntries = 1000

// Server is the status HTTP server.
type Server struct {
	hub      *Hub
	status   func() any
	gatherer prometheus.Gatherer
	logger   *logx.Logger
}

// NewServer creates a server. status returns the JSON-encodable current
// state and may return nil before a run starts. A nil gatherer disables /metrics.
func NewServer(status func() any, gatherer prometheus.Gatherer) *Server {
	hub := NewHub()
	hub.SetStateProvider(status)
	return &Server{
		hub:      hub,
		status:   status,
		gatherer: gatherer,
		logger:   logx.NewLogger("webui"),
	}
}

// Hub returns the event hub backing /ws.
func (s *Server) Hub() *Hub {
	return s.hub
}

// RegisterRoutes sets up HTTP routes.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/logs", s.handleLogs)
	mux.HandleFunc("/api/healthz", s.handleHealth)
	mux.HandleFunc("/ws", s.hub.HandleWebSocket)
	if s.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
}

// Start listens on addr and serves until ctx is done. It returns the bound
// address, which differs from addr when addr uses port 0.
func (s *Server) Start(ctx context.Context, addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go s.hub.Run(ctx)
	go s.forwardLogs(ctx)
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Server error: %v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		//nolint:contextcheck // parent is cancelled; shutdown needs a fresh context
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("HTTP server shutdown failed: %v", err)
		}
	}()

	s.logger.Info("Status server listening on http://%s", ln.Addr())
	return ln.Addr().String(), nil
}

// forwardLogs streams every new log entry to websocket clients.
func (s *Server) forwardLogs(ctx context.Context) {
	entries, unsubscribe := logx.Subscribe(sendBuffer)
	defer unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-entries:
			if !ok {
				return
			}
			s.hub.Publish(TopicLogs, "log", e)
		}
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var state any
	if s.status != nil {
		state = s.status()
	}
	if state == nil {
		http.Error(w, "No run in progress", http.StatusNotFound)
		return
	}
	s.writeJSON(w, state)
}

// handleLogs implements GET /api/logs?component=&since=RFC3339.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	query := r.URL.Query()
	var since time.Time
	if raw := query.Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "Invalid since parameter (use RFC3339)", http.StatusBadRequest)
			return
		}
		since = parsed
	}

	logs := logx.RecentEntries(query.Get("component"), since)
	if len(logs) > maxLogEntries {
		logs = logs[len(logs)-maxLogEntries:]
	}
	if logs == nil {
		logs = []logx.LogEntry{}
	}
	s.writeJSON(w, logs)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, map[string]any{
		"status":         "ok",
		"ws_clients":     s.hub.ClientCount(),
		"dropped_events": s.hub.Dropped(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response: %v", err)
	}
}
