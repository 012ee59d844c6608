package httpserver

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"support-bot/internal/metrics"
	"support-bot/internal/reminder"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const readyTimeout = 2 * time.Second

// Pinger is a dependency probed by /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Reminders exposes scheduled fires to the admin endpoints.
type Reminders interface {
	Scheduled() []reminder.Scheduled
	Cancel(messageID int) bool
}

// Dependencies exposes core dependencies to handlers that need them.
// Redis is optional.
type Dependencies struct {
	Database  Pinger
	Redis     Pinger
	Reminders Reminders
}

// Server wraps an http.Server with predefined routes.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	metrics    *metrics.Metrics
	deps       Dependencies
	adminToken string
}

// New creates a server with health, readiness and metrics endpoints. The
// admin endpoints are mounted only when adminToken is set.
func New(addr string, logger *slog.Logger, metricRegistry *metrics.Metrics, deps Dependencies, adminToken string) *Server {
	server := &Server{
		logger:     logger.With("component", "http"),
		metrics:    metricRegistry,
		deps:       deps,
		adminToken: strings.TrimSpace(adminToken),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", healthHandler)
	mux.HandleFunc("/readyz", server.handleReady)
	mux.Handle("/metrics", promhttp.Handler())
	if server.adminToken != "" && deps.Reminders != nil {
		mux.Handle("/admin/reminders", server.requireToken(http.HandlerFunc(server.handleListReminders)))
		mux.Handle("/admin/reminders/cancel", server.requireToken(http.HandlerFunc(server.handleCancelReminder)))
	}

	server.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return server
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for incoming HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server listen: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	checks := map[string]string{}
	ready := true
	probe := func(name string, p Pinger) {
		if p == nil {
			return
		}
		if err := p.Ping(ctx); err != nil {
			s.logger.Warn("readiness probe failed", "dependency", name, "error", err)
			checks[name] = err.Error()
			ready = false
			return
		}
		checks[name] = "ok"
	}
	probe("database", s.deps.Database)
	probe("redis", s.deps.Redis)

	status := http.StatusOK
	state := "ok"
	if !ready {
		status = http.StatusServiceUnavailable
		state = "unavailable"
	}
	writeJSONStatus(w, status, map[string]any{"status": state, "checks": checks})
}

func (s *Server) handleListReminders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]any{"reminders": s.deps.Reminders.Scheduled()})
}

func (s *Server) handleCancelReminder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	messageID, err := strconv.Atoi(r.URL.Query().Get("message_id"))
	if err != nil || messageID <= 0 {
		http.Error(w, "message_id must be a positive integer", http.StatusBadRequest)
		return
	}
	if !s.deps.Reminders.Cancel(messageID) {
		http.Error(w, "no scheduled reminder for message", http.StatusNotFound)
		return
	}
	s.logger.Info("reminder cancelled via admin api", "message_id", messageID)
	writeJSON(w, map[string]any{"status": "cancelled", "message_id": messageID})
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	want := []byte("Bearer " + s.adminToken)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := []byte(r.Header.Get("Authorization"))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			s.metrics.Error("http_auth")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, data any) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "failed to encode json", http.StatusInternalServerError)
	}
}
