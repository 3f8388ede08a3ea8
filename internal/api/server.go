// Package api provides the HTTP server the presentation client talks to:
// session commands, snapshot reads, and live snapshot streams over SSE and
// WebSocket.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roboos-network/roboos/internal/domain"
	"github.com/roboos-network/roboos/internal/engine/clock"
	"github.com/roboos-network/roboos/internal/engine/session"
	"github.com/roboos-network/roboos/internal/engine/store"
	"github.com/roboos-network/roboos/internal/health"
	"github.com/roboos-network/roboos/internal/infra/sqlite"
)

// Version is reported by /api/version.
var Version = "dev"

// Server is the RoboOS HTTP API server.
type Server struct {
	store          *store.Store
	session        *session.Controller
	clock          *clock.Clock
	journal        *sqlite.DB      // nil disables history endpoints
	health         *health.Checker // nil reports ok
	corsOrigins    []string
	metricsEnabled bool
}

// NewServer creates a new API server.
func NewServer(st *store.Store, sess *session.Controller, clk *clock.Clock) *Server {
	return &Server{store: st, session: sess, clock: clk, corsOrigins: []string{"*"}}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetJournal enables the tick and transition history endpoints.
func (s *Server) SetJournal(db *sqlite.DB) { s.journal = db }

// SetHealth sets the checker reported by /health.
func (s *Server) SetHealth(h *health.Checker) { s.health = h }

// SetCORSOrigins sets the allowed origins. Empty means "*".
func (s *Server) SetCORSOrigins(origins []string) {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.corsOrigins = origins
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		// Streams hold the connection open, so they skip the timeout.
		r.Get("/stream", s.handleStream)
		r.Get("/ws", s.handleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))

			r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, map[string]string{"version": Version})
			})

			r.Get("/snapshot", s.handleSnapshot)
			r.Get("/robots", s.handleRobots)
			r.Get("/tasks", s.handleTasks)
			r.Get("/channels", s.handleChannels)
			r.Patch("/channels/{id}", s.handleUpdateChannel)
			r.Get("/metrics", s.handleMetrics)

			r.Route("/session", func(r chi.Router) {
				r.Get("/", s.handleSession)
				r.Post("/connect", s.handleConnect)
				r.Post("/disconnect", s.handleDisconnect)
				r.Post("/toggle", s.handleToggle)
				r.Put("/network", s.handleNetwork)
				r.Get("/events", s.handleSessionEvents)
			})

			r.Get("/ticks", s.handleTicks)
			r.Get("/transitions", s.handleTransitions)
		})
	})

	// Prometheus metrics endpoint
	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	subscribers := s.store.Subscribers()
	if s.health == nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "subscribers": subscribers})
		return
	}
	status, code := "ok", http.StatusOK
	if !s.health.IsHealthy() {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":      status,
		"checks":      s.health.Statuses(),
		"subscribers": subscribers,
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    "error",
		},
	})
}

// writeDomainError maps domain sentinels to HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrAlreadyConnected),
		errors.Is(err, domain.ErrNotConnected),
		errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrChannelNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidNetwork),
		errors.Is(err, domain.ErrInvalidCapacity):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// queryLimit reads ?limit=, clamped to [1, 500].
func queryLimit(r *http.Request, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return def
	}
	return min(n, 500)
}

// corsMiddleware adds CORS headers for the dashboard.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		for _, allowed := range s.corsOrigins {
			if allowed == "*" || allowed == origin {
				w.Header().Set("Access-Control-Allow-Origin", allowed)
				break
			}
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
