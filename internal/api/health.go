package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger checks a dependency's connectivity. Implemented by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health handles liveness and readiness probes.
type Health struct {
	db     Pinger
	logger *slog.Logger
}

// NewHealth creates a Health handler. db may be nil, in which case /ready
// only reports process liveness.
func NewHealth(db Pinger, logger *slog.Logger) *Health {
	return &Health{db: db, logger: logger}
}

// RegisterRoutes registers probe routes on the given mux.
func (h *Health) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Live)
	mux.HandleFunc("GET /ready", h.Ready)
}

// Live reports process liveness.
func (h *Health) Live(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready reports whether the service can answer questions, which requires
// a reachable database.
func (h *Health) Ready(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := h.db.Ping(ctx); err != nil {
			h.logger.Warn("readiness probe failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"reason": "database unreachable",
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
