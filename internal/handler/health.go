package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger is anything that can confirm its backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler answers liveness probes.
type HealthHandler struct {
	store   Pinger
	timeout time.Duration
	logger  *slog.Logger
}

// NewHealthHandler creates a HealthHandler. A timeout <= 0 means 2 seconds.
func NewHealthHandler(store Pinger, timeout time.Duration, logger *slog.Logger) *HealthHandler {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HealthHandler{store: store, timeout: timeout, logger: logger}
}

// HandleHealth pings the store.
//
// HTTP: GET /healthz
// 200 {"status":"ok"} or 503 {"status":"unavailable"}.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("health check failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
