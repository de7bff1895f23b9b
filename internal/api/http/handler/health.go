package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
)

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

// StaleReporter tells whether the service runs on cached data.
type StaleReporter interface {
	Stale() bool
}

// Health serves liveness and readiness probes.
type Health struct {
	checks  map[string]Check
	stale   StaleReporter
	timeout time.Duration
}

// NewHealth creates a Health handler probing checks on readiness.
func NewHealth(checks map[string]Check, stale StaleReporter, timeout time.Duration) *Health {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Health{checks: checks, stale: stale, timeout: timeout}
}

// Register mounts the probe routes on r.
func (h *Health) Register(r chi.Router) {
	r.Get("/healthz", h.Live)
	r.Get("/readyz", h.Ready)
}

type readinessResponse struct {
	Status string            `json:"status"`
	Stale  bool              `json:"stale"`
	Checks map[string]string `json:"checks"`
}

func (h *Health) Live(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready runs every check and answers 503 when one of them fails.
func (h *Health) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := readinessResponse{Status: "ready", Checks: make(map[string]string, len(names))}
	if h.stale != nil {
		resp.Stale = h.stale.Stale()
	}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			resp.Status = "unavailable"
			resp.Checks[name] = err.Error()
			continue
		}
		resp.Checks[name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "ready" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
