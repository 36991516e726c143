// Package rest serves the operational HTTP endpoints: liveness and
// readiness checks next to the Prometheus scrape endpoint.
package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"
)

// Pinger reports whether a dependency can serve requests.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler serves the health endpoints.
type HealthHandler struct {
	version string
	timeout time.Duration
	checks  map[string]Pinger
	now     func() time.Time
}

// NewHealthHandler creates a HealthHandler. checks are keyed by component
// name, for example "database".
func NewHealthHandler(version string, timeout time.Duration, checks map[string]Pinger) *HealthHandler {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HealthHandler{version: version, timeout: timeout, checks: checks, now: time.Now}
}

// HealthResponse is the body of every health endpoint.
type HealthResponse struct {
	Status     string                     `json:"status"`
	Version    string                     `json:"version,omitempty"`
	Components map[string]ComponentStatus `json:"components,omitempty"`
	Timestamp  time.Time                  `json:"timestamp"`
}

// ComponentStatus is the result of one check.
type ComponentStatus struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Register mounts the health endpoints on mux.
func (h *HealthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /livez", h.Live)
	mux.HandleFunc("GET /readyz", h.Ready)
}

// Live always answers 200 while the process runs.
func (h *HealthHandler) Live(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Version: h.version, Timestamp: h.now().UTC()})
}

// Ready runs every check and answers 503 if any of them fails.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := HealthResponse{Status: "ok", Version: h.version, Components: make(map[string]ComponentStatus, len(names))}
	for _, name := range names {
		start := h.now()
		err := h.checks[name].Ping(ctx)
		if err != nil {
			resp.Status = "down"
			resp.Components[name] = ComponentStatus{Status: "down", Error: err.Error()}
			continue
		}
		resp.Components[name] = ComponentStatus{Status: "ok", Latency: h.now().Sub(start).String()}
	}
	resp.Timestamp = h.now().UTC()

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
