// Package health serves the liveness, readiness, and status probes. Readiness
// aggregates context-aware dependency checks; the status endpoint additionally
// reports subsystem details such as the active ledger connection.
package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"attest/pkg/platform/httputil"
)

// Version is set at build time via ldflags.
var Version = "dev"

// checkTimeout bounds each readiness check so one slow dependency cannot
// stall the probe past the orchestrator's own deadline.
const checkTimeout = 2 * time.Second

// CheckFunc probes a single dependency. A nil return means ready.
type CheckFunc func(ctx context.Context) error

// DetailFunc reports informational attributes about a subsystem. Details are
// surfaced on the status endpoint and never affect readiness.
type DetailFunc func() map[string]string

type namedCheck struct {
	name  string
	check CheckFunc
}

type namedDetail struct {
	name   string
	detail DetailFunc
}

// Handler serves the probe endpoints.
type Handler struct {
	startTime   time.Time
	environment string

	mu      sync.RWMutex
	checks  []namedCheck
	details []namedDetail
}

// New creates a probe handler for the given environment name.
func New(environment string) *Handler {
	return &Handler{
		startTime:   time.Now(),
		environment: environment,
	}
}

// RegisterCheck adds a named readiness check. Checks run in registration
// order on every readiness probe.
func (h *Handler) RegisterCheck(name string, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, namedCheck{name: name, check: check})
}

// RegisterDetail adds a named detail provider for the status endpoint.
func (h *Handler) RegisterDetail(name string, detail DetailFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.details = append(h.details, namedDetail{name: name, detail: detail})
}

// Register mounts the probe routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.HandleStatus)
	r.Get("/health/live", h.HandleLiveness)
	r.Get("/health/ready", h.HandleReadiness)
}

// LivenessResponse is the liveness probe body.
type LivenessResponse struct {
	Status string `json:"status"`
}

// HandleLiveness answers 200 whenever the process can serve requests at all.
func (h *Handler) HandleLiveness(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, LivenessResponse{Status: "alive"})
}

// ReadinessResponse is the readiness probe body.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HandleReadiness runs every registered check under a bounded context and
// answers 503 if any dependency is down.
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	checks := make([]namedCheck, len(h.checks))
	copy(checks, h.checks)
	h.mu.RUnlock()

	response := ReadinessResponse{
		Status: "ready",
		Checks: make(map[string]string, len(checks)),
	}

	ready := true
	for _, c := range checks {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := c.check(ctx)
		cancel()
		if err != nil {
			response.Checks[c.name] = "down: " + err.Error()
			ready = false
			continue
		}
		response.Checks[c.name] = "up"
	}

	if !ready {
		response.Status = "not_ready"
		httputil.WriteJSON(w, http.StatusServiceUnavailable, response)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, response)
}

// StatusResponse is the status endpoint body. Subsystems carries the
// registered detail maps, keyed by subsystem name.
type StatusResponse struct {
	Status        string                       `json:"status"`
	Version       string                       `json:"version"`
	Environment   string                       `json:"environment"`
	UptimeSeconds int64                        `json:"uptime_seconds"`
	Timestamp     string                       `json:"timestamp"`
	Subsystems    map[string]map[string]string `json:"subsystems,omitempty"`
}

// HandleStatus reports version, uptime, and subsystem details.
func (h *Handler) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	details := make([]namedDetail, len(h.details))
	copy(details, h.details)
	h.mu.RUnlock()

	response := StatusResponse{
		Status:        "healthy",
		Version:       Version,
		Environment:   h.environment,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	}
	if len(details) > 0 {
		response.Subsystems = make(map[string]map[string]string, len(details))
		for _, d := range details {
			response.Subsystems[d.name] = d.detail()
		}
	}

	httputil.WriteJSON(w, http.StatusOK, response)
}
