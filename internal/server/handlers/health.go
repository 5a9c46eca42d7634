package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/errors"

	apperrors "github.com/docgate/docgate/internal/errors"
)

// Check results and aggregate statuses.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
	StatusTimeout   = "timeout"
)

// HealthResponse is the aggregate /health body.
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ProbeResponse is the body of the live/ready/startup probes.
type ProbeResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthChecker is implemented by components that can report their health.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

type registeredCheck struct {
	name     string
	checker  HealthChecker
	optional bool
}

// HealthManager runs registered checks for the health endpoints.
//
// A failing critical check makes the service unhealthy. A failing optional
// check (the attempt journal, for one) only degrades it: submissions still
// flow when the journal is down.
type HealthManager struct {
	mu      sync.RWMutex
	checks  map[string]registeredCheck
	version string
}

// NewHealthManager creates a manager reporting version.
func NewHealthManager(version string) *HealthManager {
	return &HealthManager{
		checks:  make(map[string]registeredCheck),
		version: version,
	}
}

// RegisterChecker adds a critical check, replacing any check of that name.
func (hm *HealthManager) RegisterChecker(name string, checker HealthChecker) {
	hm.register(name, checker, false)
}

// RegisterOptionalChecker adds a check whose failure only degrades health.
func (hm *HealthManager) RegisterOptionalChecker(name string, checker HealthChecker) {
	hm.register(name, checker, true)
}

func (hm *HealthManager) register(name string, checker HealthChecker, optional bool) {
	if checker == nil {
		return
	}
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.checks[name] = registeredCheck{name: name, checker: checker, optional: optional}
}

func (hm *HealthManager) snapshot(includeOptional bool) []registeredCheck {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	out := make([]registeredCheck, 0, len(hm.checks))
	for _, check := range hm.checks {
		if check.optional && !includeOptional {
			continue
		}
		out = append(out, check)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// evaluate runs checks in name order and folds them into one status.
func (hm *HealthManager) evaluate(ctx context.Context, includeOptional bool) (string, map[string]string) {
	results := make(map[string]string)
	status := StatusHealthy

	for _, check := range hm.snapshot(includeOptional) {
		var result string
		if ctx.Err() != nil {
			result = StatusTimeout
		} else if err := check.checker.CheckHealth(ctx); err != nil {
			result = StatusUnhealthy
		} else {
			result = StatusHealthy
		}
		results[check.name] = result

		switch {
		case result == StatusHealthy:
		case check.optional || result == StatusTimeout:
			if status == StatusHealthy {
				status = StatusDegraded
			}
		default:
			status = StatusUnhealthy
		}
	}

	return status, results
}

// HealthHandler serves GET /health.
func (hm *HealthManager) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, checks := hm.evaluate(ctx, true)
	if status == StatusUnhealthy {
		apperrors.RespondWithError(w, r, healthEnvelope("aggregate health check failed", "", status, checks))
		return
	}

	writeHealthJSON(w, HealthResponse{
		Status:    status,
		Version:   hm.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	})
}

// LivenessHandler serves GET /health/live. It runs no dependency checks: a
// process that can answer is alive.
func (hm *HealthManager) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	writeHealthJSON(w, ProbeResponse{Status: StatusHealthy, Timestamp: time.Now().UTC()})
}

// ReadinessHandler serves GET /health/ready using every check.
func (hm *HealthManager) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	hm.probe(w, r, "ready", true, 5*time.Second)
}

// StartupHandler serves GET /health/startup using critical checks only.
func (hm *HealthManager) StartupHandler(w http.ResponseWriter, r *http.Request) {
	hm.probe(w, r, "startup", false, 3*time.Second)
}

func (hm *HealthManager) probe(w http.ResponseWriter, r *http.Request, name string, includeOptional bool, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	status, checks := hm.evaluate(ctx, includeOptional)
	if status == StatusUnhealthy {
		apperrors.RespondWithError(w, r, healthEnvelope(name+" probe failed", name, status, checks))
		return
	}

	writeHealthJSON(w, ProbeResponse{Status: status, Timestamp: time.Now().UTC(), Checks: checks})
}

func writeHealthJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(body)
}

func healthEnvelope(message, probe, status string, checks map[string]string) *errors.ErrorEnvelope {
	details := map[string]interface{}{
		"status": status,
		"checks": checks,
	}
	if probe != "" {
		details["probe"] = probe
	}

	var failing []string
	for name, result := range checks {
		if result != StatusHealthy {
			failing = append(failing, name)
		}
	}
	sort.Strings(failing)

	envelope := errors.NewErrorEnvelope(apperrors.CodeUnavailable, message).WithDetails(details)
	if updated, err := envelope.WithContext(map[string]interface{}{"unhealthy_checks": failing}); err == nil {
		envelope = updated
	}
	return envelope
}
