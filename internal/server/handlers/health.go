package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	apperrors "github.com/jabez4jc/openalgo-control/internal/errors"
)

// Checker probes one dependency of the service itself (not of the managed
// instances).
type Checker interface {
	CheckHealth(ctx context.Context) error
}

// HealthResponse is the body of a healthy /health reply.
type HealthResponse struct {
	Status  string            `json:"status"`
	Service string            `json:"service"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}

const serviceName = "openalgo-control"

// HealthManager aggregates registered checkers into liveness, readiness
// and startup probes.
type HealthManager struct {
	mu       sync.Mutex
	version  string
	checkers map[string]Checker
}

func NewHealthManager(version string) *HealthManager {
	return &HealthManager{
		version:  version,
		checkers: make(map[string]Checker),
	}
}

// RegisterChecker adds a named probe. Later registrations with the same
// name replace earlier ones.
func (m *HealthManager) RegisterChecker(name string, c Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers[name] = c
}

func (m *HealthManager) runChecks(ctx context.Context) map[string]string {
	m.mu.Lock()
	checkers := make(map[string]Checker, len(m.checkers))
	for name, c := range m.checkers {
		checkers[name] = c
	}
	m.mu.Unlock()

	results := make(map[string]string, len(checkers))
	for name, c := range checkers {
		checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := c.CheckHealth(checkCtx)
		cancel()
		switch {
		case err == nil:
			results[name] = "healthy"
		case checkCtx.Err() == context.DeadlineExceeded:
			results[name] = "timeout"
		default:
			results[name] = "unhealthy"
		}
	}
	return results
}

func (m *HealthManager) determineOverallStatus(checks map[string]string) string {
	status := "healthy"
	for _, s := range checks {
		switch s {
		case "unhealthy":
			return "unhealthy"
		case "timeout":
			status = "degraded"
		}
	}
	return status
}

// HealthHandler serves GET /health.
func (m *HealthManager) HealthHandler(w http.ResponseWriter, r *http.Request) {
	checks := m.runChecks(r.Context())
	overall := m.determineOverallStatus(checks)

	if overall == "unhealthy" {
		details := map[string]interface{}{"checks": checks}
		apperrors.WriteWithDetails(w, http.StatusServiceUnavailable,
			apperrors.CodeUnavailable, "service is unhealthy", details)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(HealthResponse{
		Status:  overall,
		Service: serviceName,
		Version: m.version,
		Checks:  checks,
	})
}

// LivenessHandler serves GET /health/live: the process is up.
func (m *HealthManager) LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
}

// ReadinessHandler serves GET /health/ready.
func (m *HealthManager) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	m.HealthHandler(w, r)
}

// StartupHandler serves GET /health/startup.
func (m *HealthManager) StartupHandler(w http.ResponseWriter, r *http.Request) {
	m.HealthHandler(w, r)
}

var (
	globalMu            sync.Mutex
	globalHealthManager *HealthManager
)

// InitHealthManager installs the process-wide manager used by the global
// handler funcs.
func InitHealthManager(version string) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalHealthManager = NewHealthManager(version)
}

// GetHealthManager returns the process-wide manager, or nil before init.
func GetHealthManager() *HealthManager {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalHealthManager
}

func globalHandler(fn func(*HealthManager, http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m := GetHealthManager()
		if m == nil {
			apperrors.Write(w, http.StatusServiceUnavailable,
				apperrors.CodeUnavailable, "health manager not initialized")
			return
		}
		fn(m, w, r)
	}
}

// Global handlers bound to the process-wide manager.
var (
	HealthHandler    = globalHandler((*HealthManager).HealthHandler)
	LivenessHandler  = globalHandler((*HealthManager).LivenessHandler)
	ReadinessHandler = globalHandler((*HealthManager).ReadinessHandler)
	StartupHandler   = globalHandler((*HealthManager).StartupHandler)
)
