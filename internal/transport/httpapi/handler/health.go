package handler

import (
	"context"
	"net/http"
	"time"
)

// Version is reported by the health endpoints
const Version = "1.0.0"

// DatabasePinger defines the interface for checking database connectivity
type DatabasePinger interface {
	Ping(ctx context.Context) error
}

// CheckFunc probes one dependency
type CheckFunc func(ctx context.Context) error

// HealthHandler handles health check requests
type HealthHandler struct {
	db     DatabasePinger
	checks map[string]CheckFunc
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db DatabasePinger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		checks: make(map[string]CheckFunc),
	}
}

// WithCheck adds a non-critical dependency to the detailed report
func (h *HealthHandler) WithCheck(name string, fn CheckFunc) *HealthHandler {
	h.checks[name] = fn
	return h
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks"`
	Uptime  string            `json:"uptime,omitempty"`
}

var startTime = time.Now()

// GetHealth handles GET /health
// Basic health check - returns 200 OK if service is running
func GetHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:  "ok",
		Version: Version,
		Uptime:  time.Since(startTime).String(),
		Checks:  map[string]string{},
	}

	respondJSON(w, response, http.StatusOK)
}

// GetHealthDetailed handles GET /health/detailed
// The database is critical; other checks only mark the service degraded.
func (h *HealthHandler) GetHealthDetailed(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	status := "ok"
	httpStatus := http.StatusOK

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		checks["database"] = "unhealthy: " + err.Error()
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["database"] = "healthy"
	}

	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			checks[name] = "unhealthy: " + err.Error()
			if status == "ok" {
				status = "degraded"
			}
			continue
		}
		checks[name] = "healthy"
	}

	respondJSON(w, HealthResponse{
		Status:  status,
		Version: Version,
		Uptime:  time.Since(startTime).String(),
		Checks:  checks,
	}, httpStatus)
}

// GetReadiness handles GET /health/ready
// Readiness probe - checks if service is ready to accept traffic
func (h *HealthHandler) GetReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		respondError(w, "database not ready", http.StatusServiceUnavailable)
		return
	}

	respondJSON(w, map[string]string{"status": "ready"}, http.StatusOK)
}

// GetLiveness handles GET /health/live
// Liveness probe - checks if service is alive
func GetLiveness(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "alive"}, http.StatusOK)
}
