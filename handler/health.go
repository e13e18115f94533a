package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/autofi/ai-engine/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// version is the build identifier surfaced on /health. Overridden at
// build time would require ldflags this module doesn't wire, so it is a
// fixed string bumped by hand alongside releases.
const version = "1.0.0"

const healthCheckTimeout = 3 * time.Second

// HealthHandler serves the unauthenticated liveness/readiness endpoint.
type HealthHandler struct {
	pool     *pgxpool.Pool
	registry *models.Registry
}

func NewHealthHandler(pool *pgxpool.Pool, registry *models.Registry) *HealthHandler {
	return &HealthHandler{pool: pool, registry: registry}
}

// Check handles GET /health.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	dbOK := h.pool != nil && h.pool.Ping(ctx) == nil

	modelsLoaded := map[string]bool{
		models.NameCollaborative:     h.registry.IsLoaded(models.NameCollaborative),
		models.NameVehicleSimilarity: h.registry.IsLoaded(models.NameVehicleSimilarity),
		models.NameUserSimilarity:    h.registry.IsLoaded(models.NameUserSimilarity),
	}

	status := http.StatusOK
	if !dbOK {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]any{
		"db":                 dbOK,
		"ml_models_loaded":   modelsLoaded,
		"orchestrator_ready": dbOK,
		"version":            version,
	})
}
