package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/autofi/ai-engine/apierr"
	"github.com/autofi/ai-engine/middleware"
	"github.com/autofi/ai-engine/observability"
	"github.com/autofi/ai-engine/recommend"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// RecommendationsHandler serves the recommendation endpoints.
type RecommendationsHandler struct {
	orchestrator *recommend.Orchestrator
	metrics      *observability.Metrics
	logger       zerolog.Logger
}

func NewRecommendationsHandler(orchestrator *recommend.Orchestrator, metrics *observability.Metrics, logger zerolog.Logger) *RecommendationsHandler {
	return &RecommendationsHandler{
		orchestrator: orchestrator,
		metrics:      metrics,
		logger:       logger.With().Str("component", "recommendations_handler").Logger(),
	}
}

func (h *RecommendationsHandler) record(strategy string, start time.Time, err error) {
	if h.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	h.metrics.RecRequests.WithLabelValues(strategy, outcome).Inc()
	h.metrics.RecLatencyMs.WithLabelValues(strategy).Observe(float64(time.Since(start).Milliseconds()))
}

const defaultTopN = 10

// ForUser handles GET /api/recommendations/user/{user_id}?top_n=N.
func (h *RecommendationsHandler) ForUser(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "user_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, string(apierr.KindValidation), "user_id must be an integer")
		return
	}

	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok || !claims.CanAccess(userID) {
		writeError(w, http.StatusForbidden, string(apierr.KindForbidden), "not permitted to view this user's recommendations")
		return
	}

	topN := parseTopN(r, defaultTopN)
	strategy := parseStrategy(r)

	start := time.Now()
	result, err := h.orchestrator.Recommend(r.Context(), userID, topN, strategy)
	h.record(string(strategy), start, err)
	if err != nil {
		writeAPIErr(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Similar handles GET /api/recommendations/similar/{vehicle_id}?top_n=N.
func (h *RecommendationsHandler) Similar(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := strconv.ParseInt(chi.URLParam(r, "vehicle_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, string(apierr.KindValidation), "vehicle_id must be an integer")
		return
	}

	topN := parseTopN(r, defaultTopN)

	start := time.Now()
	result, err := h.orchestrator.Similar(r.Context(), vehicleID, topN)
	h.record("similar", start, err)
	if err != nil {
		writeAPIErr(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// parseStrategy reads the optional ?strategy= selector; anything absent
// or unrecognized dispatches as hybrid.
func parseStrategy(r *http.Request) recommend.Strategy {
	switch s := recommend.Strategy(r.URL.Query().Get("strategy")); s {
	case recommend.StrategyContent, recommend.StrategyCollaborative, recommend.StrategyHybrid:
		return s
	default:
		return recommend.StrategyHybrid
	}
}

func parseTopN(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("top_n")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
