package handler

import (
	"net/http"
	"strconv"

	"github.com/autofi/ai-engine/apierr"
	"github.com/autofi/ai-engine/popularquery"
	"github.com/rs/zerolog"
)

// PopularQueryHandler serves the unauthenticated popular-queries endpoint.
type PopularQueryHandler struct {
	service *popularquery.Service
	logger  zerolog.Logger
}

func NewPopularQueryHandler(service *popularquery.Service, logger zerolog.Logger) *PopularQueryHandler {
	return &PopularQueryHandler{service: service, logger: logger.With().Str("component", "popular_query_handler").Logger()}
}

const defaultPopularLimit = 10

// Top handles GET /api/ai/popular-queries?limit=N.
func (h *PopularQueryHandler) Top(w http.ResponseWriter, r *http.Request) {
	limit := defaultPopularLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	queries, err := h.service.Top(r.Context(), limit)
	if err != nil {
		writeAPIErr(w, h.logger, apierr.Upstream(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"queries": queries})
}
