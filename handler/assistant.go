package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/autofi/ai-engine/apierr"
	"github.com/autofi/ai-engine/assistant"
	"github.com/autofi/ai-engine/caching"
	"github.com/autofi/ai-engine/middleware"
	"github.com/autofi/ai-engine/store"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// AssistantHandler serves the AI query and context endpoints. enabled
// follows the AI_ENABLED toggle: a disabled assistant answers 503 rather
// than silently dropping the routes, so clients can tell "off" from
// "missing".
type AssistantHandler struct {
	orchestrator *assistant.Orchestrator
	users        *store.UserStore
	cache        *caching.Facade
	enabled      bool
	logger       zerolog.Logger
}

func NewAssistantHandler(orchestrator *assistant.Orchestrator, users *store.UserStore, cache *caching.Facade, enabled bool, logger zerolog.Logger) *AssistantHandler {
	return &AssistantHandler{
		orchestrator: orchestrator,
		users:        users,
		cache:        cache,
		enabled:      enabled,
		logger:       logger.With().Str("component", "assistant_handler").Logger(),
	}
}

type queryRequest struct {
	Query struct {
		UserID   int64  `json:"user_id"`
		Question string `json:"question"`
	} `json:"query"`
	Context map[string]any `json:"context"`
}

// Query handles POST /api/ai/query.
func (h *AssistantHandler) Query(w http.ResponseWriter, r *http.Request) {
	if !h.enabled {
		writeError(w, http.StatusServiceUnavailable, string(apierr.KindServiceInitializing), "AI assistant is disabled")
		return
	}

	var body queryRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, string(apierr.KindValidation), "malformed request body")
		return
	}

	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok || !claims.CanAccess(body.Query.UserID) {
		writeError(w, http.StatusForbidden, string(apierr.KindForbidden), "not permitted to query on behalf of this user")
		return
	}

	resp, err := h.orchestrator.Handle(r.Context(), assistant.Request{
		UserID:   body.Query.UserID,
		Email:    claims.Email,
		Name:     claims.Name,
		Question: body.Query.Question,
	})
	if err != nil {
		writeAPIErr(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Context handles GET /api/ai/context/{user_id}: a snapshot of the
// ML interaction signals the assistant draws on for that user.
func (h *AssistantHandler) Context(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "user_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, string(apierr.KindValidation), "user_id must be an integer")
		return
	}

	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok || !claims.CanAccess(userID) {
		writeError(w, http.StatusForbidden, string(apierr.KindForbidden), "not permitted to view this user's context")
		return
	}

	var snapshot map[string]any
	if h.cache.GetUserContext(r.Context(), userID, &snapshot) {
		writeJSON(w, http.StatusOK, snapshot)
		return
	}

	interactions, err := h.users.InteractionsFor(r.Context(), userID)
	if err != nil {
		writeAPIErr(w, h.logger, apierr.Upstream(err))
		return
	}

	snapshot = map[string]any{
		"user_id":      userID,
		"interactions": interactions,
		"summary":      assistant.FormatUserContext(interactions),
	}
	h.cache.SetUserContext(r.Context(), userID, snapshot)
	writeJSON(w, http.StatusOK, snapshot)
}
