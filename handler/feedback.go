package handler

import (
	"encoding/json"
	"net/http"

	"github.com/autofi/ai-engine/apierr"
	"github.com/autofi/ai-engine/feedback"
	"github.com/rs/zerolog"
)

// FeedbackHandler serves the feedback-vote endpoint.
type FeedbackHandler struct {
	service *feedback.Service
	logger  zerolog.Logger
}

func NewFeedbackHandler(service *feedback.Service, logger zerolog.Logger) *FeedbackHandler {
	return &FeedbackHandler{service: service, logger: logger.With().Str("component", "feedback_handler").Logger()}
}

type feedbackRequest struct {
	MessageID int64         `json:"message_id"`
	Vote      feedback.Vote `json:"vote"`
}

// Submit handles POST /api/ai/feedback.
func (h *FeedbackHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var body feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, string(apierr.KindValidation), "malformed request body")
		return
	}
	switch body.Vote {
	case feedback.Upvoted, feedback.Downvoted:
	default:
		writeError(w, http.StatusBadRequest, string(apierr.KindValidation), "vote must be UPVOTED or DOWNVOTED")
		return
	}

	next, err := h.service.Submit(r.Context(), body.MessageID, body.Vote)
	if err != nil {
		writeAPIErr(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message_id": body.MessageID, "feedback": next})
}
