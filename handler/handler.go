// Package handler holds the HTTP handlers per endpoint group: catalog
// recommendations, the assistant pipeline, feedback, and popular queries.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/autofi/ai-engine/apierr"
	"github.com/rs/zerolog"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, map[string]any{
		"error":   kind,
		"message": message,
	})
}

// writeAPIErr maps an apierr.Error (or any error, defaulting to internal)
// to its HTTP status and a consistent error body.
func writeAPIErr(w http.ResponseWriter, logger zerolog.Logger, err error) {
	var apiErr *apierr.Error
	if errors.As(err, &apiErr) {
		writeError(w, apierr.HTTPStatus(apiErr.Kind), string(apiErr.Kind), apiErr.Message)
		return
	}
	logger.Error().Err(err).Msg("unhandled error")
	writeError(w, http.StatusInternalServerError, string(apierr.KindInternal), "internal error")
}
