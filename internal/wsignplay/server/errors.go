package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/wrale/wrale-signage-player/api/types/v1alpha1"
	werrors "github.com/wrale/wrale-signage-player/internal/wsignplay/errors"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, v1alpha1.Error{Code: code, Message: message})
}

// handleError maps domain errors to HTTP responses
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	switch {
	case werrors.IsNotFound(err):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "not found")
	case werrors.IsInvalidInput(err):
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
	default:
		h.logger.Error().
			Err(err).
			Str("requestId", middleware.GetReqID(r.Context())).
			Str("path", r.URL.Path).
			Msg(msg)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}
