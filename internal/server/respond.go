package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/maffers001/property/internal/common"
)

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// writeJSON writes v as a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

// writeError maps the engine's error taxonomy onto HTTP statuses. Validation
// errors (404/422) are caller-correctable; policy rejections (409) tell the
// client to either act first (submit) or abandon.
func writeError(w http.ResponseWriter, err error) {
	var status int
	var kind string

	switch {
	case errors.Is(err, common.ErrNotFound):
		status, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, common.ErrUnknownListValue):
		status, kind = http.StatusUnprocessableEntity, "unknown_list_value"
	case errors.Is(err, common.ErrLockedMonth):
		status, kind = http.StatusConflict, "locked_month"
	case errors.Is(err, common.ErrNotReady):
		status, kind = http.StatusConflict, "not_ready"
	default:
		slog.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal"})
		return
	}

	writeJSON(w, status, errorResponse{Error: kind, Detail: err.Error()})
}
