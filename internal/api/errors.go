package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/soochol/stateflow/internal/stateflow"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeError maps domain errors onto HTTP status codes. Unexpected errors
// are logged and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		status int
		kind   string
		msg    = err.Error()
	)
	switch {
	case errors.Is(err, stateflow.ErrValidation):
		status, kind = http.StatusBadRequest, "Validation Error"
	case errors.Is(err, stateflow.ErrWorkflow):
		status, kind = http.StatusBadRequest, "Workflow Error"
	case errors.Is(err, stateflow.ErrNotFound):
		status, kind = http.StatusNotFound, "Not Found"
	case errors.Is(err, stateflow.ErrConflict):
		status, kind = http.StatusConflict, "Conflict"
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		status, kind, msg = http.StatusInternalServerError, "Internal Server Error", "an unexpected error occurred"
	}
	writeJSON(w, status, errorResponse{Error: kind, Message: msg})
}

// badRequest reports a malformed request body.
func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Validation Error", Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
