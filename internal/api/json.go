package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/ywmark/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// errorStatus maps the error taxonomy onto HTTP statuses.
var errorStatus = []struct {
	err    error
	status int
}{
	{apperr.ErrNotFound, http.StatusNotFound},
	{apperr.ErrUnsupportedType, http.StatusUnsupportedMediaType},
	{apperr.ErrParse, http.StatusUnprocessableEntity},
	{apperr.ErrResourceBusy, http.StatusLocked},
	{apperr.ErrWriteProtected, http.StatusForbidden},
	{apperr.ErrStructuralMismatch, http.StatusConflict},
	{apperr.ErrCancelled, http.StatusConflict},
	{apperr.ErrAlreadyExists, http.StatusConflict},
}

// writeError writes err as a JSON error body. Errors outside the taxonomy
// are logged and reported as internal errors.
func writeError(w http.ResponseWriter, op string, err error) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			writeJSON(w, e.status, errorBody(err.Error()))
			return
		}
	}
	slog.Error(op+" failed", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
}
