package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"goalpad/internal/auth"
	"goalpad/internal/core"
	"goalpad/internal/services"
	"goalpad/internal/storage"
)

const maxBodyBytes = 1 << 20 // 1 MiB

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps domain and storage errors to HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrGoalNotFound),
		errors.Is(err, storage.ErrUserNotFound),
		errors.Is(err, storage.ErrSnapshotNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, storage.ErrUsernameTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrScheduleConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrPasswordTooShort),
		errors.Is(err, auth.ErrEmptyUsername),
		errors.Is(err, services.ErrNotRecurring),
		errors.Is(err, services.ErrInvalidException),
		errors.Is(err, core.ErrInvalidTemporalValue),
		errors.Is(err, core.ErrEmptyTitle),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrInvalidPriority),
		errors.Is(err, core.ErrZeroDeadline),
		errors.Is(err, core.ErrEndBeforeStart):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method, "url", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON reads and decodes a JSON request body with a size cap.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	// Reject trailing garbage after the JSON document
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}
