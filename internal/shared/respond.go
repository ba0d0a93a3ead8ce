package shared

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

type errorBody struct {
	Error string `json:"error"`
}

// RespondJSON writes v as a JSON response with the given status code.
func RespondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// RespondError maps domain errors onto HTTP status codes. Authentication
// failures are reported uniformly so callers cannot tell which step failed.
func RespondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, ErrAuthenticationRequired):
		w.Header().Set("WWW-Authenticate", `Basic realm="Login Required"`)
		RespondJSON(w, http.StatusUnauthorized, errorBody{Error: "authentication required"})
	case errors.Is(err, ErrInvalidCredentials):
		RespondJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid credentials"})
	case errors.Is(err, ErrPermissionDenied):
		RespondJSON(w, http.StatusForbidden, errorBody{Error: "you do not have the required permissions for this action"})
	case errors.Is(err, ErrNotFound):
		RespondJSON(w, http.StatusNotFound, errorBody{Error: "the resource you are looking for does not exist"})
	case errors.Is(err, ErrAlreadyExists):
		RespondJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, ErrInvalidInput):
		RespondJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	default:
		if logger != nil {
			logger.Error("internal error", slog.Any("error", err))
		}
		RespondJSON(w, http.StatusInternalServerError, errorBody{Error: "the requested operation cannot be completed"})
	}
}
