package httputil

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/AdamBeresnev/doubles-cup/internal/service"
)

func InternalServerError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	errorJSON(w, http.StatusInternalServerError, "internal server error")
}

func BadRequest(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("bad request", "message", msg, "error", err)
	} else {
		slog.Warn("bad request", "message", msg)
	}
	errorJSON(w, http.StatusBadRequest, msg)
}

func NotFound(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("not found", "message", msg, "error", err)
	} else {
		slog.Warn("not found", "message", msg)
	}
	errorJSON(w, http.StatusNotFound, msg)
}

func Conflict(w http.ResponseWriter, msg string, err error) {
	slog.Warn("conflict", "message", msg, "error", err)
	errorJSON(w, http.StatusConflict, msg)
}

// StatusFor maps the service error kinds onto HTTP statuses.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ServiceError writes err with the status of its kind. Store and consistency
// failures are logged and hidden behind a generic message.
func ServiceError(w http.ResponseWriter, msg string, err error) {
	switch StatusFor(err) {
	case http.StatusBadRequest:
		BadRequest(w, err.Error(), nil)
	case http.StatusNotFound:
		NotFound(w, err.Error(), nil)
	case http.StatusConflict:
		Conflict(w, err.Error(), nil)
	default:
		InternalServerError(w, msg, err)
	}
}

func errorJSON(w http.ResponseWriter, status int, msg string) {
	if err := WriteJSON(w, status, map[string]string{"error": msg}); err != nil {
		slog.Error("failed to write error response", "error", err)
	}
}
