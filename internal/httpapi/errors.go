package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"watchtower.dev/internal/audit"
	"watchtower.dev/internal/auth"
	"watchtower.dev/internal/obs"
	"watchtower.dev/internal/settings"
)

// writeError writes {"error", "code", "request_id"}.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	payload := map[string]any{
		"error": msg,
		"code":  code,
	}
	if rid := audit.RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, status, payload)
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request, code, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="watchtower", error="`+code+`"`)
	writeError(w, r, http.StatusUnauthorized, code, msg)
}

func writeInternal(w http.ResponseWriter, r *http.Request, op string, err error) {
	obs.Logger().Error("request failed",
		zap.String("request_id", audit.RequestIDFromContext(r.Context())),
		zap.String("op", op),
		zap.Error(err))
	writeError(w, r, http.StatusInternalServerError, "internal", "internal error")
}

// detail strips the sentinel prefix so clients see only the reason.
func detail(err, sentinel error) string {
	msg := err.Error()
	if trimmed := strings.TrimPrefix(msg, sentinel.Error()+": "); trimmed != msg {
		return trimmed
	}
	return msg
}

func handleAccountError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, "invalid_input", detail(err, auth.ErrInvalidInput))
	case errors.Is(err, auth.ErrConflict):
		writeError(w, r, http.StatusConflict, "conflict", "email already exists")
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not_found", "user not found")
	default:
		writeInternal(w, r, "accounts", err)
	}
}

func handleSettingsError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, settings.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, "invalid_input", detail(err, settings.ErrInvalidInput))
	case errors.Is(err, settings.ErrConflict):
		writeError(w, r, http.StatusConflict, "conflict", detail(err, settings.ErrConflict))
	case errors.Is(err, settings.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not_found", "resource not found")
	default:
		writeInternal(w, r, "settings", err)
	}
}
