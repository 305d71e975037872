package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"watchtower.dev/internal/alerts"
	"watchtower.dev/internal/audit"
	"watchtower.dev/internal/obs"
)

func parseLimit(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return alerts.DefaultLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errors.New("limit must be a positive integer")
	}
	return alerts.ClampLimit(n), nil
}

func (a *API) ensureAlerts(w http.ResponseWriter, r *http.Request) bool {
	if a.alerts == nil {
		writeError(w, r, http.StatusServiceUnavailable, "unavailable", "alert source not configured")
		return false
	}
	return true
}

func handleAlertsError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, alerts.ErrUpstream) {
		obs.Logger().Warn("alert source failed",
			zap.String("request_id", audit.RequestIDFromContext(r.Context())),
			zap.Error(err))
		writeError(w, r, http.StatusBadGateway, "upstream_unavailable", "alert source unavailable")
		return
	}
	writeInternal(w, r, "alerts", err)
}

func (a *API) handleSuricataAlerts(w http.ResponseWriter, r *http.Request) {
	if !a.ensureAlerts(w, r) {
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	items, err := a.alerts.SuricataAlerts(r.Context(), limit)
	if err != nil {
		handleAlertsError(w, r, err)
		return
	}
	if items == nil {
		items = []alerts.SuricataAlert{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (a *API) handleZeekLogs(w http.ResponseWriter, r *http.Request) {
	if !a.ensureAlerts(w, r) {
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	items, err := a.alerts.ZeekLogs(r.Context(), limit)
	if err != nil {
		handleAlertsError(w, r, err)
		return
	}
	if items == nil {
		items = []alerts.ZeekLog{}
	}
	writeJSON(w, http.StatusOK, items)
}
