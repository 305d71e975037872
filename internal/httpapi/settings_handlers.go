package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"watchtower.dev/internal/audit"
	"watchtower.dev/internal/settings"
)

type createProfileTypeRequest struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

type toggleRuleRequest struct {
	Enabled *bool `json:"enabled"`
}

func (a *API) ensureSettings(w http.ResponseWriter, r *http.Request) bool {
	if a.settings == nil {
		writeError(w, r, http.StatusServiceUnavailable, "unavailable", "settings unavailable")
		return false
	}
	return true
}

func (a *API) handleListProfileTypes(w http.ResponseWriter, r *http.Request) {
	if !a.ensureSettings(w, r) {
		return
	}
	items, err := a.settings.ListProfileTypes(r.Context())
	if err != nil {
		handleSettingsError(w, r, err)
		return
	}
	if items == nil {
		items = []settings.ProfileType{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (a *API) handleCreateProfileType(w http.ResponseWriter, r *http.Request) {
	if !a.ensureSettings(w, r) {
		return
	}
	var req createProfileTypeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	pt, err := a.settings.CreateProfileType(r.Context(), req.Name, req.Status)
	if err != nil {
		handleSettingsError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "profile_types.created", map[string]any{"id": pt.ID, "name": pt.Name})
	writeJSON(w, http.StatusCreated, pt)
}

func (a *API) handleListRules(w http.ResponseWriter, r *http.Request) {
	if !a.ensureSettings(w, r) {
		return
	}
	rules, err := a.settings.ListNotificationRules(r.Context())
	if err != nil {
		handleSettingsError(w, r, err)
		return
	}
	if rules == nil {
		rules = []settings.NotificationRule{}
	}
	writeJSON(w, http.StatusOK, rules)
}

func (a *API) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	if !a.ensureSettings(w, r) {
		return
	}
	var req settings.NewRule
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	rule, err := a.settings.CreateNotificationRule(r.Context(), req)
	if err != nil {
		handleSettingsError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "notification_rules.created", map[string]any{"id": rule.ID, "name": rule.Name})
	writeJSON(w, http.StatusCreated, rule)
}

func (a *API) handleToggleRule(w http.ResponseWriter, r *http.Request) {
	if !a.ensureSettings(w, r) {
		return
	}
	var req toggleRuleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Enabled == nil {
		writeError(w, r, http.StatusBadRequest, "invalid_input", "enabled is required")
		return
	}
	rule, err := a.settings.SetNotificationRuleEnabled(r.Context(), chi.URLParam(r, "id"), *req.Enabled)
	if err != nil {
		handleSettingsError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "notification_rules.updated", map[string]any{"id": rule.ID, "enabled": rule.Enabled})
	writeJSON(w, http.StatusOK, rule)
}

func (a *API) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	if !a.ensureSettings(w, r) {
		return
	}
	id := chi.URLParam(r, "id")
	if err := a.settings.DeleteNotificationRule(r.Context(), id); err != nil {
		handleSettingsError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "notification_rules.deleted", map[string]any{"id": id})
	w.WriteHeader(http.StatusNoContent)
}
