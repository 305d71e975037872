package httpapi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"watchtower.dev/internal/audit"
	"watchtower.dev/internal/auth"
)

type createUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Status   string `json:"status"`
}

type updateUserRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Role     *string `json:"role"`
	Status   *string `json:"status"`
	Password *string `json:"password"`
}

func (a *API) ensureDirectory(w http.ResponseWriter, r *http.Request) bool {
	if a.directory == nil {
		writeError(w, r, http.StatusServiceUnavailable, "unavailable", "user directory unavailable")
		return false
	}
	return true
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if !a.ensureDirectory(w, r) {
		return
	}
	users, err := a.directory.ListAccounts(r.Context())
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	if users == nil {
		users = []auth.Account{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (a *API) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	if !a.ensureDirectory(w, r) {
		return
	}
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	user, err := a.directory.CreateAccount(r.Context(), auth.NewAccount{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		Status:   req.Status,
	})
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "users.created", map[string]any{
		"target_id": user.ID,
		"role":      string(user.Role),
	})
	w.Header().Set("Location", fmt.Sprintf("/api/users/%s", user.ID))
	writeJSON(w, http.StatusCreated, user)
}

func (a *API) handleGetUser(w http.ResponseWriter, r *http.Request) {
	if !a.ensureDirectory(w, r) {
		return
	}
	user, err := a.directory.GetAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	if !a.ensureDirectory(w, r) {
		return
	}
	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	upd := auth.AccountUpdate{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	}
	changed := []string{}
	if req.Role != nil {
		role := auth.Role(*req.Role)
		upd.Role = &role
		changed = append(changed, "role")
	}
	if req.Status != nil {
		status := auth.Status(*req.Status)
		upd.Status = &status
		changed = append(changed, "status")
	}
	if req.Name != nil {
		changed = append(changed, "name")
	}
	if req.Email != nil {
		changed = append(changed, "email")
	}
	if req.Password != nil {
		changed = append(changed, "password")
	}

	user, err := a.directory.UpdateAccount(r.Context(), chi.URLParam(r, "id"), upd)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "users.updated", map[string]any{
		"target_id": user.ID,
		"fields":    changed,
	})
	writeJSON(w, http.StatusOK, user)
}

func (a *API) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if !a.ensureDirectory(w, r) {
		return
	}
	id := chi.URLParam(r, "id")
	if subject, ok := auth.SubjectFromContext(r.Context()); ok && subject == id {
		writeError(w, r, http.StatusBadRequest, "invalid_input", "cannot delete the signed-in account")
		return
	}
	if err := a.directory.DeleteAccount(r.Context(), id); err != nil {
		handleAccountError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "users.deleted", map[string]any{"target_id": id})
	w.WriteHeader(http.StatusNoContent)
}
