package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"watchtower.dev/internal/audit"
	"watchtower.dev/internal/auth"
	"watchtower.dev/internal/obs"
)

type loginRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	ExpectedRole string `json:"expectedRole"`
	// Role is the field name older sign-in forms send.
	Role string `json:"role"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// invalidCredentials is the only message a failed login ever shows.
const invalidCredentials = "invalid credentials"

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		obs.ObserveLogin("bad_request")
		writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	expected := req.ExpectedRole
	if strings.TrimSpace(expected) == "" {
		expected = req.Role
	}
	email := auth.NormalizeEmail(req.Email)

	session, err := a.auth.Login(r.Context(), auth.LoginRequest{
		Email:        req.Email,
		Password:     req.Password,
		ExpectedRole: expected,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidInput):
			obs.ObserveLogin("bad_request")
			writeError(w, r, http.StatusBadRequest, "invalid_request", "email and password are required")
		case errors.Is(err, auth.ErrRoleMismatch):
			obs.ObserveLogin("role_mismatch")
			a.auditLoginFailure(r, email, "role_mismatch")
			writeError(w, r, http.StatusForbidden, "role_mismatch", invalidCredentials)
		case errors.Is(err, auth.ErrInvalidCredentials):
			obs.ObserveLogin("invalid_credentials")
			reason := "credentials"
			if errors.Is(err, auth.ErrAccountInactive) {
				reason = "inactive"
			}
			a.auditLoginFailure(r, email, reason)
			writeUnauthorized(w, r, "invalid_credentials", invalidCredentials)
		default:
			obs.ObserveLogin("error")
			writeInternal(w, r, "login", err)
		}
		return
	}

	obs.ObserveLogin("success")
	_ = audit.LogEvent(r.Context(), "auth.login.succeeded", map[string]any{
		"user_id": session.User.ID,
		"role":    string(session.User.Role),
	})
	writeJSON(w, http.StatusOK, session)
}

func (a *API) auditLoginFailure(r *http.Request, email, reason string) {
	_ = audit.LogEvent(r.Context(), "auth.login.failed", map[string]any{
		"email":  email,
		"reason": reason,
	})
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		obs.ObserveRefresh("bad_request")
		writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		obs.ObserveRefresh("invalid")
		writeUnauthorized(w, r, "refresh_invalid", "refresh token invalid")
		return
	}
	session, err := a.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrRefreshExpired):
			obs.ObserveRefresh("expired")
			writeUnauthorized(w, r, "refresh_expired", "refresh token expired")
		case errors.Is(err, auth.ErrRefreshInvalid):
			obs.ObserveRefresh("invalid")
			writeUnauthorized(w, r, "refresh_invalid", "refresh token invalid")
		default:
			obs.ObserveRefresh("error")
			writeInternal(w, r, "refresh", err)
		}
		return
	}
	obs.ObserveRefresh("success")
	_ = audit.LogEvent(r.Context(), "auth.token.refreshed", map[string]any{
		"user_id": session.User.ID,
		"role":    string(session.User.Role),
	})
	writeJSON(w, http.StatusOK, session)
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, r, "unauthenticated", "missing bearer token")
		return
	}
	resp := map[string]any{
		"id":    claims.Subject,
		"email": claims.Email,
		"name":  claims.Name,
		"role":  claims.Role,
	}
	if claims.ExpiresAt != nil {
		resp["expiresAt"] = claims.ExpiresAt.Time
	}
	writeJSON(w, http.StatusOK, resp)
}
