package auth

import "errors"

var (
	ErrNotFound     = errors.New("auth: not found")
	ErrConflict     = errors.New("auth: conflict")
	ErrInvalidInput = errors.New("auth: invalid input")
	ErrInvalidRole  = errors.New("auth: invalid role")
)

// Login outcomes. ErrInvalidCredentials never says which field was wrong.
var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrRoleMismatch       = errors.New("auth: role mismatch")
	// ErrAccountInactive is always wrapped together with ErrInvalidCredentials.
	ErrAccountInactive    = errors.New("auth: account inactive")
)

// Token and authorization outcomes.
var (
	ErrUnauthenticated = errors.New("auth: unauthenticated")
	ErrInvalidToken    = errors.New("auth: invalid token")
	ErrTokenExpired    = errors.New("auth: token expired")
	ErrRefreshInvalid  = errors.New("auth: refresh token invalid")
	ErrRefreshExpired  = errors.New("auth: refresh token expired")
	ErrForbidden       = errors.New("auth: forbidden")
)
