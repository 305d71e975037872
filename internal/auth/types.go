package auth

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of an account.
type Status string

const (
	StatusActive    Status = "Active"
	StatusInactive  Status = "Inactive"
	StatusPending   Status = "Pending"
	StatusSuspended Status = "Suspended"
	StatusDeleted   Status = "Deleted"
)

var statuses = []Status{StatusActive, StatusInactive, StatusPending, StatusSuspended, StatusDeleted}

// ParseStatus accepts any casing of a known status. Empty input means Active.
func ParseStatus(raw string) (Status, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return StatusActive, nil
	}
	for _, s := range statuses {
		if strings.EqualFold(raw, string(s)) {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: unsupported status %s", ErrInvalidInput, raw)
}

// Account is a console user as persisted by the credential store.
type Account struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Role         Role       `json:"role"`
	Status       Status     `json:"status"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"joined_at"`
	LastActiveAt *time.Time `json:"last_active,omitempty"`
}

// Profile is the denormalized view of an account handed to clients.
type Profile struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	Status Status `json:"status,omitempty"`
}

// Profile returns the client-facing projection with the canonical role.
func (a Account) Profile() Profile {
	return Profile{
		ID:     a.ID,
		Name:   a.Name,
		Email:  a.Email,
		Role:   NormalizeRole(string(a.Role)),
		Status: a.Status,
	}
}

// NewAccount carries the fields required to create an account.
type NewAccount struct {
	Name     string
	Email    string
	Password string
	Role     string
	Status   string
}

// AccountUpdate holds optional changes; nil fields are left untouched.
// PasswordHash is filled by the directory, never by callers.
type AccountUpdate struct {
	Name         *string
	Email        *string
	Role         *Role
	Status       *Status
	Password     *string
	PasswordHash *string
}

// NormalizeEmail lower-cases and trims an email for storage or lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
