package auth

import (
	"context"
	"time"
)

// Store describes persistence operations required by the auth subsystem.
// Implementations normalize emails and roles at their boundary and enforce
// email uniqueness atomically, reporting duplicates as ErrConflict.
type Store interface {
	FindByEmail(ctx context.Context, email string) (Account, error)
	FindByID(ctx context.Context, id string) (Account, error)
	ListAccounts(ctx context.Context) ([]Account, error)
	CreateAccount(ctx context.Context, acc Account) (Account, error)
	UpdateAccount(ctx context.Context, id string, upd AccountUpdate) (Account, error)
	DeleteAccount(ctx context.Context, id string) error
	TouchLastActive(ctx context.Context, id string, at time.Time) error
}
