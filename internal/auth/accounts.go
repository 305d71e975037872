package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Directory validates and applies administrative account changes.
type Directory struct {
	store Store
}

func NewDirectory(store Store) (*Directory, error) {
	if store == nil {
		return nil, errors.New("account store is required")
	}
	return &Directory{store: store}, nil
}

// CreateAccount validates input, hashes the password and persists the
// account with a canonical role and normalized email.
func (d *Directory) CreateAccount(ctx context.Context, in NewAccount) (Account, error) {
	name := strings.TrimSpace(in.Name)
	email := NormalizeEmail(in.Email)
	if name == "" || email == "" || in.Password == "" || strings.TrimSpace(in.Role) == "" {
		return Account{}, fmt.Errorf("%w: all fields are required", ErrInvalidInput)
	}
	if !strings.Contains(email, "@") {
		return Account{}, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	role, err := ParseRole(in.Role)
	if err != nil {
		return Account{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	status, err := ParseStatus(in.Status)
	if err != nil {
		return Account{}, err
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return Account{}, err
	}
	return d.store.CreateAccount(ctx, Account{
		Name:         name,
		Email:        email,
		Role:         role,
		Status:       status,
		PasswordHash: hash,
	})
}

func (d *Directory) ListAccounts(ctx context.Context) ([]Account, error) {
	return d.store.ListAccounts(ctx)
}

func (d *Directory) GetAccount(ctx context.Context, id string) (Account, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Account{}, fmt.Errorf("%w: account id is required", ErrInvalidInput)
	}
	return d.store.FindByID(ctx, id)
}

// UpdateAccount applies the non-nil fields of upd. A plaintext Password is
// replaced by its hash before reaching the store.
func (d *Directory) UpdateAccount(ctx context.Context, id string, upd AccountUpdate) (Account, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Account{}, fmt.Errorf("%w: account id is required", ErrInvalidInput)
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return Account{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
		}
		upd.Name = &name
	}
	if upd.Email != nil {
		email := NormalizeEmail(*upd.Email)
		if email == "" || !strings.Contains(email, "@") {
			return Account{}, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
		}
		upd.Email = &email
	}
	if upd.Role != nil {
		role, err := ParseRole(string(*upd.Role))
		if err != nil {
			return Account{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		upd.Role = &role
	}
	if upd.Status != nil {
		status, err := ParseStatus(string(*upd.Status))
		if err != nil {
			return Account{}, err
		}
		upd.Status = &status
	}
	upd.PasswordHash = nil
	if upd.Password != nil {
		if *upd.Password == "" {
			return Account{}, fmt.Errorf("%w: password is required", ErrInvalidInput)
		}
		hash, err := HashPassword(*upd.Password)
		if err != nil {
			return Account{}, err
		}
		upd.PasswordHash = &hash
		upd.Password = nil
	}
	return d.store.UpdateAccount(ctx, id, upd)
}

func (d *Directory) DeleteAccount(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: account id is required", ErrInvalidInput)
	}
	return d.store.DeleteAccount(ctx, id)
}
