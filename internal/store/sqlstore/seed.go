package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"watchtower.dev/internal/auth"
)

type accountsFile struct {
	Accounts []struct {
		Name     string `yaml:"name"`
		Email    string `yaml:"email"`
		Password string `yaml:"password"`
		Role     string `yaml:"role"`
		Status   string `yaml:"status"`
	} `yaml:"accounts"`
}

// SeedFromFile creates the accounts listed in a YAML file. Entries whose
// email already exists are skipped, so the file can be applied repeatedly.
// It returns the number of accounts created.
func (s *Store) SeedFromFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var af accountsFile
	if err := yaml.Unmarshal(data, &af); err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	dir, err := auth.NewDirectory(s)
	if err != nil {
		return 0, err
	}
	created := 0
	for _, a := range af.Accounts {
		if a.Email == "" || a.Password == "" {
			continue
		}
		if _, err := s.FindByEmail(ctx, a.Email); err == nil {
			continue
		} else if !errors.Is(err, auth.ErrNotFound) {
			return created, err
		}
		name := a.Name
		if name == "" {
			name = a.Email
		}
		_, err := dir.CreateAccount(ctx, auth.NewAccount{
			Name:     name,
			Email:    a.Email,
			Password: a.Password,
			Role:     a.Role,
			Status:   a.Status,
		})
		if errors.Is(err, auth.ErrConflict) {
			continue
		}
		if err != nil {
			return created, fmt.Errorf("seed %s: %w", a.Email, err)
		}
		created++
	}
	return created, nil
}
