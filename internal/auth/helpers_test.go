package auth

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func init() {
	PasswordCost = bcrypt.MinCost
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type memStore struct {
	mu       sync.Mutex
	accounts map[string]Account
	next     int
	touched  map[string]time.Time
}

func newMemStore() *memStore {
	return &memStore{accounts: map[string]Account{}, touched: map[string]time.Time{}}
}

func (s *memStore) FindByEmail(_ context.Context, email string) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = NormalizeEmail(email)
	for _, acc := range s.accounts {
		if acc.Email == email {
			return acc, nil
		}
	}
	return Account{}, ErrNotFound
}

func (s *memStore) FindByID(_ context.Context, id string) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return acc, nil
}

func (s *memStore) ListAccounts(context.Context) ([]Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Account, 0, len(s.accounts))
	for _, acc := range s.accounts {
		out = append(out, acc)
	}
	return out, nil
}

func (s *memStore) CreateAccount(_ context.Context, acc Account) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc.Email = NormalizeEmail(acc.Email)
	for _, existing := range s.accounts {
		if existing.Email == acc.Email {
			return Account{}, ErrConflict
		}
	}
	s.next++
	if acc.ID == "" {
		acc.ID = fmt.Sprintf("acc-%d", s.next)
	}
	s.accounts[acc.ID] = acc
	return acc, nil
}

func (s *memStore) UpdateAccount(_ context.Context, id string, upd AccountUpdate) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	if upd.Name != nil {
		acc.Name = *upd.Name
	}
	if upd.Email != nil {
		acc.Email = NormalizeEmail(*upd.Email)
	}
	if upd.Role != nil {
		acc.Role = NormalizeRole(string(*upd.Role))
	}
	if upd.Status != nil {
		acc.Status = *upd.Status
	}
	if upd.PasswordHash != nil {
		acc.PasswordHash = *upd.PasswordHash
	}
	s.accounts[id] = acc
	return acc, nil
}

func (s *memStore) DeleteAccount(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[id]; !ok {
		return ErrNotFound
	}
	delete(s.accounts, id)
	return nil
}

func (s *memStore) TouchLastActive(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched[id] = at
	return nil
}

// put stores an account verbatim, bypassing normalization, to mimic rows
// written before canonical roles existed.
func (s *memStore) put(t *testing.T, acc Account, password string) Account {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	acc.PasswordHash = hash
	if acc.Status == "" {
		acc.Status = StatusActive
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	if acc.ID == "" {
		acc.ID = fmt.Sprintf("acc-%d", s.next)
	}
	s.accounts[acc.ID] = acc
	return acc
}

func newTestTokens(t *testing.T, clock *fakeClock, opts ...TokenOption) *Tokens {
	t.Helper()
	opts = append([]TokenOption{WithClock(clock.Now)}, opts...)
	tokens, err := NewTokens("access-secret-for-tests", "refresh-secret-for-tests", opts...)
	if err != nil {
		t.Fatalf("NewTokens: %v", err)
	}
	return tokens
}
