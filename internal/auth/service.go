package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"watchtower.dev/internal/obs"
)

// Service authenticates credentials and manages the token lifecycle.
type Service struct {
	store  Store
	tokens *Tokens
	now    func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithServiceClock overrides the time source used for last-active stamps.
func WithServiceClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// NewService constructs Service with optional configuration.
func NewService(store Store, tokens *Tokens, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	if tokens == nil {
		return nil, errors.New("auth: token signer is required")
	}
	svc := &Service{
		store:  store,
		tokens: tokens,
		now:    time.Now,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// LoginRequest is the input of Login. ExpectedRole is optional.
type LoginRequest struct {
	Email        string
	Password     string
	ExpectedRole string
}

// Session is a token pair together with the profile it was issued for.
type Session struct {
	TokenPair
	User Profile `json:"user"`
}

// Login verifies credentials and issues a fresh token pair. Unknown email,
// wrong password and non-active accounts all yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, req LoginRequest) (Session, error) {
	email := NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return Session{}, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}
	acc, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			_ = VerifyPassword(decoyHash(), req.Password)
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if !PasswordMatches(acc.PasswordHash, req.Password) {
		return Session{}, ErrInvalidCredentials
	}
	if acc.Status != StatusActive {
		return Session{}, fmt.Errorf("%w: %w (%s)", ErrInvalidCredentials, ErrAccountInactive, strings.ToLower(string(acc.Status)))
	}
	acc.Role = NormalizeRole(string(acc.Role))
	if expected := strings.TrimSpace(req.ExpectedRole); expected != "" {
		if NormalizeRole(expected) != acc.Role {
			return Session{}, ErrRoleMismatch
		}
	}
	return s.issue(ctx, acc)
}

// Refresh exchanges a valid refresh token for a brand-new pair. The account
// is re-read so the new tokens carry its current role; the presented token
// is not revoked.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	claims, err := s.tokens.Verify(refreshToken, KindRefresh)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return Session{}, ErrRefreshExpired
		}
		return Session{}, ErrRefreshInvalid
	}
	acc, err := s.store.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrRefreshInvalid
		}
		return Session{}, err
	}
	if acc.Status != StatusActive {
		return Session{}, ErrRefreshInvalid
	}
	acc.Role = NormalizeRole(string(acc.Role))
	return s.issue(ctx, acc)
}

// Verify validates an access token.
func (s *Service) Verify(raw string, kind TokenKind) (*Claims, error) {
	return s.tokens.Verify(raw, kind)
}

func (s *Service) issue(ctx context.Context, acc Account) (Session, error) {
	pair, err := s.tokens.Issue(acc)
	if err != nil {
		return Session{}, err
	}
	if err := s.store.TouchLastActive(ctx, acc.ID, s.now().UTC()); err != nil {
		obs.Logger().Warn("touch last active failed", zap.String("user_id", acc.ID), zap.Error(err))
	}
	return Session{TokenPair: pair, User: acc.Profile()}, nil
}

var (
	decoyOnce sync.Once
	decoy     string
)

// decoyHash is the hash checked for unknown emails.
func decoyHash() string {
	decoyOnce.Do(func() {
		decoy, _ = HashPassword("watchtower-decoy-password")
	})
	return decoy
}
