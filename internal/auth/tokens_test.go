package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokensRoundTripEveryRole(t *testing.T) {
	clock := newFakeClock()
	tokens := newTestTokens(t, clock)

	var inputs []string
	for _, r := range Roles() {
		inputs = append(inputs, string(r))
	}
	for alias := range LegacyAliases() {
		inputs = append(inputs, alias)
	}

	for _, raw := range inputs {
		acc := Account{ID: "acc-1", Name: "Dana", Email: " Dana@Example.com ", Role: Role(raw)}
		pair, err := tokens.Issue(acc)
		if err != nil {
			t.Fatalf("Issue(%q): %v", raw, err)
		}
		claims, err := tokens.Verify(pair.AccessToken, KindAccess)
		if err != nil {
			t.Fatalf("Verify(%q): %v", raw, err)
		}
		if claims.Role != NormalizeRole(raw) {
			t.Fatalf("role claim %q, want %q", claims.Role, NormalizeRole(raw))
		}
		if claims.Subject != "acc-1" || claims.Email != "dana@example.com" || claims.Name != "Dana" {
			t.Fatalf("unexpected claims: %+v", claims)
		}
		if claims.TokenType != KindAccess {
			t.Fatalf("unexpected token type %q", claims.TokenType)
		}
		if claims.ID == "" {
			t.Fatalf("expected jti")
		}
	}
}

func TestTokensExpiryBoundary(t *testing.T) {
	clock := newFakeClock()
	tokens := newTestTokens(t, clock, WithAccessTTL(2*time.Hour))

	pair, err := tokens.Issue(Account{ID: "acc-1", Email: "a@x.com", Role: RoleSecurityAnalyst})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if want := clock.Now().Add(2 * time.Hour); !pair.AccessExpiresAt.Equal(want) {
		t.Fatalf("access expiry %v, want %v", pair.AccessExpiresAt, want)
	}

	clock.Advance(2*time.Hour - time.Second)
	if _, err := tokens.Verify(pair.AccessToken, KindAccess); err != nil {
		t.Fatalf("expected valid token one second before expiry, got %v", err)
	}

	clock.Advance(2 * time.Second)
	if _, err := tokens.Verify(pair.AccessToken, KindAccess); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired after expiry, got %v", err)
	}

	// The refresh token outlives the access token.
	if _, err := tokens.Verify(pair.RefreshToken, KindRefresh); err != nil {
		t.Fatalf("refresh token should still be valid: %v", err)
	}
}

func TestTokensKindsUseSeparateSecrets(t *testing.T) {
	clock := newFakeClock()
	tokens := newTestTokens(t, clock)
	pair, err := tokens.Issue(Account{ID: "acc-1", Email: "a@x.com", Role: RolePlatformAdministrator})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := tokens.Verify(pair.RefreshToken, KindAccess); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("refresh token accepted as access: %v", err)
	}
	if _, err := tokens.Verify(pair.AccessToken, KindRefresh); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("access token accepted as refresh: %v", err)
	}

	// A token with the right type claim but signed by the access secret
	// must still be rejected as a refresh token.
	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role:      RolePlatformAdministrator,
		TokenType: KindRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    DefaultIssuer,
			Subject:   "acc-1",
			IssuedAt:  jwt.NewNumericDate(clock.Now()),
			ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
		},
	})
	raw, err := forged.SignedString([]byte("access-secret-for-tests"))
	if err != nil {
		t.Fatalf("sign forged: %v", err)
	}
	if _, err := tokens.Verify(raw, KindRefresh); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected forged refresh token rejected, got %v", err)
	}
}

func TestTokensRejectTampering(t *testing.T) {
	clock := newFakeClock()
	tokens := newTestTokens(t, clock)
	pair, err := tokens.Issue(Account{ID: "acc-1", Email: "a@x.com", Role: RoleSecurityAnalyst})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	parts := strings.Split(pair.AccessToken, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape")
	}
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	cases := map[string]string{
		"empty":     "",
		"garbage":   "not-a-token",
		"tampered":  tampered,
		"two parts": parts[0] + "." + parts[1],
	}
	for name, raw := range cases {
		if _, err := tokens.Verify(raw, KindAccess); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}

	// Expired and tampered reports invalid, never expired.
	clock.Advance(3 * time.Hour)
	if _, err := tokens.Verify(tampered, KindAccess); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired tampered token, got %v", err)
	}
}

func TestTokensRejectUnsignedAndForeignIssuer(t *testing.T) {
	clock := newFakeClock()
	tokens := newTestTokens(t, clock)

	claims := Claims{
		Role:      RolePlatformAdministrator,
		TokenType: KindAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    DefaultIssuer,
			Subject:   "acc-1",
			IssuedAt:  jwt.NewNumericDate(clock.Now()),
			ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := tokens.Verify(unsigned, KindAccess); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected alg none rejected, got %v", err)
	}

	claims.Issuer = "someone-else"
	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("access-secret-for-tests"))
	if err != nil {
		t.Fatalf("sign foreign: %v", err)
	}
	if _, err := tokens.Verify(foreign, KindAccess); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected foreign issuer rejected, got %v", err)
	}
}

func TestNewTokensValidatesSecrets(t *testing.T) {
	if _, err := NewTokens("", "refresh"); err == nil {
		t.Fatalf("expected error for missing access secret")
	}
	if _, err := NewTokens("same", "same"); err == nil {
		t.Fatalf("expected error for identical secrets")
	}
	if _, err := NewTokens("a", "b", WithAccessTTL(2*time.Hour), WithRefreshTTL(time.Hour)); err == nil {
		t.Fatalf("expected error for refresh ttl shorter than access ttl")
	}
}
