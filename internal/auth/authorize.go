package auth

import (
	"errors"
	"strings"
)

// Verifier validates raw tokens of a given kind.
type Verifier interface {
	Verify(raw string, kind TokenKind) (*Claims, error)
}

// Authorize decides whether a bearer token may invoke an operation open to
// allowed. An empty allowed set admits any authenticated caller. Roles are
// compared exactly against the canonical role in the token.
func Authorize(v Verifier, token string, allowed []Role) (*Claims, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrUnauthenticated
	}
	claims, err := v.Verify(token, KindAccess)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if len(allowed) > 0 && !claims.Role.In(allowed) {
		return claims, ErrForbidden
	}
	return claims, nil
}
