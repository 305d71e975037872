package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"watchtower.dev/internal/audit"
	"watchtower.dev/internal/auth"
	"watchtower.dev/internal/obs"
	"watchtower.dev/internal/policy"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var errBadScheme = errors.New("invalid authorization scheme")

// require admits callers whose access token passes rule. Every route that
// is not explicitly public is mounted behind it.
func (a *API) require(rule policy.Rule) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := extractBearerToken(r.Header.Get(authHeader))
			if errors.Is(err, errBadScheme) {
				obs.ObserveDecision("unauthenticated")
				writeUnauthorized(w, r, "unauthenticated", err.Error())
				return
			}

			claims, err := auth.Authorize(a.auth, token, rule.Roles)
			switch {
			case err == nil:
			case errors.Is(err, auth.ErrUnauthenticated):
				obs.ObserveDecision("unauthenticated")
				writeUnauthorized(w, r, "unauthenticated", "missing bearer token")
				return
			case errors.Is(err, auth.ErrTokenExpired):
				obs.ObserveDecision("token_expired")
				writeUnauthorized(w, r, "token_expired", "token expired")
				return
			case errors.Is(err, auth.ErrForbidden):
				obs.ObserveDecision("forbidden")
				ctx := auth.ContextWithClaims(r.Context(), claims)
				_ = audit.LogEvent(ctx, "auth.access.denied", map[string]any{
					"rule":   rule.Name,
					"method": r.Method,
					"path":   r.URL.Path,
				})
				writeError(w, r, http.StatusForbidden, "forbidden", "insufficient role")
				return
			default:
				obs.ObserveDecision("invalid_token")
				writeUnauthorized(w, r, "invalid_token", "invalid token")
				return
			}

			obs.ObserveDecision("allow")
			ctx := auth.ContextWithClaims(r.Context(), claims)
			ctx = auth.ContextWithToken(ctx, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", nil
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errBadScheme
	}
	return strings.TrimSpace(header[len(bearer):]), nil
}
