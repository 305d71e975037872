package auth

import (
	"fmt"
	"strings"
)

// Role is a canonical role identifier as stored and embedded in tokens.
type Role string

const (
	RolePlatformAdministrator Role = "Platform Administrator"
	RoleNetworkAdministrator  Role = "Network Administrator"
	RoleSecurityAnalyst       Role = "Security Analyst"
)

var canonicalRoles = []Role{
	RolePlatformAdministrator,
	RoleNetworkAdministrator,
	RoleSecurityAnalyst,
}

// legacyRoles maps historical labels (sign-in dropdown values and the
// snake_case identifiers of the first schema) to canonical roles.
var legacyRoles = map[string]Role{
	"Platform Admin":   RolePlatformAdministrator,
	"platform_admin":   RolePlatformAdministrator,
	"Network Admin":    RoleNetworkAdministrator,
	"network_admin":    RoleNetworkAdministrator,
	"security_analyst": RoleSecurityAnalyst,
}

// Roles returns the canonical role enumeration in display order.
func Roles() []Role {
	out := make([]Role, len(canonicalRoles))
	copy(out, canonicalRoles)
	return out
}

// LegacyAliases returns a copy of the alias table.
func LegacyAliases() map[string]Role {
	out := make(map[string]Role, len(legacyRoles))
	for k, v := range legacyRoles {
		out[k] = v
	}
	return out
}

// NormalizeRole resolves legacy aliases to their canonical role. Unknown
// values are returned unchanged apart from surrounding whitespace.
func NormalizeRole(raw string) Role {
	trimmed := strings.TrimSpace(raw)
	if canonical, ok := legacyRoles[trimmed]; ok {
		return canonical
	}
	return Role(trimmed)
}

// ParseRole normalizes raw and requires the result to be canonical.
func ParseRole(raw string) (Role, error) {
	role := NormalizeRole(raw)
	if !role.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, raw)
	}
	return role, nil
}

// Valid reports whether r is one of the canonical roles.
func (r Role) Valid() bool {
	for _, c := range canonicalRoles {
		if r == c {
			return true
		}
	}
	return false
}

func (r Role) String() string { return string(r) }

// In reports whether r is a member of set using exact comparison.
func (r Role) In(set []Role) bool {
	for _, candidate := range set {
		if r == candidate {
			return true
		}
	}
	return false
}
