package console

import (
	"watchtower.dev/internal/auth"
	"watchtower.dev/internal/policy"
)

// VisibleEntries keeps the entries whose role set is empty or contains role.
func VisibleEntries(entries []policy.MenuEntry, role auth.Role) []policy.MenuEntry {
	out := make([]policy.MenuEntry, 0, len(entries))
	for _, e := range entries {
		if len(e.Roles) == 0 || role.In(e.Roles) {
			out = append(out, e)
		}
	}
	return out
}
