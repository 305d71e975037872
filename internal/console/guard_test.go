package console

import (
	"testing"

	"github.com/stretchr/testify/require"

	"watchtower.dev/internal/auth"
	"watchtower.dev/internal/policy"
)

func guardFor(t *testing.T, role auth.Role) *Guard {
	t.Helper()
	store, err := Open(NewMemoryStorage())
	require.NoError(t, err)
	if role != "" {
		require.NoError(t, store.Login("access", "refresh", auth.Profile{ID: "u", Role: role}))
	}
	return NewGuard(store)
}

func TestGuardRedirectsAnonymousToSignIn(t *testing.T) {
	g := guardFor(t, "")

	nav := g.Navigate("/platform-admin/users?page=2")
	require.Equal(t, RedirectSignIn, nav.Outcome)
	require.Equal(t, policy.SignInPath, nav.Path)
	require.Equal(t, "/platform-admin/users", nav.From)

	nav = g.Navigate(policy.SignInPath)
	require.Equal(t, Render, nav.Outcome)
}

func TestGuardForbidsWrongRole(t *testing.T) {
	g := guardFor(t, auth.RoleNetworkAdministrator)

	nav := g.Navigate("/platform-admin/alerts")
	require.Equal(t, RedirectForbidden, nav.Outcome)
	require.Equal(t, policy.ForbiddenPath, nav.Path)

	nav = g.Navigate("/network-admin/notifications")
	require.Equal(t, Render, nav.Outcome)
	require.Equal(t, "Notification Settings", nav.View.Title)
}

func TestGuardTable(t *testing.T) {
	cases := []struct {
		role auth.Role
		path string
		want Outcome
	}{
		{auth.RolePlatformAdministrator, "/platform-admin/dashboard", Render},
		{auth.RolePlatformAdministrator, "/platform-admin/users", Render},
		{auth.RolePlatformAdministrator, "/platform-admin/anything/else", Render},
		{auth.RoleSecurityAnalyst, "/platform-admin/alerts", Render},
		{auth.RoleSecurityAnalyst, "/platform-admin/users", RedirectForbidden},
		{auth.RoleSecurityAnalyst, "/platform-admin/dashboard", RedirectForbidden},
		{auth.RoleSecurityAnalyst, "/admin/default", Render},
		{auth.RoleNetworkAdministrator, "/platform-admin/profile-types", RedirectForbidden},
		{auth.RoleNetworkAdministrator, "/admin/default", Render},
	}
	for _, tc := range cases {
		t.Run(string(tc.role)+tc.path, func(t *testing.T) {
			nav := guardFor(t, tc.role).Navigate(tc.path)
			require.Equal(t, tc.want, nav.Outcome, nav.Outcome.String())
		})
	}
}

func TestGuardUnknownPathGoesHome(t *testing.T) {
	nav := guardFor(t, auth.RoleSecurityAnalyst).Navigate("/no/such/page")
	require.Equal(t, Render, nav.Outcome)
	require.Equal(t, "/platform-admin/alerts", nav.Path)

	nav = guardFor(t, auth.RolePlatformAdministrator).Navigate("/")
	require.Equal(t, "/platform-admin/dashboard", nav.Path)
}

func TestGuardAfterLogin(t *testing.T) {
	store, err := Open(NewMemoryStorage())
	require.NoError(t, err)
	g := NewGuard(store)

	nav := g.Navigate("/platform-admin/users")
	require.Equal(t, RedirectSignIn, nav.Outcome)

	require.NoError(t, store.Login("a", "r", auth.Profile{ID: "1", Role: auth.RolePlatformAdministrator}))
	require.Equal(t, "/platform-admin/users", g.AfterLogin(nav))

	// A remembered page the new role cannot open falls back to home.
	require.NoError(t, store.Login("a", "r", auth.Profile{ID: "2", Role: auth.RoleSecurityAnalyst}))
	require.Equal(t, "/platform-admin/alerts", g.AfterLogin(nav))

	require.Equal(t, "/platform-admin/alerts", g.AfterLogin(Navigation{}))
}

func TestVisibleEntries(t *testing.T) {
	entries := []policy.MenuEntry{
		{Name: "Everyone", Path: "/all"},
		{Name: "Admins", Path: "/admins", Roles: []auth.Role{auth.RolePlatformAdministrator}},
		{Name: "Ops", Path: "/ops", Roles: []auth.Role{auth.RolePlatformAdministrator, auth.RoleNetworkAdministrator}},
	}

	names := func(es []policy.MenuEntry) []string {
		out := []string{}
		for _, e := range es {
			out = append(out, e.Name)
		}
		return out
	}

	require.Equal(t, []string{"Everyone", "Admins", "Ops"}, names(VisibleEntries(entries, auth.RolePlatformAdministrator)))
	require.Equal(t, []string{"Everyone", "Ops"}, names(VisibleEntries(entries, auth.RoleNetworkAdministrator)))
	require.Equal(t, []string{"Everyone"}, names(VisibleEntries(entries, auth.RoleSecurityAnalyst)))
	require.Equal(t, []string{"Everyone"}, names(VisibleEntries(entries, "")))
}

func TestMenuMatchesGuard(t *testing.T) {
	for _, role := range auth.Roles() {
		g := guardFor(t, role)
		for _, e := range VisibleEntries(policy.Menu(), role) {
			require.Equal(t, Render, g.Navigate(e.Path).Outcome, "%s should open %s", role, e.Path)
		}
	}
}

func TestGuardSessionWithoutCachedUser(t *testing.T) {
	mem := NewMemoryStorage()
	require.NoError(t, mem.Set(SessionKey, `{"accessToken":"a","refreshToken":"r"}`))
	store, err := Open(mem)
	require.NoError(t, err)
	g := NewGuard(store)

	nav := g.Navigate(policy.DefaultPath)
	require.Equal(t, Render, nav.Outcome)
	require.Equal(t, policy.DefaultPath, nav.Path)

	nav = g.Navigate("/platform-admin/users")
	require.Equal(t, RedirectForbidden, nav.Outcome)
}
