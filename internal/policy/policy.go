// Package policy is the route access table shared by the API server and the
// console client. Server routes and client views refer to the same Rule
// values, so both enforcement points evaluate identical role sets.
package policy

import (
	"path"
	"strings"

	"watchtower.dev/internal/auth"
)

// Rule names an access policy and the roles it admits. An empty role set
// admits any authenticated caller.
type Rule struct {
	Name  string
	Roles []auth.Role
}

// Allows reports whether role may pass the rule.
func (r Rule) Allows(role auth.Role) bool {
	return len(r.Roles) == 0 || role.In(r.Roles)
}

// Public reports whether the rule needs no authentication at all.
func (r Rule) Public() bool { return r.Name == Public.Name }

var (
	Public        = Rule{Name: "public"}
	Authenticated = Rule{Name: "authenticated"}
	Dashboard     = Rule{Name: "dashboard", Roles: []auth.Role{auth.RolePlatformAdministrator}}
	ManageUsers   = Rule{Name: "manage-users", Roles: []auth.Role{auth.RolePlatformAdministrator}}
	ProfileTypes  = Rule{Name: "profile-types", Roles: []auth.Role{auth.RolePlatformAdministrator}}
	Alerts        = Rule{Name: "alerts", Roles: []auth.Role{auth.RolePlatformAdministrator, auth.RoleSecurityAnalyst}}
	Notifications = Rule{Name: "notifications", Roles: []auth.Role{auth.RolePlatformAdministrator, auth.RoleNetworkAdministrator}}
)

// Rules returns every named rule.
func Rules() []Rule {
	return []Rule{Public, Authenticated, Dashboard, ManageUsers, ProfileTypes, Alerts, Notifications}
}

const (
	SignInPath    = "/auth/sign-in"
	ForbiddenPath = "/forbidden"
	DefaultPath   = "/admin/default"
)

// View is a client-side page guarded by a rule.
type View struct {
	Title string
	Path  string
	Rule  Rule
	// Prefix marks views that own every path below Path.
	Prefix bool
	// Menu entries are listed in the navigation sidebar.
	Menu bool
	// API lists the server endpoints the view reads from.
	API []string
}

var views = []View{
	{Title: "Sign In", Path: SignInPath, Rule: Public},
	{Title: "Access Denied", Path: ForbiddenPath, Rule: Public},
	{Title: "Overview", Path: "/platform-admin/dashboard", Rule: Dashboard, Menu: true},
	{Title: "User Account Management", Path: "/platform-admin/users", Rule: ManageUsers, Menu: true, API: []string{"/api/users"}},
	{Title: "Profile Types", Path: "/platform-admin/profile-types", Rule: ProfileTypes, Menu: true, API: []string{"/api/profile-types"}},
	{Title: "Alerts & Notifications", Path: "/platform-admin/alerts", Rule: Alerts, Menu: true, API: []string{"/api/suricata/alerts", "/api/zeek/logs"}},
	{Title: "Notification Settings", Path: "/network-admin/notifications", Rule: Notifications, Menu: true, API: []string{"/api/notification-rules"}},
	{Title: "Platform Admin", Path: "/platform-admin", Rule: Dashboard, Prefix: true},
	{Title: "Admin", Path: "/admin", Rule: Authenticated, Prefix: true},
}

// Views returns the client view table.
func Views() []View {
	out := make([]View, len(views))
	copy(out, views)
	return out
}

// MenuEntry is a navigation item with its declared role set.
type MenuEntry struct {
	Name  string
	Path  string
	Roles []auth.Role
}

// Menu returns every navigation entry in display order.
func Menu() []MenuEntry {
	var out []MenuEntry
	for _, v := range views {
		if !v.Menu {
			continue
		}
		out = append(out, MenuEntry{Name: v.Title, Path: v.Path, Roles: v.Rule.Roles})
	}
	return out
}

// ViewFor resolves a client path to its view. Exact matches win over
// prefix views; among prefix views the longest match wins.
func ViewFor(p string) (View, bool) {
	p = Clean(p)
	var (
		best  View
		found bool
	)
	for _, v := range views {
		if v.Path == p {
			return v, true
		}
		if v.Prefix && strings.HasPrefix(p, v.Path+"/") {
			if !found || len(v.Path) > len(best.Path) {
				best, found = v, true
			}
		}
	}
	return best, found
}

// Home returns the landing path for a role.
func Home(role auth.Role) string {
	switch role {
	case auth.RolePlatformAdministrator:
		return "/platform-admin/dashboard"
	case auth.RoleSecurityAnalyst:
		return "/platform-admin/alerts"
	default:
		return DefaultPath
	}
}

// Clean normalizes a client path: leading slash, no trailing slash, no
// query string.
func Clean(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}
