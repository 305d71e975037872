package auth

import "testing"

func TestNormalizeRoleResolvesLegacyAliases(t *testing.T) {
	for alias, want := range LegacyAliases() {
		if got := NormalizeRole(alias); got != want {
			t.Fatalf("NormalizeRole(%q)=%q, want %q", alias, got, want)
		}
		if got := NormalizeRole("  " + alias + " "); got != want {
			t.Fatalf("NormalizeRole with padding %q=%q, want %q", alias, got, want)
		}
	}
}

func TestNormalizeRoleIsIdempotent(t *testing.T) {
	inputs := []string{"", "   ", "Root", "platform admin", "PLATFORM ADMIN", "Security Analyst ", "Incident Commander"}
	for alias := range LegacyAliases() {
		inputs = append(inputs, alias)
	}
	for _, r := range Roles() {
		inputs = append(inputs, string(r))
	}
	for _, in := range inputs {
		once := NormalizeRole(in)
		if twice := NormalizeRole(string(once)); twice != once {
			t.Fatalf("NormalizeRole not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestNormalizeRolePassesThroughUnknownValues(t *testing.T) {
	cases := map[string]Role{
		"Platform Administrator": RolePlatformAdministrator,
		"Incident Commander":     Role("Incident Commander"),
		"platform admin":         Role("platform admin"),
		" Auditor ":              Role("Auditor"),
	}
	for in, want := range cases {
		if got := NormalizeRole(in); got != want {
			t.Fatalf("NormalizeRole(%q)=%q, want %q", in, got, want)
		}
	}
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole("Network Admin")
	if err != nil {
		t.Fatalf("ParseRole: %v", err)
	}
	if role != RoleNetworkAdministrator {
		t.Fatalf("unexpected role %q", role)
	}
	if _, err := ParseRole("Incident Commander"); err == nil {
		t.Fatalf("expected error for unknown role")
	}
}

func TestRoleInUsesExactMatch(t *testing.T) {
	set := []Role{RoleSecurityAnalyst}
	if !RoleSecurityAnalyst.In(set) {
		t.Fatalf("expected membership")
	}
	for _, r := range []Role{"security analyst", "Security", "Security Analyst ", "security_analyst"} {
		if r.In(set) {
			t.Fatalf("%q must not match %v", r, set)
		}
	}
}
