package identity_test

import (
	"strings"
	"testing"

	identity "github.com/campuskit/identity-go"
)

func TestMapOrgRole_KnownRoles(t *testing.T) {
	cases := map[string]identity.Role{
		"student":            identity.RoleStudent,
		"faculty":            identity.RoleFaculty,
		"hod":                identity.RoleHOD,
		"dean":               identity.RoleDean,
		"admin":              identity.RoleAdmin,
		"compliance_officer": identity.RoleComplianceOfficer,
		"management":         identity.RoleManagement,
	}
	for raw, want := range cases {
		if got := identity.MapOrgRole(raw); got != want {
			t.Errorf("MapOrgRole(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestMapOrgRole_StripsOrgPrefix(t *testing.T) {
	if got := identity.MapOrgRole("org:admin"); got != identity.RoleAdmin {
		t.Errorf("MapOrgRole(%q) = %q, want %q", "org:admin", got, identity.RoleAdmin)
	}
	if got := identity.MapOrgRole("org:hod"); got != identity.RoleHOD {
		t.Errorf("MapOrgRole(%q) = %q, want %q", "org:hod", got, identity.RoleHOD)
	}
}

func TestMapOrgRole_UnknownDefaultsToStudent(t *testing.T) {
	unknown := []string{
		"",
		"   ",
		"org:",
		"superuser",
		"org:superuser",
		"ADMIN",
		"registrar",
		"null",
	}
	for _, raw := range unknown {
		if got := identity.MapOrgRole(raw); got != identity.RoleStudent {
			t.Errorf("MapOrgRole(%q) = %q, want %q", raw, got, identity.RoleStudent)
		}
	}
}

func TestDashboardPath_TotalOverRoles(t *testing.T) {
	seen := make(map[string]identity.Role)
	for _, r := range identity.AllRoles() {
		p := identity.DashboardPath(r)
		if p == "" {
			t.Errorf("DashboardPath(%q) is empty", r)
		}
		if !strings.HasPrefix(p, "/dashboard/") {
			t.Errorf("DashboardPath(%q) = %q, want /dashboard/ prefix", r, p)
		}
		if prev, dup := seen[p]; dup {
			t.Errorf("DashboardPath(%q) = %q collides with role %q", r, p, prev)
		}
		seen[p] = r
	}
}

func TestDashboardPath_UnknownRoleFallsBackToStudent(t *testing.T) {
	if got := identity.DashboardPath(identity.Role("ghost")); got != "/dashboard/student" {
		t.Errorf("DashboardPath(ghost) = %q, want /dashboard/student", got)
	}
}

func TestSession_Role(t *testing.T) {
	s := identity.Session{SignedIn: true, OrgID: "org_1", OrgRole: "org:dean"}
	if got := s.Role(); got != identity.RoleDean {
		t.Errorf("Role() = %q, want %q", got, identity.RoleDean)
	}
}

func TestSession_NeedsActivation(t *testing.T) {
	mid := identity.Session{SignedIn: true, Loaded: true}
	if !mid.NeedsActivation() {
		t.Error("signed-in session without org should need activation")
	}

	done := identity.Session{SignedIn: true, Loaded: true, OrgID: "org_1"}
	if done.NeedsActivation() {
		t.Error("session with active org should not need activation")
	}

	out := identity.Session{Loaded: true}
	if out.NeedsActivation() {
		t.Error("signed-out session should not need activation")
	}
}
