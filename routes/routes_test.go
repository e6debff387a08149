package routes_test

import (
	"strings"
	"testing"

	identity "github.com/campuskit/identity-go"
	"github.com/campuskit/identity-go/routes"
)

func TestMatchPublic_AllowListedPaths(t *testing.T) {
	table := routes.New()
	public := []string{
		"/",
		"/sign-in",
		"/sign-in/sso-callback",
		"/sign-up",
		"/sign-up/verify-email",
		"/onboarding",
		"/api/webhooks/provider",
		"/api/health",
	}
	for _, p := range public {
		if !table.MatchPublic(p) {
			t.Errorf("MatchPublic(%q) = false, want true", p)
		}
	}
}

func TestMatchPublic_ProtectedPaths(t *testing.T) {
	table := routes.New()
	protected := []string{
		"/dashboard",
		"/dashboard/admin",
		"/dashboard/student/results",
		"/api/students",
		"/settings",
	}
	for _, p := range protected {
		if table.MatchPublic(p) {
			t.Errorf("MatchPublic(%q) = true, want false", p)
		}
	}
}

func TestMatchPublic_RootIsExact(t *testing.T) {
	table := routes.New()
	if table.MatchPublic("/anything") {
		t.Error(`the "/" pattern must match only the root path`)
	}
}

func TestSegment(t *testing.T) {
	cases := map[string]string{
		"/dashboard/admin":           "admin",
		"/dashboard/faculty/leave":   "faculty",
		"/dashboard/student/results": "student",
		"/dashboard":                 "",
		"/dashboard/":                "",
		"/onboarding":                "",
		"/":                          "",
	}
	for path, want := range cases {
		if got := routes.Segment(path); got != want {
			t.Errorf("Segment(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestAllows_FailClosed(t *testing.T) {
	table := routes.New()
	for _, seg := range table.Segments() {
		allowed, _ := table.AllowedRoles(seg)
		for _, role := range identity.AllRoles() {
			inList := false
			for _, a := range allowed {
				if a == role {
					inList = true
				}
			}
			if got := table.Allows(seg, role); got != inList {
				t.Errorf("Allows(%q, %q) = %v, want %v", seg, role, got, inList)
			}
		}
	}
}

func TestAllows_UnregisteredSegmentAdmitsAnyRole(t *testing.T) {
	table := routes.New()
	for _, role := range identity.AllRoles() {
		if !table.Allows("reports", role) {
			t.Errorf("Allows(reports, %q) = false, want true for unregistered segment", role)
		}
	}
}

func TestValidate_DefaultTable(t *testing.T) {
	if err := routes.New().Validate(); err != nil {
		t.Fatalf("Validate() error on default table: %v", err)
	}
}

func TestValidate_NoPrefixOverlap(t *testing.T) {
	table := routes.New()
	segs := table.Segments()
	for _, a := range segs {
		for _, b := range segs {
			if a == b {
				continue
			}
			if strings.HasPrefix(routes.DashboardPrefix+"/"+b, routes.DashboardPrefix+"/"+a) {
				t.Errorf("registered prefix %q is a prefix of %q", a, b)
			}
		}
	}
}

func TestValidate_RejectsOverlappingSegments(t *testing.T) {
	table := routes.New(
		routes.WithSegmentRoles("administration", identity.RoleAdmin),
	)
	if err := table.Validate(); err == nil {
		t.Error("Validate() should reject a segment that extends another registered prefix")
	}
}

func TestValidate_RejectsEmptyAllowList(t *testing.T) {
	table := routes.New(routes.WithSegmentRoles("archive"))
	if err := table.Validate(); err == nil {
		t.Error("Validate() should reject a registered segment with an empty allow-list")
	}
}

func TestValidate_RejectsRoleLockedOutOfOwnDashboard(t *testing.T) {
	table := routes.New(
		routes.WithSegmentRoles("student", identity.RoleAdmin),
	)
	if err := table.Validate(); err == nil {
		t.Error("Validate() should reject a table that denies a role its own dashboard")
	}
}

func TestEveryRoleDashboardIsRegistered(t *testing.T) {
	table := routes.New()
	for _, r := range identity.AllRoles() {
		seg := routes.Segment(identity.DashboardPath(r))
		if _, ok := table.AllowedRoles(seg); !ok {
			t.Errorf("canonical dashboard segment %q for role %q is unregistered", seg, r)
		}
	}
}
