package guard_test

import (
	"testing"

	identity "github.com/campuskit/identity-go"
	"github.com/campuskit/identity-go/guard"
	"github.com/campuskit/identity-go/routes"
)

func signedIn(orgRole string) identity.Session {
	return identity.Session{SignedIn: true, Loaded: true, UserID: "user_1", OrgID: "org_1", OrgRole: orgRole}
}

func TestEvaluate_PublicBypass(t *testing.T) {
	e := guard.New(routes.New())
	sessions := []identity.Session{
		{},
		{SignedIn: true, Loaded: true},
		signedIn("org:student"),
		{SignedIn: true, OrgRole: "garbage"},
	}
	public := []string{"/", "/sign-in", "/sign-up/verify", "/onboarding", "/api/webhooks/provider", "/api/health"}
	for _, p := range public {
		for _, s := range sessions {
			d := e.Evaluate(p, s)
			if !d.Allowed() || !d.Public {
				t.Errorf("Evaluate(%q, %+v) = %+v, want public allow", p, s, d)
			}
		}
	}
}

func TestEvaluate_RequiresSession(t *testing.T) {
	e := guard.New(routes.New())
	d := e.Evaluate("/dashboard/student", identity.Session{Loaded: true})
	if d.Kind != guard.KindRequireSession {
		t.Errorf("Kind = %v, want KindRequireSession", d.Kind)
	}
}

func TestEvaluate_NoOrgRedirectsToOnboarding(t *testing.T) {
	e := guard.New(routes.New())
	s := identity.Session{SignedIn: true, Loaded: true, UserID: "user_1"}

	d := e.Evaluate("/dashboard/admin", s)
	if d.Kind != guard.KindRedirectOnboarding {
		t.Fatalf("Kind = %v, want KindRedirectOnboarding", d.Kind)
	}
	if d.Path != routes.OnboardingPath {
		t.Errorf("Path = %q, want %q", d.Path, routes.OnboardingPath)
	}
}

func TestEvaluate_NoOrgOutsideDashboardIsAllowed(t *testing.T) {
	e := guard.New(routes.New())
	s := identity.Session{SignedIn: true, Loaded: true, UserID: "user_1"}

	d := e.Evaluate("/settings", s)
	if !d.Allowed() {
		t.Errorf("Evaluate(/settings) = %+v, want allow for org-less session outside dashboard", d)
	}
}

func TestEvaluate_HODAllowedOnFacultyPages(t *testing.T) {
	e := guard.New(routes.New())
	d := e.Evaluate("/dashboard/faculty/leave", signedIn("org:hod"))
	if !d.Allowed() {
		t.Errorf("Evaluate() = %+v, want allow: hod is in the faculty allow-list", d)
	}
}

func TestEvaluate_StudentBouncedFromAdmin(t *testing.T) {
	e := guard.New(routes.New())
	d := e.Evaluate("/dashboard/admin", signedIn("org:student"))
	if d.Kind != guard.KindRedirectDashboard {
		t.Fatalf("Kind = %v, want KindRedirectDashboard", d.Kind)
	}
	if d.Path != "/dashboard/student" {
		t.Errorf("Path = %q, want /dashboard/student", d.Path)
	}
}

func TestEvaluate_FailClosedAcrossAllRolesAndSegments(t *testing.T) {
	table := routes.New()
	e := guard.New(table)
	for _, seg := range table.Segments() {
		for _, role := range identity.AllRoles() {
			d := e.Evaluate(routes.DashboardPrefix+"/"+seg, signedIn(string(role)))
			if table.Allows(seg, role) {
				if !d.Allowed() {
					t.Errorf("role %q on segment %q: got %+v, want allow", role, seg, d)
				}
				continue
			}
			if d.Kind != guard.KindRedirectDashboard {
				t.Errorf("role %q on segment %q: Kind = %v, want KindRedirectDashboard", role, seg, d.Kind)
			}
			if d.Path != identity.DashboardPath(role) {
				t.Errorf("role %q on segment %q: Path = %q, want %q", role, seg, d.Path, identity.DashboardPath(role))
			}
		}
	}
}

func TestEvaluate_UnknownRoleTreatedAsStudent(t *testing.T) {
	e := guard.New(routes.New())

	d := e.Evaluate("/dashboard/admin", signedIn("org:superuser"))
	if d.Kind != guard.KindRedirectDashboard || d.Path != "/dashboard/student" {
		t.Errorf("Evaluate() = %+v, want redirect to /dashboard/student", d)
	}

	d = e.Evaluate("/dashboard/student/results", signedIn(""))
	if !d.Allowed() {
		t.Errorf("Evaluate() = %+v, want allow: empty role maps to student", d)
	}
}

func TestEvaluate_UnregisteredSegmentAdmitsActiveSession(t *testing.T) {
	e := guard.New(routes.New())
	d := e.Evaluate("/dashboard/reports/weekly", signedIn("org:faculty"))
	if !d.Allowed() {
		t.Errorf("Evaluate() = %+v, want allow for unregistered segment", d)
	}
}

func TestEvaluate_BareDashboardPrefixAllowed(t *testing.T) {
	e := guard.New(routes.New())
	d := e.Evaluate("/dashboard", signedIn("org:student"))
	if !d.Allowed() {
		t.Errorf("Evaluate(/dashboard) = %+v, want allow", d)
	}
}

func TestEvaluate_PublicRuleWinsOverOnboarding(t *testing.T) {
	e := guard.New(routes.New())
	s := identity.Session{SignedIn: true, Loaded: true, UserID: "user_1"}

	d := e.Evaluate("/onboarding", s)
	if !d.Allowed() || !d.Public {
		t.Errorf("Evaluate(/onboarding) = %+v, want public allow even without org", d)
	}
}

func TestKindString(t *testing.T) {
	kinds := map[guard.Kind]string{
		guard.KindAllow:              "allow",
		guard.KindRequireSession:     "require_session",
		guard.KindRedirectOnboarding: "redirect_onboarding",
		guard.KindRedirectDashboard:  "redirect_dashboard",
	}
	for k, want := range kinds {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}
