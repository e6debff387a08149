// Package routes holds the static routing tables the guards evaluate: the
// public-route allow-list, the protected dashboard-segment allow-lists, and
// the onboarding path. The tables are configuration, not state; Validate
// enforces their invariants once at composition time.
package routes

import (
	"fmt"
	"strings"

	identity "github.com/campuskit/identity-go"
)

// DashboardPrefix is the path prefix shared by every protected dashboard
// route.
const DashboardPrefix = "/dashboard"

// OnboardingPath is where signed-in callers without an active org are sent.
const OnboardingPath = "/onboarding"

// PublicPatterns is the default public-route allow-list. A trailing '*'
// matches any suffix, nested segments included; all other patterns match
// exactly.
func PublicPatterns() []string {
	return []string{
		"/",
		"/sign-in*",
		"/sign-up*",
		"/onboarding*",
		"/api/webhooks*",
		"/api/health",
	}
}

// defaultSegmentRoles is the production dashboard-segment allow-list table.
// A segment absent from the table admits any authenticated role with an
// active org; a registered segment admits only the listed roles.
func defaultSegmentRoles() map[string][]identity.Role {
	return map[string][]identity.Role{
		"admin":      {identity.RoleAdmin},
		"compliance": {identity.RoleComplianceOfficer, identity.RoleDean, identity.RoleAdmin, identity.RoleManagement},
		"faculty":    {identity.RoleFaculty, identity.RoleHOD, identity.RoleDean, identity.RoleAdmin},
		"hod":        {identity.RoleHOD, identity.RoleDean, identity.RoleAdmin},
		"dean":       {identity.RoleDean, identity.RoleAdmin},
		"management": {identity.RoleManagement, identity.RoleAdmin},
		"student":    {identity.RoleStudent},
	}
}

// Table is the routing configuration evaluated by the guard and gate
// engines. Construct with New, customize with Options, then call Validate
// before serving traffic.
type Table struct {
	public   []string
	segments map[string][]identity.Role
}

// Option customizes a Table.
type Option func(*Table)

// WithPublicPatterns replaces the public-route allow-list.
func WithPublicPatterns(patterns []string) Option {
	return func(t *Table) { t.public = patterns }
}

// WithSegmentRoles replaces the allow-list for one dashboard segment.
func WithSegmentRoles(segment string, roles ...identity.Role) Option {
	return func(t *Table) { t.segments[segment] = roles }
}

// New returns the default production table with any options applied.
func New(opts ...Option) *Table {
	t := &Table{
		public:   PublicPatterns(),
		segments: defaultSegmentRoles(),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// MatchPublic reports whether path matches the public allow-list. Public
// paths are admitted before any session check.
func (t *Table) MatchPublic(path string) bool {
	for _, pat := range t.public {
		if stem, ok := strings.CutSuffix(pat, "*"); ok {
			if strings.HasPrefix(path, stem) {
				return true
			}
			continue
		}
		if path == pat {
			return true
		}
	}
	return false
}

// Segment extracts the first path segment after the dashboard prefix.
// Returns "" for paths outside the dashboard and for the bare prefix.
func Segment(path string) string {
	rest, ok := strings.CutPrefix(path, DashboardPrefix+"/")
	if !ok {
		return ""
	}
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	return rest
}

// AllowedRoles returns the allow-list registered for a dashboard segment.
// ok=false means the segment is unregistered and admits any authenticated
// role with an active org.
func (t *Table) AllowedRoles(segment string) ([]identity.Role, bool) {
	roles, ok := t.segments[segment]
	return roles, ok
}

// Allows reports whether role may enter the given dashboard segment.
// Registered segments fail closed: a role absent from the allow-list is
// denied, never admitted by omission.
func (t *Table) Allows(segment string, role identity.Role) bool {
	roles, ok := t.segments[segment]
	if !ok {
		return true
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// Segments returns the registered dashboard segments in no particular
// order.
func (t *Table) Segments() []string {
	out := make([]string, 0, len(t.segments))
	for s := range t.segments {
		out = append(out, s)
	}
	return out
}

// Validate enforces the table's configuration invariants:
//
//   - every registered segment is a bare path segment;
//   - no two registered dashboard prefixes overlap, i.e. neither is a
//     string prefix of the other;
//   - every registered segment has a non-empty allow-list (an empty list
//     would be a segment nobody can enter);
//   - every role is admitted to its own canonical dashboard segment, since
//     bouncing a role to a dashboard that rejects it would loop forever.
func (t *Table) Validate() error {
	segs := t.Segments()
	for _, s := range segs {
		if s == "" || strings.Contains(s, "/") {
			return fmt.Errorf("routes: invalid dashboard segment %q", s)
		}
		if len(t.segments[s]) == 0 {
			return fmt.Errorf("routes: segment %q has an empty allow-list", s)
		}
	}
	for _, a := range segs {
		for _, b := range segs {
			if a == b {
				continue
			}
			pa := DashboardPrefix + "/" + a
			pb := DashboardPrefix + "/" + b
			if strings.HasPrefix(pb, pa) {
				return fmt.Errorf("routes: dashboard prefix %q overlaps %q", pa, pb)
			}
		}
	}
	for _, r := range identity.AllRoles() {
		seg := Segment(identity.DashboardPath(r))
		if seg == "" {
			return fmt.Errorf("routes: role %q has no dashboard segment", r)
		}
		if !t.Allows(seg, r) {
			return fmt.Errorf("routes: role %q is denied its own dashboard segment %q", r, seg)
		}
	}
	return nil
}
