// Package guard implements the request-time route decision engine for the
// web dashboard. The engine is pure and synchronous: it evaluates an
// already-resolved session against the routing table and returns a
// Decision. Session resolution, redirects, logging, and metrics belong to
// the surrounding adapter (middleware/ginmw).
package guard

import (
	"strings"

	identity "github.com/campuskit/identity-go"
	"github.com/campuskit/identity-go/routes"
)

// Kind enumerates the guard's verdicts.
type Kind int

const (
	// KindAllow admits the request.
	KindAllow Kind = iota

	// KindRequireSession means the path is protected and no verified
	// session was presented. The surrounding auth layer owns the sign-in
	// redirect; the guard never evaluates further rules in this state.
	KindRequireSession

	// KindRedirectOnboarding sends a signed-in caller without an active
	// org to the onboarding flow.
	KindRedirectOnboarding

	// KindRedirectDashboard bounces a caller whose role is outside the
	// segment's allow-list to their own dashboard. A routing correction,
	// not an error.
	KindRedirectDashboard
)

// String returns a stable label for logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindAllow:
		return "allow"
	case KindRequireSession:
		return "require_session"
	case KindRedirectOnboarding:
		return "redirect_onboarding"
	case KindRedirectDashboard:
		return "redirect_dashboard"
	default:
		return "unknown"
	}
}

// Decision is the guard's verdict for one request.
type Decision struct {
	Kind Kind

	// Path is the redirect target for the redirect kinds, empty otherwise.
	Path string

	// Public marks rule-1 allows, where no session was consulted at all.
	Public bool
}

// Allowed reports whether the request may proceed.
func (d Decision) Allowed() bool { return d.Kind == KindAllow }

// Engine evaluates request paths against a validated routing table.
type Engine struct {
	table *routes.Table
}

// New builds an engine over the given table. The table should have passed
// Validate; the engine assumes its invariants hold.
func New(table *routes.Table) *Engine {
	if table == nil {
		table = routes.New()
	}
	return &Engine{table: table}
}

// Evaluate runs the guard rules in their fixed order. Each rule
// short-circuits; reordering them changes the semantics.
//
//  1. Paths on the public allow-list are admitted unconditionally.
//  2. Everything else requires a verified session.
//  3. A session without an active org is redirected to onboarding for any
//     path under the dashboard prefix.
//  4. A registered dashboard segment admits only its allow-listed roles;
//     other roles are bounced to their own dashboard. Registered segments
//     fail closed.
//  5. Otherwise the request is admitted.
func (e *Engine) Evaluate(path string, s identity.Session) Decision {
	if e.table.MatchPublic(path) {
		return Decision{Kind: KindAllow, Public: true}
	}

	if !s.SignedIn {
		return Decision{Kind: KindRequireSession}
	}

	if s.OrgID == "" && strings.HasPrefix(path, routes.DashboardPrefix) {
		return Decision{Kind: KindRedirectOnboarding, Path: routes.OnboardingPath}
	}

	if seg := routes.Segment(path); seg != "" {
		if !e.table.Allows(seg, s.Role()) {
			return Decision{Kind: KindRedirectDashboard, Path: identity.DashboardPath(s.Role())}
		}
	}

	return Decision{Kind: KindAllow}
}
