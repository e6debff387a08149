// Package authgate implements the mobile auth gate: the client-side
// analogue of the web route guard, evaluated on navigation-segment changes
// rather than per request. Mobile installs are single-tenant, so "device
// registered" stands in for "org active"; the admin app additionally gates
// protected segments on device trust.
//
// Decide is the pure decision function over one input snapshot. Gate
// drives it: it memoizes the segment slice into a stable key, holds a
// neutral loading state until session, trust, and navigator readiness are
// all known, and discards resolutions that finish after a newer trigger.
package authgate

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	identity "github.com/campuskit/identity-go"
	"github.com/campuskit/identity-go/devicetrust"
	"github.com/campuskit/identity-go/metrics"
)

// Kind names the gate's output states.
type Kind int

const (
	// KindLoading holds the neutral loading view. Emitted until session
	// load, trust resolution, and navigator readiness are simultaneously
	// true; deciding earlier flashes a wrong screen whose mount can fire
	// its own data fetches before the redirect lands.
	KindLoading Kind = iota

	// KindReady renders the current segment.
	KindReady

	// KindRedirectSignIn sends a signed-out caller to the sign-in stack.
	KindRedirectSignIn

	// KindRedirectHome sends a signed-in caller off the auth screens into
	// the app.
	KindRedirectHome

	// KindRedirectRegistration sends an untrusted device to the
	// registration screen.
	KindRedirectRegistration
)

// String returns a stable label for logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindLoading:
		return "loading"
	case KindReady:
		return "ready"
	case KindRedirectSignIn:
		return "redirect_sign_in"
	case KindRedirectHome:
		return "redirect_home"
	case KindRedirectRegistration:
		return "redirect_registration"
	default:
		return "unknown"
	}
}

// Decision is the gate's verdict for the current inputs.
type Decision struct {
	Kind Kind

	// Target is the navigation destination for the redirect kinds.
	Target string
}

// Inputs is the snapshot a decision derives from.
type Inputs struct {
	Session identity.Session

	// SegmentKey is the navigation segments joined with "/". Segment
	// slices are rebuilt on every render; the joined key is the stable
	// form safe to compare and depend on.
	SegmentKey string

	Trust          devicetrust.State
	NavigatorReady bool
}

// Config names the navigation groups and redirect targets.
type Config struct {
	// AuthSegment is the navigation group holding the sign-in screens.
	AuthSegment string

	// ProtectedSegment is the navigation group requiring a session.
	ProtectedSegment string

	// RegistrationSegment is the screen inside the protected group where
	// device registration happens. Exempt from the trust redirect, or the
	// registration screen could never mount.
	RegistrationSegment string

	SignInTarget       string
	HomeTarget         string
	RegistrationTarget string

	// RequireDeviceTrust gates protected segments on device trust. On for
	// the admin app, off for the student shell.
	RequireDeviceTrust bool
}

func (c Config) withDefaults() Config {
	if c.AuthSegment == "" {
		c.AuthSegment = "(auth)"
	}
	if c.ProtectedSegment == "" {
		c.ProtectedSegment = "(protected)"
	}
	if c.RegistrationSegment == "" {
		c.RegistrationSegment = "register-device"
	}
	if c.SignInTarget == "" {
		c.SignInTarget = "/(auth)/sign-in"
	}
	if c.HomeTarget == "" {
		c.HomeTarget = "/(protected)/home"
	}
	if c.RegistrationTarget == "" {
		c.RegistrationTarget = "/(protected)/register-device"
	}
	return c
}

// Decide computes the gate's verdict for one input snapshot. Pure; the
// Gate owns resolving the inputs.
func Decide(in Inputs, cfg Config) Decision {
	cfg = cfg.withDefaults()

	if !in.NavigatorReady || !in.Session.Loaded {
		return Decision{Kind: KindLoading}
	}
	if cfg.RequireDeviceTrust && in.Session.SignedIn && in.Trust == devicetrust.StateUnchecked {
		return Decision{Kind: KindLoading}
	}

	first, _, _ := strings.Cut(in.SegmentKey, "/")
	inAuth := first == cfg.AuthSegment
	inProtected := first == cfg.ProtectedSegment
	onRegistration := inProtected && strings.HasSuffix(in.SegmentKey, cfg.RegistrationSegment)

	if !in.Session.SignedIn {
		if inProtected {
			return Decision{Kind: KindRedirectSignIn, Target: cfg.SignInTarget}
		}
		return Decision{Kind: KindReady}
	}

	if cfg.RequireDeviceTrust && inProtected && !onRegistration && !in.Trust.Cleared() {
		return Decision{Kind: KindRedirectRegistration, Target: cfg.RegistrationTarget}
	}

	if inAuth {
		return Decision{Kind: KindRedirectHome, Target: cfg.HomeTarget}
	}

	return Decision{Kind: KindReady}
}

// TrustEvaluator re-reads device trust state. devicetrust.Service
// implements it.
type TrustEvaluator interface {
	Evaluate(ctx context.Context) devicetrust.State
}

// Gate drives Decide against live inputs. All trigger methods are safe for
// concurrent use; each re-resolves the async inputs and recomputes the
// decision.
type Gate struct {
	cfg     Config
	source  identity.SessionSource
	trust   TrustEvaluator
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu        sync.Mutex
	gen       uint64
	in        Inputs
	last      Decision
	evaluated bool
}

// Option configures the Gate.
type Option func(*Gate)

// WithConfig sets the navigation groups and targets.
func WithConfig(cfg Config) Option {
	return func(g *Gate) { g.cfg = cfg }
}

// WithDeviceTrust wires the device-trust evaluator and turns the trust
// requirement on.
func WithDeviceTrust(t TrustEvaluator) Option {
	return func(g *Gate) {
		g.trust = t
		g.cfg.RequireDeviceTrust = true
	}
}

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gate) { g.logger = l }
}

// WithMetrics records decision transitions to the given instruments.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gate) { g.metrics = m }
}

// New creates a gate over the given session source.
func New(source identity.SessionSource, opts ...Option) *Gate {
	g := &Gate{source: source, logger: slog.Default()}
	for _, o := range opts {
		o(g)
	}
	g.cfg = g.cfg.withDefaults()
	return g
}

// SegmentsChanged applies a navigation-segment change and returns the
// resulting decision. The slice is collapsed to a joined key first:
// navigation libraries rebuild the segment array on every render, and
// re-running the decision for a referentially fresh but equal slice is
// the classic infinite-redirect loop.
func (g *Gate) SegmentsChanged(ctx context.Context, segments []string) Decision {
	key := strings.Join(segments, "/")

	g.mu.Lock()
	if g.evaluated && g.in.SegmentKey == key {
		d := g.last
		g.mu.Unlock()
		return d
	}
	g.in.SegmentKey = key
	g.mu.Unlock()

	return g.refresh(ctx)
}

// NavigatorReadyChanged records whether the navigator is mounted. Until it
// is, every decision is the loading state: redirecting before the
// navigator is ready is a fatal no-op, so the gate refuses to decide
// rather than assuming it away.
func (g *Gate) NavigatorReadyChanged(ctx context.Context, ready bool) Decision {
	g.mu.Lock()
	if g.in.NavigatorReady == ready && g.evaluated {
		d := g.last
		g.mu.Unlock()
		return d
	}
	g.in.NavigatorReady = ready
	g.mu.Unlock()

	return g.refresh(ctx)
}

// AuthStateChanged is invoked when the provider pushes a new auth state.
func (g *Gate) AuthStateChanged(ctx context.Context) Decision {
	return g.refresh(ctx)
}

// Decision returns the current decision without re-evaluating.
func (g *Gate) Decision() Decision {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}

// refresh re-resolves session and trust, then recomputes the decision.
// In-flight resolutions are not aborted when a newer trigger arrives;
// instead each refresh captures a generation and a resolution that
// finishes under a stale generation is discarded, so a slow call can
// never overwrite a newer decision.
func (g *Gate) refresh(ctx context.Context) Decision {
	g.mu.Lock()
	g.gen++
	gen := g.gen
	g.mu.Unlock()

	sess, err := g.source.Session(ctx)
	if err != nil {
		// An unresolved session decides nothing: stay on the loading
		// state instead of guessing signed-out and bouncing the user.
		g.logger.Warn("identity/authgate: session resolution failed", "error", err)
		sess = identity.Session{}
	}

	trust := devicetrust.StateUnchecked
	if g.trust != nil && sess.SignedIn {
		trust = g.trust.Evaluate(ctx)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gen != gen {
		return g.last
	}
	g.in.Session = sess
	g.in.Trust = trust

	d := Decide(g.in, g.cfg)
	if d != g.last {
		g.logger.Info("identity/authgate: decision changed",
			"from", g.last.Kind.String(), "to", d.Kind.String(), "segments", g.in.SegmentKey)
		if g.metrics != nil {
			g.metrics.RecordGateDecision(d.Kind.String())
		}
	}
	g.last = d
	g.evaluated = true
	return d
}
