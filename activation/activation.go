// Package activation implements the org auto-activation flow that runs
// between "signed in" and "has active tenant": resolve the user's org
// memberships, activate one, then hand the caller a redirect that must be
// performed as a hard, full-page navigation.
//
// The flow is an explicit state machine. Next is the single transition
// function and is pure; Flow drives it against a live provider,
// single-flighting concurrent runs per user and never auto-retrying a
// terminal state.
package activation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	identity "github.com/campuskit/identity-go"
	"github.com/campuskit/identity-go/audit"
	"github.com/campuskit/identity-go/metrics"
	"golang.org/x/sync/singleflight"
)

// Kind names the states of the activation machine.
type Kind int

const (
	// KindIdle is the zero state before the flow starts.
	KindIdle Kind = iota

	// KindResolving means the membership list is being fetched.
	KindResolving

	// KindActivating means a membership was chosen and SetActiveOrg is in
	// flight.
	KindActivating

	// KindActivated is terminal: the org is active and RedirectPath names
	// the caller's dashboard.
	KindActivated

	// KindNoOrg is terminal: the user holds zero memberships. Requires
	// administrator action; the only affordance is sign-out.
	KindNoOrg

	// KindError is terminal: resolution or activation failed. The raw
	// cause is kept for display; the only affordance is sign-out.
	KindError
)

// String returns a stable label for logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindIdle:
		return "idle"
	case KindResolving:
		return "resolving"
	case KindActivating:
		return "activating"
	case KindActivated:
		return "activated"
	case KindNoOrg:
		return "no_org"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// State is the tagged union the reducer walks.
type State struct {
	Kind Kind

	// Membership is the org chosen for activation. Set from KindActivating
	// onward.
	Membership identity.OrgMembership

	// RedirectPath is the caller's dashboard, set on KindActivated.
	RedirectPath string

	// HardNavigation is always true on KindActivated. The provider
	// re-mints the session token server-side when the active org changes,
	// and only a full page load attaches the re-minted token to the next
	// request; a client-side transition would carry the stale
	// pre-activation token into protected calls. This is a protocol
	// requirement of the provider, not a style choice. Re-verify before
	// dropping it on a different provider.
	HardNavigation bool

	// Err is the terminal cause on KindError, and ErrNoActiveTenant on
	// KindNoOrg.
	Err error
}

// Terminal reports whether the machine can move no further. Terminal
// states are never auto-retried; Reset is the only way out.
func (s State) Terminal() bool {
	return s.Kind == KindActivated || s.Kind == KindNoOrg || s.Kind == KindError
}

// EventKind names the inputs of the activation machine.
type EventKind int

const (
	// EventStart begins the flow.
	EventStart EventKind = iota

	// EventResolved delivers the fully drained membership list.
	EventResolved

	// EventActivated reports that SetActiveOrg succeeded.
	EventActivated

	// EventFailed reports a resolution or activation failure.
	EventFailed
)

// Event is one input to the reducer.
type Event struct {
	Kind        EventKind
	Memberships []identity.OrgMembership
	Err         error
}

// choose picks which membership to activate when the user holds several.
// Deliberately index 0: a disambiguation picker is a known gap, and until
// it exists a deterministic pick keeps the flow idempotent. Keeping the
// choice here means the rest of the machine never has to know.
func choose(ms []identity.OrgMembership) identity.OrgMembership {
	return ms[0]
}

// Next is the transition function of the activation machine. Pure: it
// never touches the provider, the clock, or a logger. Events that do not
// apply to the current state leave it unchanged; terminal states absorb
// everything.
func Next(s State, ev Event) State {
	switch s.Kind {
	case KindIdle:
		if ev.Kind == EventStart {
			return State{Kind: KindResolving}
		}

	case KindResolving:
		switch ev.Kind {
		case EventResolved:
			if len(ev.Memberships) == 0 {
				return State{Kind: KindNoOrg, Err: identity.ErrNoActiveTenant}
			}
			return State{Kind: KindActivating, Membership: choose(ev.Memberships)}
		case EventFailed:
			return State{Kind: KindError, Err: ev.Err}
		}

	case KindActivating:
		switch ev.Kind {
		case EventActivated:
			role := identity.MapOrgRole(s.Membership.OrgRole)
			return State{
				Kind:           KindActivated,
				Membership:     s.Membership,
				RedirectPath:   identity.DashboardPath(role),
				HardNavigation: true,
			}
		case EventFailed:
			return State{Kind: KindError, Membership: s.Membership, Err: ev.Err}
		}

	case KindActivated, KindNoOrg, KindError:
		return s
	}
	return s
}

// Flow runs the activation machine against a live provider.
type Flow struct {
	lister    identity.MembershipLister
	activator identity.OrgActivator
	pageSize  int
	logger    *slog.Logger
	metrics   *metrics.Metrics
	trail     *audit.Trail

	mu     sync.RWMutex
	states map[string]State

	sf singleflight.Group
}

// Option configures the Flow.
type Option func(*Flow)

// WithLogger sets a structured logger for the flow.
func WithLogger(l *slog.Logger) Option {
	return func(f *Flow) { f.logger = l }
}

// WithPageSize sets how many memberships are fetched per page.
func WithPageSize(n int) Option {
	return func(f *Flow) { f.pageSize = n }
}

// WithMetrics records activation outcomes to the given instruments.
func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Flow) { f.metrics = m }
}

// WithAudit records terminal activation outcomes on the given trail.
func WithAudit(t *audit.Trail) Option {
	return func(f *Flow) { f.trail = t }
}

// DefaultPageSize is the membership page size used when none is set.
const DefaultPageSize = 20

// New creates an activation flow over the given provider surfaces.
func New(lister identity.MembershipLister, activator identity.OrgActivator, opts ...Option) *Flow {
	f := &Flow{
		lister:    lister,
		activator: activator,
		pageSize:  DefaultPageSize,
		logger:    slog.Default(),
		states:    make(map[string]State),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Run executes the flow for one user and returns the resulting state.
// Concurrent calls for the same user share a single execution; a later
// call after a terminal outcome returns that outcome without touching the
// provider again. Domain failures live in the returned State, not in the
// error: a non-nil error means Run itself could not proceed.
func (f *Flow) Run(ctx context.Context, userID string) (State, error) {
	if userID == "" {
		return State{}, fmt.Errorf("identity/activation: user id is required")
	}

	f.mu.RLock()
	if st, ok := f.states[userID]; ok && st.Terminal() {
		f.mu.RUnlock()
		return st, nil
	}
	f.mu.RUnlock()

	// singleflight keeps re-entrant triggers (auth-state change, segment
	// change, remount) from racing duplicate activations for one user.
	v, err, _ := f.sf.Do(userID, func() (interface{}, error) {
		started := time.Now()
		st := f.run(ctx, userID)
		if f.metrics != nil {
			f.metrics.RecordActivation(st.Kind.String(), time.Since(started).Seconds())
		}
		if f.trail != nil {
			ev := audit.Event{
				Action: audit.ActionActivation,
				UserID: userID,
				OrgID:  st.Membership.OrgID,
				Result: st.Kind.String(),
			}
			if st.Err != nil {
				ev.Error = st.Err.Error()
			}
			f.trail.Record(ev)
		}
		f.mu.Lock()
		f.states[userID] = st
		f.mu.Unlock()
		return st, nil
	})
	if err != nil {
		return State{}, fmt.Errorf("identity/activation: %w", err)
	}
	return v.(State), nil
}

// Current returns the last state recorded for a user. ok=false means the
// flow never ran for them.
func (f *Flow) Current(userID string) (State, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	st, ok := f.states[userID]
	return st, ok
}

// Reset forgets the recorded state for a user. Called on sign-out so the
// next sign-in starts from idle; this is the only path out of a terminal
// state.
func (f *Flow) Reset(userID string) {
	f.mu.Lock()
	delete(f.states, userID)
	f.mu.Unlock()
}

func (f *Flow) run(ctx context.Context, userID string) State {
	st := Next(State{}, Event{Kind: EventStart})

	ms, err := f.resolveAll(ctx, userID)
	if err != nil {
		st = Next(st, Event{Kind: EventFailed, Err: fmt.Errorf("%w: %v", identity.ErrTenantActivationFailed, err)})
		f.logger.Error("identity/activation: membership resolution failed", "user_id", userID, "error", err)
		return st
	}

	st = Next(st, Event{Kind: EventResolved, Memberships: ms})
	if st.Kind == KindNoOrg {
		f.logger.Warn("identity/activation: user holds no org membership", "user_id", userID)
		return st
	}

	if err := f.activator.SetActiveOrg(ctx, st.Membership.OrgID); err != nil {
		st = Next(st, Event{Kind: EventFailed, Err: fmt.Errorf("%w: %v", identity.ErrTenantActivationFailed, err)})
		f.logger.Error("identity/activation: set active org failed",
			"user_id", userID, "org_id", st.Membership.OrgID, "error", err)
		return st
	}

	st = Next(st, Event{Kind: EventActivated})
	f.logger.Info("identity/activation: org activated",
		"user_id", userID, "org_id", st.Membership.OrgID, "redirect", st.RedirectPath)
	return st
}

// resolveAll drains every membership page before anything acts on the
// list. Acting on a partial page could activate the wrong org.
func (f *Flow) resolveAll(ctx context.Context, userID string) ([]identity.OrgMembership, error) {
	var all []identity.OrgMembership
	for page := 1; ; page++ {
		ms, total, err := f.lister.ListOrgMemberships(ctx, userID, identity.ListOptions{Page: page, PageSize: f.pageSize})
		if err != nil {
			return nil, fmt.Errorf("list memberships page %d: %w", page, err)
		}
		all = append(all, ms...)
		if len(all) >= total || len(ms) == 0 {
			return all, nil
		}
	}
}
