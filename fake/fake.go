// Package fake provides in-memory implementations of the identity
// interfaces for testing.
//
// Use fake.NewClient() in unit tests to avoid network calls and external
// dependencies. The fake verifier treats the token string as a user ID.
package fake

import (
	"context"
	"fmt"
	"sync"

	identity "github.com/campuskit/identity-go"
	"github.com/campuskit/identity-go/tokencache"
)

// Option configures the fake provider.
type Option func(*state)

type state struct {
	mu          sync.RWMutex
	memberships map[string][]identity.OrgMembership // userID → memberships
	activeOrg   map[string]string                   // userID → active org
	tokens      map[string]string                   // template → token
	current     string                              // signed-in user
}

// WithUser adds a fake user with the given org memberships.
func WithUser(userID string, memberships ...identity.OrgMembership) Option {
	return func(s *state) {
		s.memberships[userID] = memberships
	}
}

// WithSignedIn marks userID as the signed-in session holder.
func WithSignedIn(userID string) Option {
	return func(s *state) {
		s.current = userID
	}
}

// WithActiveOrg pre-activates an org for a user.
func WithActiveOrg(userID, orgID string) Option {
	return func(s *state) {
		s.activeOrg[userID] = orgID
	}
}

// WithTemplateToken registers the token minted for a session template.
// The default template ("") always mints without being registered.
func WithTemplateToken(template, token string) Option {
	return func(s *state) {
		s.tokens[template] = token
	}
}

// NewClient creates an *identity.Client with all services wired to
// in-memory fakes.
func NewClient(opts ...Option) *identity.Client {
	s := newState(opts...)

	c, _ := identity.NewClient(
		identity.Config{APIBaseURL: "fake://localhost", PublishableKey: "pk_test_fake"},
		identity.WithProvider(&fakeProvider{s: s}),
		identity.WithTokenVerifier(&fakeVerifier{s: s}),
		identity.WithTokenStore(tokencache.NewMemoryStore()),
	)
	return c
}

// NewProvider creates a bare fake identity.Provider for tests that wire
// components directly instead of going through the Client.
func NewProvider(opts ...Option) identity.Provider {
	return &fakeProvider{s: newState(opts...)}
}

func newState(opts ...Option) *state {
	s := &state{
		memberships: make(map[string][]identity.OrgMembership),
		activeOrg:   make(map[string]string),
		tokens:      make(map[string]string),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// sessionFor builds the session a re-minted token would carry for userID.
// Callers hold at least a read lock.
func (s *state) sessionFor(userID string) identity.Session {
	sess := identity.Session{SignedIn: true, Loaded: true, UserID: userID}
	orgID, ok := s.activeOrg[userID]
	if !ok {
		return sess
	}
	sess.OrgID = orgID
	for _, m := range s.memberships[userID] {
		if m.OrgID == orgID {
			sess.OrgRole = m.OrgRole
			break
		}
	}
	return sess
}

// --- Provider ---

type fakeProvider struct{ s *state }

var _ identity.Provider = (*fakeProvider)(nil)

func (f *fakeProvider) Session(_ context.Context) (identity.Session, error) {
	f.s.mu.RLock()
	defer f.s.mu.RUnlock()

	if f.s.current == "" {
		return identity.Session{Loaded: true}, nil
	}
	return f.s.sessionFor(f.s.current), nil
}

func (f *fakeProvider) Token(_ context.Context, template string) (string, error) {
	f.s.mu.RLock()
	defer f.s.mu.RUnlock()

	if tok, ok := f.s.tokens[template]; ok {
		return tok, nil
	}
	if template == "" {
		return "fake_session_token", nil
	}
	return "", fmt.Errorf("identity/fake: no token minted for template %q", template)
}

func (f *fakeProvider) ListOrgMemberships(_ context.Context, userID string, opts identity.ListOptions) ([]identity.OrgMembership, int, error) {
	f.s.mu.RLock()
	defer f.s.mu.RUnlock()

	all := f.s.memberships[userID]
	total := len(all)

	page := opts.Page
	if page < 1 {
		page = 1
	}
	size := opts.PageSize
	if size < 1 {
		size = 20
	}

	start := (page - 1) * size
	if start >= total {
		return nil, total, nil
	}
	end := start + size
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (f *fakeProvider) SetActiveOrg(_ context.Context, orgID string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	if f.s.current == "" {
		return fmt.Errorf("identity/fake: no signed-in user")
	}
	for _, m := range f.s.memberships[f.s.current] {
		if m.OrgID == orgID {
			f.s.activeOrg[f.s.current] = orgID
			return nil
		}
	}
	return fmt.Errorf("identity/fake: user %q is not a member of org %q", f.s.current, orgID)
}

// --- TokenVerifier ---

type fakeVerifier struct{ s *state }

var _ identity.TokenVerifier = (*fakeVerifier)(nil)

func (f *fakeVerifier) Verify(_ context.Context, token string) (identity.Session, error) {
	f.s.mu.RLock()
	defer f.s.mu.RUnlock()

	// Treat the token string as a userID for simplicity
	if _, ok := f.s.memberships[token]; !ok {
		return identity.Session{}, fmt.Errorf("%w: unknown token %q", identity.ErrUnauthenticated, token)
	}
	return f.s.sessionFor(token), nil
}
