// Package devicetrust gates the mobile admin surface on whether the
// physical device holds a registered trust token. The check is independent
// of the user session but downstream of it: a valid session on an
// unregistered device still cannot reach protected screens.
//
// States move UNCHECKED -> (REGISTERED | SKIPPED | UNREGISTERED). A device
// is cleared when a trust token is present or the user explicitly skipped
// registration; both are terminal-positive. Only UNREGISTERED blocks
// navigation. Registration itself is an external collaborator that
// eventually writes the trust token; MarkRegistered is its write path.
package devicetrust

import (
	"context"
	"log/slog"
	"sync"
	"time"

	identity "github.com/campuskit/identity-go"
	"github.com/google/uuid"
)

// State is the device trust state.
type State int

const (
	// StateUnchecked means storage has not been consulted yet. Gates hold
	// a loading view while any relevant state is unchecked.
	StateUnchecked State = iota

	// StateRegistered means a trust token is present.
	StateRegistered

	// StateSkipped means the user explicitly skipped registration.
	// Terminal-positive, distinct from registered.
	StateSkipped

	// StateUnregistered means no token and no skip: navigation to
	// protected screens redirects to the registration screen.
	StateUnregistered
)

// String returns a stable label for logs and metrics.
func (s State) String() string {
	switch s {
	case StateUnchecked:
		return "unchecked"
	case StateRegistered:
		return "registered"
	case StateSkipped:
		return "skipped"
	case StateUnregistered:
		return "unregistered"
	default:
		return "unknown"
	}
}

// Cleared reports whether the device may enter protected screens.
func (s State) Cleared() bool { return s == StateRegistered || s == StateSkipped }

// TokenCache is the slice of the token cache this package reads through.
// The cache owns the underlying secure storage; nothing here touches the
// store directly.
type TokenCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Save(ctx context.Context, key, token string)
	Clear(ctx context.Context, key string)
}

// Storage keys. One token key plus one flag key for the skip decision.
const (
	DefaultTokenKey = "device_trust_token"
	DefaultSkipKey  = "device_trust_skipped"
)

// Service evaluates and records device trust for one physical device.
type Service struct {
	cache    TokenCache
	deviceID string
	tokenKey string
	skipKey  string
	logger   *slog.Logger

	mu           sync.RWMutex
	last         State
	registeredAt time.Time
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithDeviceID pins the device identifier. Default is a random UUID per
// process, standing in for a platform device id.
func WithDeviceID(id string) Option {
	return func(s *Service) { s.deviceID = id }
}

// WithKeys overrides the storage keys.
func WithKeys(tokenKey, skipKey string) Option {
	return func(s *Service) {
		s.tokenKey = tokenKey
		s.skipKey = skipKey
	}
}

// New creates a device trust service reading through the given cache.
func New(cache TokenCache, opts ...Option) *Service {
	s := &Service{
		cache:    cache,
		deviceID: uuid.NewString(),
		tokenKey: DefaultTokenKey,
		skipKey:  DefaultSkipKey,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// DeviceID returns the identifier of this device.
func (s *Service) DeviceID() string { return s.deviceID }

// Evaluate re-reads storage and returns the current trust state. Called
// whenever the signed-in flag flips to true and on every segment change,
// so a registration completed on the registration screen is observed the
// moment the user navigates back. Storage faults read as misses, so an
// unavailable store evaluates to UNREGISTERED rather than blocking.
func (s *Service) Evaluate(ctx context.Context) State {
	st := StateUnregistered
	if token, ok := s.cache.Get(ctx, s.tokenKey); ok && token != "" {
		st = StateRegistered
	} else if flag, ok := s.cache.Get(ctx, s.skipKey); ok && flag != "" {
		st = StateSkipped
	}

	s.mu.Lock()
	prev := s.last
	s.last = st
	s.mu.Unlock()

	if prev != st {
		s.logger.Info("identity/devicetrust: state changed",
			"device_id", s.deviceID, "from", prev.String(), "to", st.String())
	}
	return st
}

// Last returns the most recently evaluated state. StateUnchecked before
// the first Evaluate.
func (s *Service) Last() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// Skip records the user's choice to skip registration. The flag persists
// across launches; skipping is terminal-positive until storage is cleared.
func (s *Service) Skip(ctx context.Context) {
	s.cache.Save(ctx, s.skipKey, time.Now().UTC().Format(time.RFC3339))
	s.mu.Lock()
	s.last = StateSkipped
	s.mu.Unlock()
	s.logger.Info("identity/devicetrust: registration skipped", "device_id", s.deviceID)
}

// MarkRegistered stores the trust token issued by the registration
// collaborator. The next Evaluate reports REGISTERED.
func (s *Service) MarkRegistered(ctx context.Context, token string) {
	s.cache.Save(ctx, s.tokenKey, token)
	s.mu.Lock()
	s.last = StateRegistered
	s.registeredAt = time.Now().UTC()
	s.mu.Unlock()
	s.logger.Info("identity/devicetrust: device registered", "device_id", s.deviceID)
}

// Forget clears both the trust token and the skip flag, returning the
// device to UNREGISTERED on the next Evaluate.
func (s *Service) Forget(ctx context.Context) {
	s.cache.Clear(ctx, s.tokenKey)
	s.cache.Clear(ctx, s.skipKey)
	s.mu.Lock()
	s.last = StateUnchecked
	s.registeredAt = time.Time{}
	s.mu.Unlock()
}

// Record returns a snapshot of the device's trust record. RegisteredAt is
// best-effort: it is known only when MarkRegistered ran in this process.
func (s *Service) Record(ctx context.Context) identity.TrustRecord {
	token, ok := s.cache.Get(ctx, s.tokenKey)
	rec := identity.TrustRecord{
		DeviceID:     s.deviceID,
		TokenPresent: ok && token != "",
	}
	if flag, ok := s.cache.Get(ctx, s.skipKey); ok && flag != "" {
		if at, err := time.Parse(time.RFC3339, flag); err == nil {
			rec.SkippedAt = at
		}
	}
	s.mu.RLock()
	rec.RegisteredAt = s.registeredAt
	s.mu.RUnlock()
	return rec
}
