// Package tokencache persists opaque session tokens and absorbs storage
// faults. Secure storage can legitimately be unavailable (a web preview of
// a native runtime, an unreachable cache), and the auth flow must fall
// back to interactive sign-in instead of failing, so a failed read
// degrades to "no cached token" and a failed write to a no-op.
//
// The cache exclusively owns its backing store. Components that need a
// token, the device-trust gate included, go through Cache; nothing else
// reads the store directly.
package tokencache

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	identity "github.com/campuskit/identity-go"
	"github.com/campuskit/identity-go/metrics"
)

// Cache wraps a TokenStore with the fault-absorption contract.
type Cache struct {
	store   identity.TokenStore
	name    string
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures the Cache.
type Option func(*Cache)

// WithLogger sets a structured logger for absorbed-fault reporting.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// WithMetrics records hits and misses to the given instruments.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// WithName labels this cache in logs and metrics. Default "memory".
func WithName(name string) Option {
	return func(c *Cache) { c.name = name }
}

// New creates a token cache over the given store.
func New(store identity.TokenStore, opts ...Option) *Cache {
	c := &Cache{store: store, name: "memory", logger: slog.Default()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Get returns the cached token under key. Misses and storage failures are
// indistinguishable to callers: both yield ("", false). Failures are
// logged at debug, never propagated.
func (c *Cache) Get(ctx context.Context, key string) (string, bool) {
	v, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Debug("identity/tokencache: read absorbed", "key", key, "error", err)
		c.miss()
		return "", false
	}
	if v == "" {
		c.miss()
		return "", false
	}
	if c.metrics != nil {
		c.metrics.RecordTokenCacheHit(c.name)
	}
	return v, true
}

// Save stores token under key, overwriting any previous value. Storage
// failures are absorbed; the next Get simply misses.
func (c *Cache) Save(ctx context.Context, key, token string) {
	if err := c.store.Set(ctx, key, token); err != nil {
		c.logger.Debug("identity/tokencache: write absorbed", "key", key, "error", err)
	}
}

// Clear removes the token under key. Storage failures are absorbed.
func (c *Cache) Clear(ctx context.Context, key string) {
	if err := c.store.Delete(ctx, key); err != nil {
		c.logger.Debug("identity/tokencache: delete absorbed", "key", key, "error", err)
	}
}

func (c *Cache) miss() {
	if c.metrics != nil {
		c.metrics.RecordTokenCacheMiss(c.name)
	}
}

// MemoryStore is an in-process TokenStore for tests and single-process
// deployments.
type MemoryStore struct {
	mu sync.RWMutex
	m  map[string]string
}

// compile-time check
var _ identity.TokenStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string]string)}
}

// Get returns the value under key, or "" when absent.
func (s *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m[key], nil
}

// Set stores value under key.
func (s *MemoryStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}

// Delete removes key.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

// Entries returns a sorted snapshot of the persisted tokens. Diagnostic
// surface for tests and local tooling.
func (s *MemoryStore) Entries() []identity.TokenCacheEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]identity.TokenCacheEntry, 0, len(s.m))
	for k, v := range s.m {
		entries = append(entries, identity.TokenCacheEntry{Key: k, Value: v})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries
}
