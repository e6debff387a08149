// Package tokensource fetches provider session tokens by template name.
// A named template is attempted first and falls back to the default token
// when unavailable; successful tokens are reused for a short TTL and
// concurrent fetches for the same template share one provider call.
package tokensource

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	identity "github.com/campuskit/identity-go"
	"github.com/campuskit/identity-go/metrics"
	"github.com/campuskit/identity-go/tokencache"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is the default reuse window for a fetched token.
const DefaultTTL = time.Minute

type cachedToken struct {
	value     string
	expiresAt time.Time
}

// Source mints and reuses session tokens.
type Source struct {
	issuer  identity.TokenIssuer
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
	persist *tokencache.Cache

	mu     sync.RWMutex
	tokens map[string]cachedToken

	sf singleflight.Group
}

// Option configures the Source.
type Option func(*Source)

// WithTTL sets the reuse window for fetched tokens.
func WithTTL(d time.Duration) Option {
	return func(s *Source) { s.ttl = d }
}

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Source) { s.logger = l }
}

// WithMetrics records fetch outcomes to the given instruments.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Source) { s.metrics = m }
}

// WithPersistentCache writes each fetched token through to the given
// cache, so the last token survives a restart. Reset clears the entries
// again on sign-out.
func WithPersistentCache(c *tokencache.Cache) Option {
	return func(s *Source) { s.persist = c }
}

// New creates a token source over the given issuer.
func New(issuer identity.TokenIssuer, opts ...Option) *Source {
	s := &Source{
		issuer: issuer,
		ttl:    DefaultTTL,
		logger: slog.Default(),
		tokens: make(map[string]cachedToken),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func cacheKey(template string) string {
	if template == "" {
		return "default"
	}
	return template
}

// Token returns a session token for the named template, or for the
// default template when template is empty. A fresh cached token is reused;
// otherwise one fetch runs per template regardless of caller count.
func (s *Source) Token(ctx context.Context, template string) (string, error) {
	key := cacheKey(template)

	s.mu.RLock()
	if c, ok := s.tokens[key]; ok && time.Now().Before(c.expiresAt) {
		s.mu.RUnlock()
		return c.value, nil
	}
	s.mu.RUnlock()

	// singleflight prevents a burst of screens from minting duplicate tokens
	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		tok, err := s.fetch(ctx, template)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.tokens[key] = cachedToken{value: tok, expiresAt: time.Now().Add(s.ttl)}
		s.mu.Unlock()
		if s.persist != nil {
			s.persist.Save(ctx, "token:"+key, tok)
		}
		return tok, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// fetch tries the named template, then the default. Only the default
// failing is fatal.
func (s *Source) fetch(ctx context.Context, template string) (string, error) {
	tok, err := s.issuer.Token(ctx, template)
	if err == nil && tok != "" {
		s.record(template, "ok")
		return tok, nil
	}

	if template == "" {
		s.record(template, "error")
		if err == nil {
			err = fmt.Errorf("empty token")
		}
		return "", fmt.Errorf("identity/tokensource: fetch default token: %w", err)
	}

	s.logger.Debug("identity/tokensource: template unavailable, using default token",
		"template", template, "error", err)

	tok, ferr := s.issuer.Token(ctx, "")
	if ferr != nil || tok == "" {
		s.record(template, "error")
		if ferr == nil {
			ferr = fmt.Errorf("empty token")
		}
		return "", fmt.Errorf("identity/tokensource: template %q and default both failed: %w", template, ferr)
	}
	s.record(template, "fallback")
	return tok, nil
}

func (s *Source) record(template, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordTokenFetch(template, outcome)
	}
}

// Invalidate drops the cached token for one template, forcing the next
// Token call to fetch.
func (s *Source) Invalidate(ctx context.Context, template string) {
	key := cacheKey(template)
	s.mu.Lock()
	delete(s.tokens, key)
	s.mu.Unlock()
	if s.persist != nil {
		s.persist.Clear(ctx, "token:"+key)
	}
}

// Reset drops every cached token. Called on sign-out so the next session
// starts clean.
func (s *Source) Reset(ctx context.Context) {
	s.mu.Lock()
	keys := make([]string, 0, len(s.tokens))
	for k := range s.tokens {
		keys = append(keys, k)
	}
	s.tokens = make(map[string]cachedToken)
	s.mu.Unlock()

	if s.persist != nil {
		for _, k := range keys {
			s.persist.Clear(ctx, "token:"+k)
		}
	}
}
