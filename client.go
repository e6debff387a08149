// Package identity is the identity-resolution, role-routing, and tenant
// activation core of the CampusKit institution-management product.
//
// The package defines the domain types (Session, Role, OrgMembership), the
// provider interfaces the product depends on, and a Client that acts as the
// composition root. Decision logic lives in sub-packages: guard (web route
// decisions), activation (org auto-activation), authgate and devicetrust
// (mobile gates), tokencache and tokensource (token plumbing). Adapters for
// gin and gRPC surfaces are under middleware/.
//
// Example usage with a JWT session verifier:
//
//	client, err := identity.NewClient(
//	    identity.Config{
//	        APIBaseURL:     "https://api.campuskit.example",
//	        PublishableKey: os.Getenv("CAMPUSKIT_PROVIDER_PUBLISHABLE_KEY"),
//	    },
//	    identity.WithProvider(provider),
//	    identity.WithTokenVerifier(verifier),
//	)
package identity

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Client is the composition root for identity operations. It is
// constructed once at application start and disposed with Close; nothing
// in this module relies on package-level mutable state.
type Client struct {
	config   Config
	logger   *slog.Logger
	provider Provider
	verifier TokenVerifier
	tokens   TokenStore
}

// Config holds boot configuration for the identity subsystem.
type Config struct {
	// APIBaseURL is the base URL of the product's REST API. Required.
	APIBaseURL string

	// PublishableKey is the identity provider's publishable key. Required:
	// running without it would mean running with auth silently disabled,
	// so its absence fails construction instead.
	PublishableKey string

	// DefaultTokenTemplate names the session template used when a caller
	// does not request one, or when a requested template is unavailable.
	// Empty selects the provider's default token shape.
	DefaultTokenTemplate string

	// CacheTTL bounds how long fetched tokens are reused. Default: 1 minute.
	CacheTTL time.Duration
}

// Option configures the Client.
type Option func(*Client)

// WithLogger sets a structured logger for the client.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithProvider sets the identity-provider implementation.
func WithProvider(p Provider) Option {
	return func(c *Client) { c.provider = p }
}

// WithTokenVerifier sets the session-token verification implementation.
func WithTokenVerifier(v TokenVerifier) Option {
	return func(c *Client) { c.verifier = v }
}

// WithTokenStore sets the backing store for cached tokens.
func WithTokenStore(s TokenStore) Option {
	return func(c *Client) { c.tokens = s }
}

// DefaultCacheTTL is the default reuse window for fetched tokens.
const DefaultCacheTTL = time.Minute

// NewClient creates an identity client with the given configuration and
// options. A missing publishable key is a hard failure.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.PublishableKey == "" {
		return nil, fmt.Errorf("%w: provider publishable key is required", ErrInvalidConfig)
	}
	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("%w: API base URL is required", ErrInvalidConfig)
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}

	c := &Client{config: cfg, logger: slog.Default()}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Config returns the client configuration.
func (c *Client) Config() Config { return c.config }

// Logger returns the client's structured logger.
func (c *Client) Logger() *slog.Logger { return c.logger }

// Provider returns the identity provider, or nil if not configured.
func (c *Client) Provider() Provider { return c.provider }

// Verifier returns the token verifier, or nil if not configured.
func (c *Client) Verifier() TokenVerifier { return c.verifier }

// Tokens returns the token store, or nil if not configured.
func (c *Client) Tokens() TokenStore { return c.tokens }

// HealthCheck reports whether the client is usable: at least one service
// must be wired, and a configured provider must answer a session probe.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.provider == nil && c.verifier == nil && c.tokens == nil {
		return fmt.Errorf("identity: no services configured")
	}
	if c.provider != nil {
		if _, err := c.provider.Session(ctx); err != nil {
			return fmt.Errorf("identity: provider probe: %w", err)
		}
	}
	return nil
}

// Close releases all resources held by the client. Any injected service
// that implements io.Closer is closed.
func (c *Client) Close() error {
	closers := []interface{}{c.provider, c.verifier, c.tokens}
	var firstErr error
	for _, svc := range closers {
		if cl, ok := svc.(io.Closer); ok && cl != nil {
			if err := cl.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
