// Package jwks provides a TokenVerifier implementation using JWKS (JSON Web Key Set).
//
// Hosted identity providers sign session tokens with RS256 and publish the
// public keys at a JWKS endpoint (RFC 7517). This verifier fetches those
// keys, caches them locally, and verifies session tokens without calling
// the provider on every request. Use verifier.Verifier instead when the
// deployment shares an HMAC signing secret.
package jwks

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	identity "github.com/campuskit/identity-go"
	"github.com/golang-jwt/jwt/v5"
)

// Verifier implements identity.TokenVerifier using JWKS public keys.
type Verifier struct {
	jwksURL         string
	httpClient      *http.Client
	refreshInterval time.Duration

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey // kid → public key
	lastFetch time.Time
}

// compile-time check
var _ identity.TokenVerifier = (*Verifier)(nil)

// Option configures the Verifier.
type Option func(*Verifier)

// WithHTTPClient sets a custom HTTP client for fetching JWKS.
func WithHTTPClient(c *http.Client) Option {
	return func(v *Verifier) { v.httpClient = c }
}

// WithRefreshInterval sets how often cached keys are refreshed.
// Default: 1 hour.
func WithRefreshInterval(d time.Duration) Option {
	return func(v *Verifier) { v.refreshInterval = d }
}

// NewVerifier creates a new JWKS-based session token verifier.
func NewVerifier(jwksURL string, opts ...Option) *Verifier {
	v := &Verifier{
		jwksURL:         jwksURL,
		httpClient:      http.DefaultClient,
		refreshInterval: 1 * time.Hour,
		keys:            make(map[string]*rsa.PublicKey),
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Verify validates a session token and returns the Session it encodes.
// A token that cannot be verified is ErrUnauthenticated; an unreachable
// JWKS endpoint is ErrProviderUnavailable, so callers can tell a bad
// credential from a bad day.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (identity.Session, error) {
	parser := jwt.NewParser(jwt.WithExpirationRequired())

	token, err := parser.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		kid, _ := token.Header["kid"].(string)
		return v.getKey(ctx, kid)
	})
	if err != nil {
		if errors.Is(err, identity.ErrProviderUnavailable) {
			return identity.Session{}, fmt.Errorf("identity/jwks: %w", err)
		}
		return identity.Session{}, fmt.Errorf("%w: %v", identity.ErrUnauthenticated, err)
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return identity.Session{}, fmt.Errorf("%w: invalid token claims", identity.ErrUnauthenticated)
	}

	return mapToSession(mapClaims)
}

// getKey returns the RSA public key for the given kid, fetching/refreshing as needed.
func (v *Verifier) getKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	key, found := v.keys[kid]
	stale := time.Since(v.lastFetch) > v.refreshInterval
	v.mu.RUnlock()

	if found && !stale {
		return key, nil
	}

	// Fetch fresh keys (kid mismatch or cache expired)
	if err := v.refresh(ctx); err != nil {
		if found {
			return key, nil // use stale key if refresh fails
		}
		return nil, err
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	if key, ok := v.keys[kid]; ok {
		return key, nil
	}

	// No kid specified — use the first available key
	if kid == "" {
		for _, k := range v.keys {
			return k, nil
		}
	}

	return nil, fmt.Errorf("identity/jwks: key not found for kid %q", kid)
}

// refresh fetches the JWKS from the configured URL and updates the cache.
func (v *Verifier) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.jwksURL, nil)
	if err != nil {
		return fmt.Errorf("identity/jwks: create request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: fetch jwks: %v", identity.ErrProviderUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: jwks fetch returned status %d", identity.ErrProviderUnavailable, resp.StatusCode)
	}

	var jwksResp jwksResponse
	if err := json.NewDecoder(resp.Body).Decode(&jwksResp); err != nil {
		return fmt.Errorf("identity/jwks: decode: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(jwksResp.Keys))
	for _, jwk := range jwksResp.Keys {
		if jwk.Kty != "RSA" || (jwk.Use != "" && jwk.Use != "sig") {
			continue
		}
		pub, err := jwk.rsaPublicKey()
		if err != nil {
			continue // skip malformed keys
		}
		keys[jwk.Kid] = pub
	}

	if len(keys) == 0 {
		return fmt.Errorf("identity/jwks: no valid RSA signing keys found")
	}

	v.mu.Lock()
	v.keys = keys
	v.lastFetch = time.Now()
	v.mu.Unlock()

	return nil
}

// JWKS JSON types

type jwksResponse struct {
	Keys []jwkKey `json:"keys"`
}

type jwkKey struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func (k *jwkKey) rsaPublicKey() (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(new(big.Int).SetBytes(eBytes).Int64()),
	}, nil
}

// mapToSession converts session token claims to an identity.Session.
func mapToSession(m jwt.MapClaims) (identity.Session, error) {
	sub, _ := m["sub"].(string)
	if sub == "" {
		return identity.Session{}, fmt.Errorf("%w: token has no subject", identity.ErrUnauthenticated)
	}

	s := identity.Session{SignedIn: true, Loaded: true, UserID: sub}
	if v, ok := m["org_id"].(string); ok {
		s.OrgID = v
	}
	if v, ok := m["org_role"].(string); ok {
		s.OrgRole = v
	}
	return s, nil
}
