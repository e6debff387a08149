// Package verifier resolves provider session tokens into Sessions.
//
// Session tokens are JWTs signed with the provider's shared secret. The
// org claims embedded at mint time are exactly what activation re-mints:
// a pre-activation token verifies to a Session without an org, and only a
// token fetched after a hard navigation carries the activated org id.
package verifier

import (
	"context"
	"fmt"
	"time"

	identity "github.com/campuskit/identity-go"
	"github.com/golang-jwt/jwt/v5"
)

// Claim names in the provider's session token.
const (
	claimOrgID   = "org_id"
	claimOrgRole = "org_role"
)

// Verifier implements identity.TokenVerifier over HMAC-signed session
// tokens.
type Verifier struct {
	secret []byte
	issuer string
	leeway time.Duration
}

// compile-time check
var _ identity.TokenVerifier = (*Verifier)(nil)

// Option configures the Verifier.
type Option func(*Verifier)

// WithIssuer requires the token's iss claim to match.
func WithIssuer(iss string) Option {
	return func(v *Verifier) { v.issuer = iss }
}

// WithLeeway tolerates clock skew when validating time claims.
func WithLeeway(d time.Duration) Option {
	return func(v *Verifier) { v.leeway = d }
}

// New creates a verifier over the provider's signing secret.
func New(secret []byte, opts ...Option) (*Verifier, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("identity/verifier: signing secret is required")
	}
	v := &Verifier{secret: secret}
	for _, o := range opts {
		o(v)
	}
	return v, nil
}

// Verify validates a session token and returns the Session it encodes.
// Any invalid, expired, or absent token is ErrUnauthenticated; the caller
// decides whether that means a sign-in redirect or a 401.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (identity.Session, error) {
	if tokenString == "" {
		return identity.Session{}, fmt.Errorf("%w: no token presented", identity.ErrUnauthenticated)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{"HS256"}),
	}
	if v.leeway > 0 {
		parserOpts = append(parserOpts, jwt.WithLeeway(v.leeway))
	}
	if v.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.issuer))
	}

	parser := jwt.NewParser(parserOpts...)
	token, err := parser.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return identity.Session{}, fmt.Errorf("%w: %v", identity.ErrUnauthenticated, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return identity.Session{}, fmt.Errorf("%w: invalid token claims", identity.ErrUnauthenticated)
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return identity.Session{}, fmt.Errorf("%w: token has no subject", identity.ErrUnauthenticated)
	}

	s := identity.Session{SignedIn: true, Loaded: true, UserID: sub}
	if orgID, ok := claims[claimOrgID].(string); ok {
		s.OrgID = orgID
	}
	if orgRole, ok := claims[claimOrgRole].(string); ok {
		s.OrgRole = orgRole
	}
	return s, nil
}
