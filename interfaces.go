package identity

import "context"

// SessionSource reports the provider's current authentication state.
// Implementations: verifier/ (token-backed), fake/ (testing).
type SessionSource interface {
	// Session returns the current resolved session. A signed-out caller
	// yields Session{Loaded: true} with SignedIn=false, not an error.
	Session(ctx context.Context) (Session, error)
}

// TokenIssuer mints bearer tokens for named session templates.
type TokenIssuer interface {
	// Token returns a token for the named template. Callers that need a
	// template should fall back to the default template ("") when the
	// named one is unavailable; tokensource.Source implements that policy.
	Token(ctx context.Context, template string) (string, error)
}

// MembershipLister returns a user's org memberships, one page at a time.
type MembershipLister interface {
	// ListOrgMemberships returns the page selected by opts plus the total
	// membership count. Flows must drain every page before acting on the
	// list; partial pages are never acted on.
	ListOrgMemberships(ctx context.Context, userID string, opts ListOptions) ([]OrgMembership, int, error)
}

// OrgActivator sets the active org on the provider-side session. After a
// successful call the provider re-mints the session token with the new org
// claims; clients must perform a hard navigation so the re-minted token is
// attached to the next request.
type OrgActivator interface {
	SetActiveOrg(ctx context.Context, orgID string) error
}

// Provider is the complete identity-provider surface this module depends
// on. Concrete implementations wrap the vendor SDK; fake/ supplies an
// in-memory one. Components accept the narrow slice they need, not the
// whole Provider.
type Provider interface {
	SessionSource
	TokenIssuer
	MembershipLister
	OrgActivator
}

// TokenVerifier verifies a session token and returns the Session it
// encodes. Implementations: verifier/ (shared-secret JWT), jwks/ (remote
// JWKS), fake/ (testing).
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (Session, error)
}

// TokenStore persists opaque tokens in platform secure storage, a cookie
// jar, or a server-side cache. Store errors are real errors here; the
// fault-absorption contract lives one layer up in tokencache.Cache.
type TokenStore interface {
	// Get returns the stored value for key, or ErrSecureStorageUnavailable
	// (possibly wrapped) when the store cannot answer. A missing key is
	// ("", nil).
	Get(ctx context.Context, key string) (string, error)

	Set(ctx context.Context, key, value string) error

	Delete(ctx context.Context, key string) error
}
