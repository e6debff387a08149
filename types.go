package identity

import "time"

// Session is the resolved authentication state for one caller at one
// instant. It is transient: recomputed on every auth-state change pushed by
// the identity provider and never persisted by this module.
//
// SignedIn=true with an empty OrgID is a valid mid-onboarding state. Every
// consumer must treat it as "needs activation", never as unauthenticated.
type Session struct {
	SignedIn bool

	// Loaded reports whether the provider finished resolving the session.
	// A zero Session (Loaded=false) means "still resolving", not "signed
	// out"; gates must hold a neutral loading state until it flips.
	Loaded bool

	UserID string

	// OrgID is the active organization embedded in the current session
	// token. Empty until the activation flow completes and the token is
	// re-minted.
	OrgID string

	// OrgRole is the provider's raw role string within the active org,
	// e.g. "org:admin". Use Role() for the application-level mapping.
	OrgRole string
}

// Role returns the application role derived from the session's org role.
func (s Session) Role() Role { return MapOrgRole(s.OrgRole) }

// NeedsActivation reports whether the caller is signed in but has no
// active org yet.
func (s Session) NeedsActivation() bool { return s.SignedIn && s.OrgID == "" }

// OrgMembership is one (user, org, role-within-org) relationship. A user
// may hold several; exactly one org must be active before protected routes
// are reachable.
type OrgMembership struct {
	OrgID            string
	OrgRole          string
	OrganizationName string
}

// TrustRecord describes the device-trust registration state of one
// physical device.
type TrustRecord struct {
	DeviceID     string
	RegisteredAt time.Time
	TokenPresent bool

	// SkippedAt is non-zero when the user explicitly skipped registration.
	// Skipping is a terminal trust state distinct from being registered.
	SkippedAt time.Time
}

// TokenCacheEntry is one persisted token under its storage key. Entries are
// owned exclusively by the token cache; no other component reads the
// backing store directly.
type TokenCacheEntry struct {
	Key   string
	Value string
}

// ListOptions holds pagination parameters for membership listing.
type ListOptions struct {
	Page     int
	PageSize int
}
