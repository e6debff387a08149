package identity

import "errors"

// Error taxonomy for the identity subsystem. Adapters translate these into
// redirects or transport status codes; nothing here ever reaches an end
// user as a raw error.
var (
	// ErrUnauthenticated means no verified session. Recovery belongs to
	// the surrounding auth layer and its sign-in redirect, not to this
	// module.
	ErrUnauthenticated = errors.New("identity: unauthenticated")

	// ErrNoActiveTenant means the user signed in but holds zero org
	// memberships. Terminal: fixing it takes administrator action, so
	// callers surface it with actionable copy instead of retrying.
	ErrNoActiveTenant = errors.New("identity: no org membership for user")

	// ErrTenantActivationFailed wraps a provider or network failure during
	// org auto-activation. Never auto-retried; a retry against a partially
	// activated session risks inconsistent tenant state.
	ErrTenantActivationFailed = errors.New("identity: tenant activation failed")

	// ErrRoleNotAuthorized means the session's role is outside the
	// allow-list for the requested path. Corrected by redirecting to the
	// role's own dashboard, not surfaced as a failure.
	ErrRoleNotAuthorized = errors.New("identity: role not authorized for path")

	// ErrDeviceNotTrusted gates mobile navigation to the registration
	// screen. A state, not a failure.
	ErrDeviceNotTrusted = errors.New("identity: device not trusted")

	// ErrSecureStorageUnavailable marks a storage read or write failure.
	// The token cache absorbs it and proceeds as if nothing were cached.
	ErrSecureStorageUnavailable = errors.New("identity: secure storage unavailable")

	// ErrProviderUnavailable marks a transport-level failure reaching the
	// identity provider.
	ErrProviderUnavailable = errors.New("identity: provider unavailable")

	// ErrInvalidConfig is returned when required boot configuration is
	// missing or malformed.
	ErrInvalidConfig = errors.New("identity: invalid configuration")
)
