package identity

import "context"

type ctxKey string

const (
	ctxKeySession ctxKey = "identity_session"
	ctxKeyUserID  ctxKey = "identity_user_id"
	ctxKeyOrgID   ctxKey = "identity_org_id"
	ctxKeyRole    ctxKey = "identity_role"
)

// WithSession stores the resolved session in the context.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKeySession, s)
}

// SessionFromContext extracts the resolved session from the context. The
// second return is false when no session was stored.
func SessionFromContext(ctx context.Context) (Session, bool) {
	v, ok := ctx.Value(ctxKeySession).(Session)
	return v, ok
}

// WithUserID stores the authenticated user ID in the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKeyUserID, userID)
}

// UserIDFromContext extracts the authenticated user ID from the context.
func UserIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyUserID).(string)
	return v
}

// WithOrgID stores the active org ID in the context.
func WithOrgID(ctx context.Context, orgID string) context.Context {
	return context.WithValue(ctx, ctxKeyOrgID, orgID)
}

// OrgIDFromContext extracts the active org ID from the context.
func OrgIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyOrgID).(string)
	return v
}

// WithRole stores the resolved application role in the context.
func WithRole(ctx context.Context, r Role) context.Context {
	return context.WithValue(ctx, ctxKeyRole, r)
}

// RoleFromContext extracts the resolved application role from the context.
// Returns RoleStudent when none was stored, matching the mapper's
// least-privilege default.
func RoleFromContext(ctx context.Context) Role {
	if v, ok := ctx.Value(ctxKeyRole).(Role); ok {
		return v
	}
	return RoleStudent
}
