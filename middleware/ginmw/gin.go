// Package ginmw provides Gin HTTP middleware for the identity SDK.
//
// Guard applies web navigation semantics: unauthenticated or unauthorized
// requests are redirected the way a browser expects (sign-in, onboarding,
// or the caller's own dashboard). Auth and RequireRoles apply API
// semantics: plain 401/403 JSON responses for non-navigational clients.
//
// All middleware accepts an *identity.Client and uses its interfaces — no
// direct dependency on any specific provider backend.
package ginmw

import (
	"net/http"
	"net/url"
	"strings"

	identity "github.com/campuskit/identity-go"
	"github.com/campuskit/identity-go/audit"
	"github.com/campuskit/identity-go/guard"
	"github.com/campuskit/identity-go/metrics"
	"github.com/gin-gonic/gin"
)

// Context keys for storing identity data in gin.Context.
const (
	KeySession = "identity_session"
	KeyUserID  = "identity_user_id"
	KeyOrgID   = "identity_org_id"
	KeyRole    = "identity_role"
)

// DefaultSessionCookie is the cookie the provider sets for browser sessions.
const DefaultSessionCookie = "__session"

// DefaultSignInPath is where unauthenticated browsers are sent.
const DefaultSignInPath = "/sign-in"

// GuardOption configures Guard middleware behavior.
type GuardOption func(*guardConfig)

type guardConfig struct {
	signInPath    string
	sessionCookie string
	returnToParam string
	trail         *audit.Trail
	metrics       *metrics.Metrics
}

// WithSignInPath overrides the sign-in redirect target.
func WithSignInPath(path string) GuardOption {
	return func(cfg *guardConfig) { cfg.signInPath = path }
}

// WithSessionCookie overrides the session cookie name.
func WithSessionCookie(name string) GuardOption {
	return func(cfg *guardConfig) { cfg.sessionCookie = name }
}

// WithAudit records guard denials on the given trail.
func WithAudit(t *audit.Trail) GuardOption {
	return func(cfg *guardConfig) { cfg.trail = t }
}

// WithMetrics counts guard decisions on the given instruments.
func WithMetrics(m *metrics.Metrics) GuardOption {
	return func(cfg *guardConfig) { cfg.metrics = m }
}

// Guard returns Gin middleware that evaluates every request against the
// route guard. Public paths pass through untouched; protected paths get
// the session resolved via client.Verifier() and the guard's decision
// applied as a redirect or, for API clients, a 401.
//
// An invalid or expired token is treated as signed out, not as an error:
// the browser is redirected to sign in again.
func Guard(client *identity.Client, engine *guard.Engine, opts ...GuardOption) gin.HandlerFunc {
	cfg := &guardConfig{
		signInPath:    DefaultSignInPath,
		sessionCookie: DefaultSessionCookie,
		returnToParam: "redirect_url",
	}
	for _, o := range opts {
		o(cfg)
	}
	if engine == nil {
		engine = guard.New(nil)
	}

	return func(c *gin.Context) {
		s := resolveSession(c, client, cfg.sessionCookie)
		d := engine.Evaluate(c.Request.URL.Path, s)

		if cfg.metrics != nil {
			cfg.metrics.RecordGuardDecision(d.Kind.String())
		}
		if cfg.trail != nil && !d.Allowed() {
			cfg.trail.Record(audit.Event{
				Action:    audit.ActionGuardDecision,
				RequestID: audit.RequestID(c.Request.Context()),
				UserID:    s.UserID,
				OrgID:     s.OrgID,
				Role:      string(s.Role()),
				Path:      c.Request.URL.Path,
				Result:    d.Kind.String(),
				IP:        c.ClientIP(),
				UserAgent: c.Request.UserAgent(),
			})
		}

		switch d.Kind {
		case guard.KindAllow:
			setSession(c, s)
			c.Next()

		case guard.KindRequireSession:
			if wantsJSON(c) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
				return
			}
			target := cfg.signInPath + "?" + cfg.returnToParam + "=" + url.QueryEscape(c.Request.URL.RequestURI())
			c.Redirect(http.StatusFound, target)
			c.Abort()

		case guard.KindRedirectOnboarding, guard.KindRedirectDashboard:
			c.Redirect(http.StatusFound, d.Path)
			c.Abort()
		}
	}
}

// Auth returns Gin middleware with API semantics: it verifies the session
// token via client.Verifier() and responds 401 when it is missing or
// invalid. On success the session is stored in the context (retrievable
// via GetSession, GetUserID, etc.).
func Auth(client *identity.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := extractToken(c.Request, DefaultSessionCookie)
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing session token"})
			return
		}

		verifier := client.Verifier()
		if verifier == nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token verifier not configured"})
			return
		}

		s, err := verifier.Verify(c.Request.Context(), tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid session token"})
			return
		}

		setSession(c, s)
		c.Next()
	}
}

// RequireRoles returns Gin middleware that checks the session role against
// an allowlist. Requires Guard or Auth to run first. Responds 401 without
// a session and 403 when the role is not allowed.
func RequireRoles(roles ...identity.Role) gin.HandlerFunc {
	allowed := make(map[identity.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(c *gin.Context) {
		s, ok := GetSession(c)
		if !ok || !s.SignedIn {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if !allowed[s.Role()] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "role not authorized"})
			return
		}
		c.Next()
	}
}

// RequireActiveOrg returns Gin middleware that rejects sessions without an
// active org. Requires Guard or Auth to run first. API counterpart of the
// guard's onboarding redirect.
func RequireActiveOrg() gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := GetSession(c)
		if !ok || !s.SignedIn {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if s.NeedsActivation() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "no active org"})
			return
		}
		c.Next()
	}
}

// --- Context helpers ---

// GetSession returns the resolved session from the Gin context.
func GetSession(c *gin.Context) (identity.Session, bool) {
	v, ok := c.Get(KeySession)
	if !ok {
		return identity.Session{}, false
	}
	s, ok := v.(identity.Session)
	return s, ok
}

// GetUserID returns the authenticated user ID from the Gin context.
func GetUserID(c *gin.Context) string {
	v, _ := c.Get(KeyUserID)
	s, _ := v.(string)
	return s
}

// GetOrgID returns the active org ID from the Gin context.
func GetOrgID(c *gin.Context) string {
	v, _ := c.Get(KeyOrgID)
	s, _ := v.(string)
	return s
}

// GetRole returns the mapped role from the Gin context. Defaults to
// student when no session was stored.
func GetRole(c *gin.Context) identity.Role {
	v, _ := c.Get(KeyRole)
	if r, ok := v.(identity.Role); ok {
		return r
	}
	return identity.RoleStudent
}

// --- internal helpers ---

// setSession stores the session under both the gin keys and the request
// context, so downstream code can use either surface.
func setSession(c *gin.Context, s identity.Session) {
	c.Set(KeySession, s)
	c.Set(KeyUserID, s.UserID)
	c.Set(KeyOrgID, s.OrgID)
	c.Set(KeyRole, s.Role())
	c.Request = c.Request.WithContext(identity.WithSession(c.Request.Context(), s))
}

// resolveSession turns whatever credential the request carries into a
// loaded Session. No token, no verifier, or a failed verification all
// resolve to signed out; the guard decides what that means for the path.
func resolveSession(c *gin.Context, client *identity.Client, cookieName string) identity.Session {
	signedOut := identity.Session{Loaded: true}

	tokenStr := extractToken(c.Request, cookieName)
	if tokenStr == "" {
		return signedOut
	}
	verifier := client.Verifier()
	if verifier == nil {
		return signedOut
	}
	s, err := verifier.Verify(c.Request.Context(), tokenStr)
	if err != nil {
		return signedOut
	}
	return s
}

// extractToken reads the session token from the session cookie or, for
// API clients, the Authorization header.
func extractToken(r *http.Request, cookieName string) string {
	if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// wantsJSON reports whether the client expects an API response rather
// than a navigation redirect.
func wantsJSON(c *gin.Context) bool {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		return true
	}
	accept := c.GetHeader("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}
