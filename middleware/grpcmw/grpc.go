// Package grpcmw provides gRPC interceptors for the identity SDK.
//
// Unlike the web guard, RPC clients never get redirects: a missing or
// invalid session is codes.Unauthenticated, a role outside the allowlist
// is codes.PermissionDenied.
//
// All interceptors accept an *identity.Client and use its interfaces — no
// direct dependency on any specific provider backend.
package grpcmw

import (
	"context"
	"strings"

	identity "github.com/campuskit/identity-go"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// AuthOption configures auth interceptor behavior.
type AuthOption func(*authConfig)

type authConfig struct {
	excludedMethods map[string]bool
}

// WithExcludedMethods sets gRPC methods that skip authentication.
// Methods should be fully qualified (e.g. "/package.Service/Method").
func WithExcludedMethods(methods ...string) AuthOption {
	return func(cfg *authConfig) {
		for _, m := range methods {
			cfg.excludedMethods[m] = true
		}
	}
}

// UnaryAuth returns a gRPC unary server interceptor that verifies session
// tokens. On success, it stores the session in the context via
// identity.WithSession, identity.WithUserID, etc.
func UnaryAuth(client *identity.Client, opts ...AuthOption) grpc.UnaryServerInterceptor {
	cfg := &authConfig{excludedMethods: make(map[string]bool)}
	for _, o := range opts {
		o(cfg)
	}

	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if cfg.excludedMethods[info.FullMethod] {
			return handler(ctx, req)
		}

		ctx, err := authenticate(ctx, client)
		if err != nil {
			return nil, err
		}

		return handler(ctx, req)
	}
}

// StreamAuth returns a gRPC stream server interceptor that verifies
// session tokens.
func StreamAuth(client *identity.Client, opts ...AuthOption) grpc.StreamServerInterceptor {
	cfg := &authConfig{excludedMethods: make(map[string]bool)}
	for _, o := range opts {
		o(cfg)
	}

	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if cfg.excludedMethods[info.FullMethod] {
			return handler(srv, ss)
		}

		ctx, err := authenticate(ss.Context(), client)
		if err != nil {
			return err
		}

		wrapped := &wrappedStream{ServerStream: ss, ctx: ctx}
		return handler(srv, wrapped)
	}
}

// UnaryRequireRoles returns a gRPC unary server interceptor that checks
// the session role against an allowlist. Requires UnaryAuth to run first.
func UnaryRequireRoles(roles ...identity.Role) grpc.UnaryServerInterceptor {
	allowed := make(map[identity.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		s, ok := identity.SessionFromContext(ctx)
		if !ok || !s.SignedIn {
			return nil, status.Error(codes.Unauthenticated, "missing session context")
		}
		if !allowed[s.Role()] {
			return nil, status.Error(codes.PermissionDenied, "role not authorized")
		}

		return handler(ctx, req)
	}
}

// UnaryRequireActiveOrg returns a gRPC unary server interceptor that
// rejects sessions without an active org. Requires UnaryAuth to run
// first. The client is expected to run activation and retry with a fresh
// token.
func UnaryRequireActiveOrg() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		s, ok := identity.SessionFromContext(ctx)
		if !ok || !s.SignedIn {
			return nil, status.Error(codes.Unauthenticated, "missing session context")
		}
		if s.NeedsActivation() {
			return nil, status.Error(codes.PermissionDenied, "no active org")
		}

		return handler(ctx, req)
	}
}

// --- internal helpers ---

func authenticate(ctx context.Context, client *identity.Client) (context.Context, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ctx, status.Error(codes.Unauthenticated, "missing metadata")
	}

	tokenStr := extractBearerFromMD(md)
	if tokenStr == "" {
		return ctx, status.Error(codes.Unauthenticated, "missing authorization token")
	}

	verifier := client.Verifier()
	if verifier == nil {
		return ctx, status.Error(codes.Internal, "token verifier not configured")
	}

	s, err := verifier.Verify(ctx, tokenStr)
	if err != nil {
		return ctx, status.Error(codes.Unauthenticated, "invalid token")
	}

	ctx = identity.WithSession(ctx, s)
	ctx = identity.WithUserID(ctx, s.UserID)
	ctx = identity.WithOrgID(ctx, s.OrgID)
	ctx = identity.WithRole(ctx, s.Role())

	return ctx, nil
}

func extractBearerFromMD(md metadata.MD) string {
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return ""
	}
	parts := strings.SplitN(vals[0], " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// wrappedStream wraps grpc.ServerStream to override Context().
type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedStream) Context() context.Context {
	return w.ctx
}
