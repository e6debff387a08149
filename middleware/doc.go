// Package middleware groups transport adapters for the identity SDK.
//
// Subpackage ginmw guards Gin HTTP routes with web navigation semantics
// (redirects to sign-in, onboarding, or the caller's dashboard). Subpackage
// grpcmw authenticates unary and stream RPCs and enforces role allowlists
// with gRPC status codes.
package middleware
