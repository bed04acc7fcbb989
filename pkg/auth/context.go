package auth

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"github.com/innover-platform/identity-core/pkg/identity"
)

// contextKey is an unexported type used for context keys in this package.
// Using a distinct type prevents collisions with keys from other packages.
type contextKey int

const (
	// userKey stores the normalized identity in the context.
	userKey contextKey = iota

	// claimsKey stores the raw verified token claims in the context.
	claimsKey
)

// ContextWithUser returns a new context with the normalized identity
// attached. Typically called by HTTP middleware and gRPC interceptors
// after claim extraction; retrieve it with [UserFromContext].
func ContextWithUser(ctx context.Context, user *identity.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext retrieves the normalized identity from the context.
// Returns the user and true if present, or nil and false. This function
// never returns a non-nil user with false.
//
// Example:
//
//	user, ok := auth.UserFromContext(ctx)
//	if !ok {
//	    return errors.Unauthorized("no identity in context")
//	}
func UserFromContext(ctx context.Context) (*identity.User, bool) {
	user, ok := ctx.Value(userKey).(*identity.User)
	return user, ok && user != nil
}

// MustUserFromContext retrieves the normalized identity from the
// context, panicking if none is present. Only for code paths behind
// authentication middleware, where an identity is guaranteed.
func MustUserFromContext(ctx context.Context) *identity.User {
	user, ok := UserFromContext(ctx)
	if !ok {
		panic("auth: no identity in context; ensure authentication middleware is configured")
	}
	return user
}

// ContextWithClaims returns a new context with the verified token
// claims attached. Set only on the bearer-token path, where the full
// claim set is available.
func ContextWithClaims(ctx context.Context, claims *TokenClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext retrieves the verified token claims from the
// context. Returns nil and false on the forwarded-assertion and
// plain-header paths, which carry no verified claims.
func ClaimsFromContext(ctx context.Context) (*TokenClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(*TokenClaims)
	return claims, ok && claims != nil
}

// TraceIDFromContext extracts the OpenTelemetry trace ID from the
// context as a hex string. Returns "" and false when no trace is
// active. Lets identity events be correlated with distributed traces.
func TraceIDFromContext(ctx context.Context) (string, bool) {
	spanCtx := trace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.HasTraceID() {
		return "", false
	}
	return spanCtx.TraceID().String(), true
}
