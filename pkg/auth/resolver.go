package auth

import (
	"context"
	"log/slog"

	"github.com/innover-platform/identity-core/pkg/identity"
)

// Resolver resolves the normalized identity for an inbound request from
// whichever credential it carries. The ingestion paths are tried in
// trust-boundary order:
//
//  1. gateway-forwarded assertion header (gateway already validated it)
//  2. bearer token (validated locally by [Validator])
//  3. plain X-User-* propagation headers
//
// A malformed assertion header is logged and skipped; an invalid bearer
// token is a terminal authentication error. A request carrying no
// credential at all resolves to (nil, nil, nil) and is the caller's
// anonymous case.
type Resolver struct {
	validator  *Validator
	normalizer *identity.Normalizer
}

// NewResolver creates a Resolver. validator may be nil to disable the
// bearer-token path (header-only services).
func NewResolver(validator *Validator, normalizer *identity.Normalizer) *Resolver {
	return &Resolver{validator: validator, normalizer: normalizer}
}

// Resolve determines the request identity. getHeader retrieves a single
// header value by name. Returns the normalized user (nil when
// anonymous), the verified token claims (non-nil only on the bearer
// path), and an error only when a presented bearer token fails
// validation.
func (r *Resolver) Resolve(ctx context.Context, getHeader func(key string) string) (*identity.User, *TokenClaims, error) {
	// Forwarded assertion first: the gateway strips the client's
	// Authorization header and replaces it with the assertion.
	if assertion := getHeader(HeaderJWTAssertion); assertion != "" {
		claims, err := DecodeAssertion(assertion)
		if err != nil {
			slog.WarnContext(ctx, "auth: failed to decode forwarded assertion",
				"error", err,
			)
		} else if user := r.normalizer.Normalize(ctx, claims, identity.SourceForwarded); user != nil {
			return user, nil, nil
		}
	}

	if token := ExtractBearerToken(getHeader(HeaderAuthorization)); token != "" && r.validator != nil {
		claims, err := r.validator.Validate(ctx, token)
		if err != nil {
			return nil, nil, err
		}
		user := r.normalizer.Normalize(ctx, claims.Raw, identity.SourceVerified)
		return user, claims, nil
	}

	if user := UserFromHeaders(getHeader); user != nil {
		return user, nil, nil
	}

	return nil, nil, nil
}
