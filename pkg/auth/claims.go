package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the decoded payload of a verified bearer token, shaped
// for the identity provider's token layout. Realm-level roles come from
// the "realm_access" claim; per-client roles come from "resource_access",
// keyed by the client identifier. Raw holds the complete payload for
// callers that need claims not surfaced as fields.
//
// TokenClaims is created per-request by [Validator.Validate] and never
// persisted.
type TokenClaims struct {
	// Subject is the "sub" claim: user ID for user tokens, client ID for
	// service tokens.
	Subject string

	// Issuer is the "iss" claim. The validator guarantees it equals the
	// configured expected issuer.
	Issuer string

	// ExpiresAt and IssuedAt are the "exp" and "iat" claims. Zero when
	// the claim is absent.
	ExpiresAt time.Time
	IssuedAt  time.Time

	// Username is the "preferred_username" claim. Empty for service
	// tokens issued via the client-credentials flow.
	Username string

	// Email and EmailVerified mirror the "email" and "email_verified"
	// claims.
	Email         string
	EmailVerified bool

	// Name, GivenName, and FamilyName are the display-name claims.
	Name       string
	GivenName  string
	FamilyName string

	// RealmRoles holds realm-level roles from "realm_access.roles".
	RealmRoles []string

	// ClientRoles maps a client identifier to that client's role list,
	// from "resource_access.{client}.roles".
	ClientRoles map[string][]string

	// ClientID is the "azp" (authorized party) claim: the client the
	// token was issued to.
	ClientID string

	// Scope is the granted scope string, space-delimited.
	Scope string

	// Raw is the full decoded payload.
	Raw map[string]any
}

// HasRealmRole reports whether the token carries the given realm role.
func (c *TokenClaims) HasRealmRole(role string) bool {
	for _, r := range c.RealmRoles {
		if r == role {
			return true
		}
	}
	return false
}

// HasClientRole reports whether the token carries the given role scoped
// to the given client.
func (c *TokenClaims) HasClientRole(client, role string) bool {
	for _, r := range c.ClientRoles[client] {
		if r == role {
			return true
		}
	}
	return false
}

// claimsFromMap shapes verified jwt.MapClaims into TokenClaims.
func claimsFromMap(mc jwt.MapClaims) *TokenClaims {
	claims := &TokenClaims{
		Subject:       stringClaim(mc, "sub"),
		Issuer:        stringClaim(mc, "iss"),
		Username:      stringClaim(mc, "preferred_username"),
		Email:         stringClaim(mc, "email"),
		Name:          stringClaim(mc, "name"),
		GivenName:     stringClaim(mc, "given_name"),
		FamilyName:    stringClaim(mc, "family_name"),
		ClientID:      stringClaim(mc, "azp"),
		Scope:         stringClaim(mc, "scope"),
		ClientRoles:   make(map[string][]string),
		EmailVerified: boolClaim(mc, "email_verified"),
		Raw:           map[string]any(mc),
	}

	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}

	if realmAccess, ok := mc["realm_access"].(map[string]any); ok {
		claims.RealmRoles = stringSlice(realmAccess["roles"])
	}

	if resourceAccess, ok := mc["resource_access"].(map[string]any); ok {
		for client, v := range resourceAccess {
			access, ok := v.(map[string]any)
			if !ok {
				continue
			}
			claims.ClientRoles[client] = stringSlice(access["roles"])
		}
	}

	return claims
}

// stringClaim returns the claim value as a string, or "" if absent or
// not a string.
func stringClaim(mc jwt.MapClaims, key string) string {
	s, _ := mc[key].(string)
	return s
}

// boolClaim returns the claim value as a bool, or false if absent or not
// a bool.
func boolClaim(mc jwt.MapClaims, key string) bool {
	b, _ := mc[key].(bool)
	return b
}

// stringSlice converts a decoded JSON array into a []string, skipping
// non-string elements. Returns nil for non-array input.
func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
