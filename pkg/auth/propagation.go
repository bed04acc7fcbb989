package auth

import (
	"strings"

	"github.com/innover-platform/identity-core/pkg/identity"
)

// Header constants for identity ingestion and propagation. The same
// names are used as HTTP headers and (lowercased) as gRPC metadata
// keys.
const (
	// HeaderAuthorization is the standard authorization header carrying
	// the bearer token.
	HeaderAuthorization = "Authorization"

	// HeaderJWTAssertion carries the gateway-forwarded identity
	// assertion: a base64-encoded token whose payload is decoded without
	// signature verification (see [DecodeAssertion]).
	HeaderJWTAssertion = "X-JWT-Assertion"

	// HeaderUserName, HeaderUserEmail, and HeaderUserRoles carry the
	// normalized identity fields between services. Roles are
	// comma-joined.
	HeaderUserName  = "X-User-Name"
	HeaderUserEmail = "X-User-Email"
	HeaderUserRoles = "X-User-Roles"
)

// bearerPrefix is the standard "Bearer " prefix for authorization tokens.
const bearerPrefix = "Bearer "

// ExtractBearerToken extracts the token from an authorization header
// value, handling the "Bearer " prefix case-insensitively. Returns an
// empty string if the header is empty or has no bearer prefix.
func ExtractBearerToken(authHeader string) string {
	if len(authHeader) <= len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return authHeader[len(bearerPrefix):]
}

// UserToHeaders serializes a normalized identity into the X-User-*
// header set for propagation to a downstream service. Returns nil for a
// nil user. Default sentinel values ("unknown", "N/A") are propagated
// as-is so the downstream reconstruction is lossless.
func UserToHeaders(user *identity.User) map[string]string {
	if user == nil {
		return nil
	}
	headers := map[string]string{
		HeaderUserName:  user.Username,
		HeaderUserEmail: user.Email,
	}
	if len(user.Roles) > 0 {
		headers[HeaderUserRoles] = strings.Join(user.Roles, ",")
	}
	return headers
}

// UserFromHeaders reconstructs a normalized identity from propagated
// X-User-* values. getValue retrieves a single header value by name.
// Returns nil when neither a username nor an email is present.
//
// The result carries [identity.SourceHeaders]: plain headers are the
// lowest-trust ingestion path.
func UserFromHeaders(getValue func(key string) string) *identity.User {
	name := getValue(HeaderUserName)
	email := getValue(HeaderUserEmail)
	if name == "" && email == "" {
		return nil
	}

	roles := []string{}
	if raw := getValue(HeaderUserRoles); raw != "" {
		for _, r := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(r); trimmed != "" {
				roles = append(roles, trimmed)
			}
		}
	}

	if name == "" {
		name = "unknown"
	}
	if email == "" {
		email = "N/A"
	}

	return &identity.User{
		Username: name,
		Email:    email,
		Roles:    roles,
		Source:   identity.SourceHeaders,
	}
}
