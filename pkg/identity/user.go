// Package identity normalizes raw identity claims into a single User
// record shared by every Innover microservice. Claims may arrive from a
// validated bearer token, from a gateway-forwarded assertion header, or
// from plain propagation headers; the normalizer applies the same
// ordered claim-priority rules to all of them and optionally enriches
// opaque UUID subjects through a user-directory lookup.
package identity

import "context"

// Source tags where a normalized identity came from. Authorization
// logic can treat the lower-trust paths differently if ever required.
type Source string

const (
	// SourceVerified marks identities derived from a bearer token whose
	// signature, issuer, and expiry were verified by this process.
	SourceVerified Source = "verified"

	// SourceForwarded marks identities decoded from a gateway-forwarded
	// assertion header. The gateway is trusted to have validated the
	// token; this process performs no signature check.
	SourceForwarded Source = "forwarded"

	// SourceHeaders marks identities reconstructed from plain
	// X-User-* propagation headers.
	SourceHeaders Source = "headers"
)

// User is the normalized identity record attached to a request context
// after claim extraction. Immutable once built; discarded at end of
// request.
type User struct {
	// Username defaults to "unknown" when no claim resolved it.
	Username string `json:"username"`

	// Email defaults to "N/A" when no claim resolved it.
	Email string `json:"email"`

	// Roles is the ordered role list, possibly empty, never nil.
	Roles []string `json:"roles"`

	// Source tags the ingestion path the identity came from.
	Source Source `json:"-"`

	// Degraded is true when a directory enrichment was attempted and
	// failed, leaving the raw claim-derived values in place. Callers can
	// use it to distinguish a genuine identity from a fail-open one.
	Degraded bool `json:"-"`
}

// HasRole reports whether the user carries the given role.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the user carries at least one of the given
// roles. Returns false for an empty roles argument.
func (u *User) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if u.HasRole(r) {
			return true
		}
	}
	return false
}

// HasAllRoles reports whether the user carries every one of the given
// roles. Returns true for an empty roles argument.
func (u *User) HasAllRoles(roles ...string) bool {
	for _, r := range roles {
		if !u.HasRole(r) {
			return false
		}
	}
	return true
}

// DirectoryRecord is the result of a user-directory lookup keyed by an
// opaque subject identifier.
type DirectoryRecord struct {
	Username   string
	Email      string
	Roles      []string
	GivenName  string
	FamilyName string
}

// DirectoryLookup resolves an opaque subject identifier to a directory
// record. Implementations return (nil, error) on any transport or
// decode failure; the normalizer treats every failure as "no record"
// and never propagates it.
type DirectoryLookup interface {
	LookupUser(ctx context.Context, id string) (*DirectoryRecord, error)
}
