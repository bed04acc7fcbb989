package identity

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the OpenTelemetry instrumentation scope name for
// normalization spans.
const tracerName = "github.com/innover-platform/identity-core/pkg/identity"

// legacyClaimNamespace is the claim-URI prefix used by the legacy
// identity server for its non-standard claims.
const legacyClaimNamespace = "http://wso2.org/claims"

// everyoneRole is the directory's sentinel role assigned to every
// account; it carries no authorization meaning and is filtered out of
// enrichment results.
const everyoneRole = "everyone"

// roleSeparators splits delimited role strings (scope-style "read write"
// or comma-separated lists).
var roleSeparators = regexp.MustCompile(`[\s,]+`)

// ClaimPriorities holds the ordered candidate claim keys tried for each
// identity field, first match wins. Represented as data so deployments
// can extend them without code changes.
type ClaimPriorities struct {
	Email    []string `json:"email" yaml:"email"`
	Username []string `json:"username" yaml:"username"`
	Roles    []string `json:"roles" yaml:"roles"`
}

// DefaultClaimPriorities returns the claim-priority lists matching the
// identity provider's and legacy identity server's token layouts.
func DefaultClaimPriorities() ClaimPriorities {
	return ClaimPriorities{
		Email: []string{
			"email",
			"emails",
			"preferred_email",
			legacyClaimNamespace + "/emailaddress",
		},
		Username: []string{
			"preferred_username",
			"username",
			legacyClaimNamespace + "/username",
			"name",
			"sub",
		},
		Roles: []string{
			"groups",
			"roles",
			"realm_access.roles",
			"scope",
			"scp",
			legacyClaimNamespace + "/role",
		},
	}
}

// Normalizer turns a raw claim set into a *User. It is a pure,
// stateless-per-call transformation; the only shared state is inside
// the injected DirectoryLookup implementation (its cache).
//
// Normalizer is safe for concurrent use.
type Normalizer struct {
	priorities ClaimPriorities
	directory  DirectoryLookup
	tracer     trace.Tracer
}

// NewNormalizer creates a Normalizer with the given claim priorities and
// optional directory lookup. A nil directory disables UUID fallback
// enrichment. Zero-valued priority lists fall back to
// [DefaultClaimPriorities].
func NewNormalizer(priorities ClaimPriorities, directory DirectoryLookup) *Normalizer {
	defaults := DefaultClaimPriorities()
	if len(priorities.Email) == 0 {
		priorities.Email = defaults.Email
	}
	if len(priorities.Username) == 0 {
		priorities.Username = defaults.Username
	}
	if len(priorities.Roles) == 0 {
		priorities.Roles = defaults.Roles
	}
	return &Normalizer{
		priorities: priorities,
		directory:  directory,
		tracer:     otel.Tracer(tracerName),
	}
}

// Normalize produces the normalized identity for a raw claim set, or
// nil when none of email, username, and roles could be resolved (the
// caller treats nil as anonymous, not as a failure).
//
// Extraction is first-match-wins per field over the configured claim
// priorities. When the resolved username is an opaque UUID and either
// email or roles is missing, the directory is consulted and its record
// overwrites the claim-derived values; any lookup failure is swallowed,
// the UUID-derived values stay, and the result carries Degraded=true.
func (n *Normalizer) Normalize(ctx context.Context, claims map[string]any, source Source) *User {
	ctx, span := n.tracer.Start(ctx, "identity.Normalize",
		trace.WithAttributes(attribute.String("identity.source", string(source))))
	defer span.End()

	if len(claims) == 0 {
		return nil
	}

	email := firstClaim(claims, n.priorities.Email)
	if list, ok := email.([]any); ok {
		if len(list) > 0 {
			email = list[0]
		} else {
			email = nil
		}
	}

	username := firstClaim(claims, n.priorities.Username)

	var roles []string
	for _, key := range n.priorities.Roles {
		if v, ok := claims[key]; ok && !isEmptyClaim(v) {
			if parsed := asList(v); len(parsed) > 0 {
				roles = parsed
				break
			}
		}
	}

	degraded := false
	if name, ok := username.(string); ok && isUUID(name) && !(email != nil && len(roles) > 0) {
		record, err := n.lookupUser(ctx, name)
		switch {
		case record != nil:
			username = record.Username
			email = record.Email
			roles = filterRole(record.Roles, everyoneRole)
		default:
			// Fail open: keep the UUID-derived values but flag the
			// result so callers can tell enrichment was skipped.
			degraded = true
			slog.WarnContext(ctx, "identity: directory enrichment failed, using raw claims",
				"subject", name,
				"error", err,
			)
		}
	}

	// Malformed tokens occasionally carry a structured value in a
	// username-priority claim; rescue an email from inside it.
	if email == nil {
		if dict, ok := username.(map[string]any); ok {
			email = dict["email"]
		}
	}

	if username == nil && email != nil {
		if emailStr, ok := email.(string); ok {
			username = strings.SplitN(emailStr, "@", 2)[0]
		}
	}

	if email == nil && username == nil && len(roles) == 0 {
		return nil
	}

	user := &User{
		Username: stringify(username, "unknown"),
		Email:    stringify(email, "N/A"),
		Roles:    roles,
		Source:   source,
		Degraded: degraded,
	}
	if user.Roles == nil {
		user.Roles = []string{}
	}

	span.SetAttributes(
		attribute.String("identity.username", user.Username),
		attribute.Bool("identity.degraded", user.Degraded),
	)
	return user
}

// lookupUser consults the directory. A nil directory means enrichment
// is disabled and behaves like a failed lookup.
func (n *Normalizer) lookupUser(ctx context.Context, id string) (*DirectoryRecord, error) {
	if n.directory == nil {
		return nil, nil
	}
	return n.directory.LookupUser(ctx, id)
}

// firstClaim returns the value of the first present, non-empty claim
// among keys, or nil.
func firstClaim(claims map[string]any, keys []string) any {
	for _, key := range keys {
		if v, ok := lookupClaim(claims, key); ok && !isEmptyClaim(v) {
			return v
		}
	}
	return nil
}

// lookupClaim resolves a claim key against the set. A literal match is
// tried first so that legacy namespaced keys (which contain dots) keep
// working; otherwise a dotted key such as "realm_access.roles" descends
// into nested claim objects.
func lookupClaim(claims map[string]any, key string) (any, bool) {
	if v, ok := claims[key]; ok {
		return v, true
	}

	parts := strings.Split(key, ".")
	if len(parts) < 2 {
		return nil, false
	}
	cur := claims
	for i, part := range parts {
		v, ok := cur[part]
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		cur, ok = v.(map[string]any)
		if !ok {
			return nil, false
		}
	}
	return nil, false
}

// isEmptyClaim reports whether a claim value counts as absent: nil, an
// empty string, an empty list, or an empty map.
func isEmptyClaim(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []any:
		return len(val) == 0
	case []string:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	case bool:
		return !val
	case float64:
		return val == 0
	}
	return false
}

// asList normalizes a claim value that may be either a list or a
// whitespace/comma-delimited string into a trimmed []string.
func asList(v any) []string {
	switch val := v.(type) {
	case []string:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s := strings.TrimSpace(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s := strings.TrimSpace(fmt.Sprintf("%v", item)); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		parts := roleSeparators.Split(val, -1)
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// isUUID reports whether s is in the canonical 8-4-4-4-12 textual UUID
// form (case-insensitive). Other accepted uuid.Parse encodings (URN,
// braced, bare hex) do not count.
func isUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// filterRole returns roles with every occurrence of drop removed.
func filterRole(roles []string, drop string) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		if r != "" && r != drop {
			out = append(out, r)
		}
	}
	return out
}

// stringify renders a claim value as a string, falling back to def for
// nil or empty values.
func stringify(v any, def string) string {
	if v == nil {
		return def
	}
	if s, ok := v.(string); ok {
		if s == "" {
			return def
		}
		return s
	}
	return fmt.Sprintf("%v", v)
}
