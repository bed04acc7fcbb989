package auth

import (
	"encoding/json"
	"net/http"

	iderr "github.com/innover-platform/identity-core/pkg/errors"
)

// challengeHeader is the WWW-Authenticate value sent with every 401,
// signalling the bearer scheme to the client.
const challengeHeader = "Bearer"

// HTTPMiddleware returns a net/http middleware that resolves and
// requires the request identity. The resolver's ingestion order
// applies: forwarded assertion, then bearer token, then plain
// propagation headers.
//
// Requests with an invalid or expired bearer token receive 401 with a
// WWW-Authenticate challenge and a machine-readable error code.
// Requests with no resolvable identity at all also receive 401.
// On success the normalized user (and, on the bearer path, the verified
// claims) is stored in the request context.
//
// Example:
//
//	mux := http.NewServeMux()
//	mux.HandleFunc("/api/data", handleData)
//	handler := auth.HTTPMiddleware(resolver)(mux)
func HTTPMiddleware(resolver *Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			user, claims, err := resolver.Resolve(ctx, r.Header.Get)
			if err != nil {
				writeAuthError(w, err)
				return
			}
			if user == nil {
				writeAuthError(w, iderr.New(iderr.CodeAuthentication,
					"auth: no credentials presented"))
				return
			}

			ctx = ContextWithUser(ctx, user)
			if claims != nil {
				ctx = ContextWithClaims(ctx, claims)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalHTTPMiddleware resolves the request identity when one is
// presented but never rejects the request: bearer validation failures
// and missing credentials both continue anonymously. Probe endpoints
// use this variant.
func OptionalHTTPMiddleware(resolver *Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			user, claims, err := resolver.Resolve(ctx, r.Header.Get)
			if err == nil && user != nil {
				ctx = ContextWithUser(ctx, user)
				if claims != nil {
					ctx = ContextWithClaims(ctx, claims)
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeAuthError writes an authentication failure response: the mapped
// HTTP status, the bearer challenge, and a JSON body carrying the
// stable error code.
func writeAuthError(w http.ResponseWriter, err error) {
	e := iderr.FromError(err)
	w.Header().Set("WWW-Authenticate", challengeHeader)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.HTTPStatus())
	_ = json.NewEncoder(w).Encode(map[string]string{
		"code":  e.Code.String(),
		"error": e.Message,
	})
}

// PropagatingRoundTripper wraps an [http.RoundTripper] to propagate the
// normalized identity to outgoing HTTP requests as X-User-* headers,
// read from the request context.
//
// Example:
//
//	client := &http.Client{
//	    Transport: auth.NewPropagatingRoundTripper(http.DefaultTransport),
//	}
//	resp, err := client.Do(req.WithContext(ctx))
type PropagatingRoundTripper struct {
	wrapped http.RoundTripper
}

// NewPropagatingRoundTripper creates a PropagatingRoundTripper wrapping
// the given transport. If transport is nil, [http.DefaultTransport] is
// used.
func NewPropagatingRoundTripper(transport http.RoundTripper) *PropagatingRoundTripper {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &PropagatingRoundTripper{wrapped: transport}
}

// RoundTrip executes the HTTP request with identity headers injected
// from the request context. If no identity is present the request
// proceeds unmodified. RoundTrip implements [http.RoundTripper].
func (t *PropagatingRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		return t.wrapped.RoundTrip(r)
	}

	// Clone to avoid mutating the caller's request.
	clone := r.Clone(r.Context())
	for k, v := range UserToHeaders(user) {
		clone.Header.Set(k, v)
	}
	return t.wrapped.RoundTrip(clone)
}
