// Package auth validates bearer tokens against the Innover identity
// provider and resolves the request identity for every ingestion path a
// service accepts: locally-verified bearer tokens, gateway-forwarded
// assertion headers, and plain X-User-* propagation headers.
//
// The central types are [Validator], which fetches and caches the
// provider's signing keys and verifies signature, issuer, and expiry,
// and [Resolver], which applies the ingestion paths in trust order and
// hands the raw claims to the identity normalizer. HTTP middleware and
// gRPC interceptors wire the resolver into servers; a propagating
// RoundTripper and client interceptors carry the resolved identity to
// downstream services.
package auth
