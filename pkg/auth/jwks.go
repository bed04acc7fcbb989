package auth

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync"

	iderr "github.com/innover-platform/identity-core/pkg/errors"
)

// HTTPClient abstracts the HTTP client used for fetching signing keys.
// This allows callers to provide clients with custom timeouts, transport
// settings, or middleware. The standard [http.Client] satisfies this
// interface.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// SigningKey is one public verification key from the identity provider's
// key-discovery endpoint.
type SigningKey struct {
	// ID is the provider-assigned key identifier ("kid").
	ID string

	// Algorithm is the signing algorithm the provider advertises for
	// this key ("RS256", "ES256", ...). May be empty.
	Algorithm string

	// Key is the parsed public key: *rsa.PublicKey or *ecdsa.PublicKey.
	Key any
}

// SigningKeySet is the set of public verification keys published by the
// identity provider. An empty set can never validate a token and is a
// hard failure at fetch time.
type SigningKeySet struct {
	keys []SigningKey
}

// Len returns the number of keys in the set.
func (s *SigningKeySet) Len() int { return len(s.keys) }

// ByID returns the key with the given id and true, or a zero key and
// false if no key in the set matches.
func (s *SigningKeySet) ByID(kid string) (SigningKey, bool) {
	for _, k := range s.keys {
		if k.ID == kid {
			return k, true
		}
	}
	return SigningKey{}, false
}

// All returns the keys in discovery order. Callers must not modify the
// returned slice.
func (s *SigningKeySet) All() []SigningKey { return s.keys }

// KeySource provides the signing key set used for token verification.
// The production implementation is [JWKSSource]; tests may supply a
// static source.
type KeySource interface {
	Keys(ctx context.Context) (*SigningKeySet, error)
}

// StaticKeySource is a KeySource backed by a fixed key set. Useful in
// tests and in deployments that pin provider keys.
type StaticKeySource struct {
	Set *SigningKeySet
}

// Keys returns the fixed key set.
func (s *StaticKeySource) Keys(context.Context) (*SigningKeySet, error) {
	if s.Set == nil || s.Set.Len() == 0 {
		return nil, iderr.New(iderr.CodeInternalConfiguration,
			"auth: static key source holds no signing keys")
	}
	return s.Set, nil
}

// NewSigningKeySet builds a SigningKeySet from the given keys. Intended
// for tests and StaticKeySource construction.
func NewSigningKeySet(keys ...SigningKey) *SigningKeySet {
	return &SigningKeySet{keys: keys}
}

// JWKSSource fetches the signing key set from the identity provider's
// key-discovery endpoint ({issuer}/protocol/openid-connect/certs) and
// caches it for the life of the process. The fetch is lazy: it happens
// on the first Keys call, guarded by a mutex so concurrent first callers
// trigger at most one fetch. There is no expiry or rotation handling; a
// provider key rollover requires a process restart.
//
// JWKSSource is safe for concurrent use.
type JWKSSource struct {
	jwksURL string
	client  HTTPClient

	mu  sync.Mutex
	set *SigningKeySet
}

// NewJWKSSource creates a JWKSSource for the given issuer URL. If client
// is nil, a default [http.Client] with a 10-second timeout is used.
func NewJWKSSource(issuer string, client HTTPClient) *JWKSSource {
	if client == nil {
		client = defaultHTTPClient()
	}
	return &JWKSSource{
		jwksURL: strings.TrimRight(issuer, "/") + "/protocol/openid-connect/certs",
		client:  client,
	}
}

// Keys returns the cached signing key set, fetching it on first use.
// Returns a *[iderr.Error] with [iderr.CodeInternalConfiguration] if the
// discovery endpoint is unreachable or publishes no usable keys; key
// discovery failures are infrastructure faults, not client faults, and
// surface as HTTP 500.
func (s *JWKSSource) Keys(ctx context.Context) (*SigningKeySet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.set != nil {
		return s.set, nil
	}

	set, err := fetchSigningKeys(ctx, s.client, s.jwksURL)
	if err != nil {
		return nil, err
	}

	s.set = set
	return set, nil
}

// fetchSigningKeys performs the key-discovery GET and parses the JWKS
// response into a SigningKeySet. The response body is limited to 1 MB.
func fetchSigningKeys(ctx context.Context, client HTTPClient, jwksURL string) (*SigningKeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jwksURL, nil)
	if err != nil {
		return nil, iderr.Wrapf(err, iderr.CodeInternalConfiguration,
			"auth: failed to create key discovery request for %q", jwksURL)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, iderr.Wrapf(err, iderr.CodeInternalConfiguration,
			"auth: key discovery request to %q failed", jwksURL)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, iderr.Newf(iderr.CodeInternalConfiguration,
			"auth: key discovery endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, iderr.Wrap(err, iderr.CodeInternalConfiguration,
			"auth: failed to read key discovery response")
	}

	var jwks struct {
		Keys []jwkKey `json:"keys"`
	}
	if err := json.Unmarshal(body, &jwks); err != nil {
		return nil, iderr.Wrap(err, iderr.CodeInternalConfiguration,
			"auth: failed to parse key discovery JSON")
	}

	keys := make([]SigningKey, 0, len(jwks.Keys))
	for _, k := range jwks.Keys {
		switch k.Kty {
		case "RSA":
			pub, err := parseRSAPublicKey(k.N, k.E)
			if err != nil {
				continue // skip malformed keys
			}
			keys = append(keys, SigningKey{ID: k.Kid, Algorithm: k.Alg, Key: pub})
		case "EC":
			pub, err := parseECPublicKey(k.Crv, k.X, k.Y)
			if err != nil {
				continue
			}
			keys = append(keys, SigningKey{ID: k.Kid, Algorithm: k.Alg, Key: pub})
		}
	}

	if len(keys) == 0 {
		return nil, iderr.Newf(iderr.CodeInternalConfiguration,
			"auth: no usable signing keys in discovery response from %q", jwksURL)
	}

	return &SigningKeySet{keys: keys}, nil
}

// jwkKey is a single entry in a JWKS response. Only the fields needed
// for RSA and EC key reconstruction are included.
type jwkKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	// RSA fields
	N string `json:"n"`
	E string `json:"e"`
	// EC fields
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
}

// parseRSAPublicKey constructs an *rsa.PublicKey from base64url-encoded
// modulus (n) and exponent (e) values.
func parseRSAPublicKey(nBase64, eBase64 string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(nBase64)
	if err != nil {
		return nil, fmt.Errorf("auth: failed to decode RSA modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(eBase64)
	if err != nil {
		return nil, fmt.Errorf("auth: failed to decode RSA exponent: %w", err)
	}

	e := new(big.Int).SetBytes(eBytes)

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(e.Int64()),
	}, nil
}

// parseECPublicKey constructs an *ecdsa.PublicKey from a curve name and
// base64url-encoded x and y coordinates.
func parseECPublicKey(crv, xBase64, yBase64 string) (*ecdsa.PublicKey, error) {
	var curve elliptic.Curve
	switch crv {
	case "P-256":
		curve = elliptic.P256()
	case "P-384":
		curve = elliptic.P384()
	case "P-521":
		curve = elliptic.P521()
	default:
		return nil, fmt.Errorf("auth: unsupported EC curve %q", crv)
	}

	xBytes, err := base64.RawURLEncoding.DecodeString(xBase64)
	if err != nil {
		return nil, fmt.Errorf("auth: failed to decode EC x coordinate: %w", err)
	}
	yBytes, err := base64.RawURLEncoding.DecodeString(yBase64)
	if err != nil {
		return nil, fmt.Errorf("auth: failed to decode EC y coordinate: %w", err)
	}

	return &ecdsa.PublicKey{
		Curve: curve,
		X:     new(big.Int).SetBytes(xBytes),
		Y:     new(big.Int).SetBytes(yBytes),
	}, nil
}
