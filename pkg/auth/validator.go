package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	iderr "github.com/innover-platform/identity-core/pkg/errors"
)

// tracerName is the OpenTelemetry instrumentation scope name for auth spans.
const tracerName = "github.com/innover-platform/identity-core/pkg/auth"

// maxTokenSize is the maximum accepted size for a token string (8 KB).
// Tokens larger than this are rejected to prevent resource exhaustion.
const maxTokenSize = 8192

// Config holds the configuration for [Validator]. All fields have
// development defaults; in deployed environments the env vars override
// them.
type Config struct {
	// KeycloakURL is the base URL of the identity provider.
	KeycloakURL string `json:"keycloak_url" yaml:"keycloak_url" env:"KEYCLOAK_URL" envDefault:"http://keycloak:8080"`

	// Realm is the identity provider realm (tenant) name.
	Realm string `json:"realm" yaml:"realm" env:"KEYCLOAK_REALM" envDefault:"innover"`

	// Issuer is the expected "iss" claim. When empty, it is derived as
	// {KeycloakURL}/realms/{Realm}.
	Issuer string `json:"issuer,omitempty" yaml:"issuer,omitempty" env:"OIDC_ISSUER"`

	// ClockSkew is the leeway allowed when checking exp/iat against the
	// local clock. Must be non-negative.
	ClockSkew time.Duration `json:"clock_skew" yaml:"clock_skew" env:"AUTH_CLOCK_SKEW" envDefault:"30s"`

	// HTTPClient performs the key-discovery call. If nil, a default
	// client with a 10-second timeout is used. Ignored when KeySource
	// is set.
	HTTPClient HTTPClient `json:"-" yaml:"-"`

	// KeySource supplies signing keys. If nil, a [JWKSSource] against
	// the issuer's key-discovery endpoint is used. Tests supply a
	// [StaticKeySource].
	KeySource KeySource `json:"-" yaml:"-"`
}

// IssuerURL returns the expected issuer: the explicit Issuer when set,
// otherwise {KeycloakURL}/realms/{Realm}.
func (c *Config) IssuerURL() string {
	if c.Issuer != "" {
		return c.Issuer
	}
	return strings.TrimRight(c.KeycloakURL, "/") + "/realms/" + c.Realm
}

// Validate checks the configuration for logical correctness.
func (c *Config) Validate() error {
	if c.Issuer == "" {
		if c.KeycloakURL == "" {
			return iderr.New(iderr.CodeValidation,
				"auth: keycloak URL must not be empty when no explicit issuer is configured")
		}
		if c.Realm == "" {
			return iderr.New(iderr.CodeValidation,
				"auth: realm must not be empty when no explicit issuer is configured")
		}
	}
	if c.ClockSkew < 0 {
		return iderr.New(iderr.CodeValidation, "auth: clock skew must be non-negative")
	}
	return nil
}

// defaultHTTPClient returns the HTTP client used when none is configured.
func defaultHTTPClient() HTTPClient {
	return &http.Client{Timeout: 10 * time.Second}
}

// Validator verifies bearer tokens against the identity provider's
// published signing keys and produces [TokenClaims]. Signing keys are
// resolved through the configured [KeySource]; by default that is a
// lazily-populated, process-lifetime [JWKSSource].
//
// The signing key is selected by the token header's "kid"; when the kid
// is absent or unknown, every cached key is tried in discovery order
// before the token is rejected.
//
// Validator is safe for concurrent use by multiple goroutines.
type Validator struct {
	config Config
	issuer string
	keys   KeySource
	tracer trace.Tracer
}

// NewValidator creates a Validator with the given configuration. The
// configuration is validated before use.
func NewValidator(cfg Config) (*Validator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	keys := cfg.KeySource
	if keys == nil {
		keys = NewJWKSSource(cfg.IssuerURL(), cfg.HTTPClient)
	}

	return &Validator{
		config: cfg,
		issuer: cfg.IssuerURL(),
		keys:   keys,
		tracer: otel.Tracer(tracerName),
	}, nil
}

// Issuer returns the expected issuer the validator enforces.
func (v *Validator) Issuer() string { return v.issuer }

// Validate verifies the given bearer token string and returns its
// decoded claims. Verification covers the signature (RS256/ES256
// against a discovered key), the issuer, expiry, and issued-at.
//
// Failures are terminal for the request and never retried:
//   - expired tokens return [iderr.CodeAuthenticationExpired]
//   - malformed tokens, bad signatures, and issuer/timing mismatches
//     return [iderr.CodeAuthenticationInvalid]
//   - signing-key discovery failures return
//     [iderr.CodeInternalConfiguration]
func (v *Validator) Validate(ctx context.Context, tokenStr string) (*TokenClaims, error) {
	ctx, span := v.tracer.Start(ctx, "auth.Validate")
	defer span.End()

	if tokenStr == "" {
		err := iderr.New(iderr.CodeAuthenticationInvalid, "auth: token must not be empty")
		recordSpanError(span, err)
		return nil, err
	}
	if len(tokenStr) > maxTokenSize {
		err := iderr.New(iderr.CodeAuthenticationInvalid, "auth: token exceeds maximum size")
		recordSpanError(span, err)
		return nil, err
	}

	// Parse without verification to inspect the header.
	unverified, _, err := jwt.NewParser().ParseUnverified(tokenStr, jwt.MapClaims{})
	if err != nil || unverified == nil {
		parseErr := iderr.New(iderr.CodeAuthenticationInvalid, "auth: token is malformed")
		recordSpanError(span, parseErr)
		return nil, parseErr
	}

	// Reject alg:none outright.
	algStr, _ := unverified.Header["alg"].(string)
	if strings.EqualFold(algStr, "none") {
		err := iderr.New(iderr.CodeAuthenticationInvalid, "auth: algorithm 'none' is not permitted")
		recordSpanError(span, err)
		return nil, err
	}

	// The expiry verdict must not depend on which key signed the token,
	// so check exp up front: signature verification against an unknown
	// key would otherwise mask the expiry.
	if exp, expErr := unverified.Claims.GetExpirationTime(); expErr == nil && exp != nil {
		if time.Now().After(exp.Add(v.config.ClockSkew)) {
			expiredErr := iderr.Wrap(jwt.ErrTokenExpired,
				iderr.CodeAuthenticationExpired, "auth: token has expired")
			recordSpanError(span, expiredErr)
			return nil, expiredErr
		}
	}

	kid, _ := unverified.Header["kid"].(string)
	span.SetAttributes(attribute.String("auth.token_kid", kid))

	set, err := v.keys.Keys(ctx)
	if err != nil {
		classified := iderr.FromError(err)
		recordSpanError(span, classified)
		return nil, classified
	}

	mc, err := v.verify(tokenStr, set, kid)
	if err != nil {
		classified := classifyError(err)
		recordSpanError(span, classified)
		return nil, classified
	}

	claims := claimsFromMap(mc)
	span.SetAttributes(
		attribute.String("auth.subject", claims.Subject),
		attribute.String("auth.client_id", claims.ClientID),
	)
	return claims, nil
}

// verify checks the token signature and registered claims. The key whose
// id matches the token's kid is tried first; when the kid is absent or
// unknown, every key in the set is tried in order. A non-signature
// failure (expired, wrong issuer) is terminal on the first key that
// verifies the signature semantics, since retrying other keys cannot
// change a claims outcome.
func (v *Validator) verify(tokenStr string, set *SigningKeySet, kid string) (jwt.MapClaims, error) {
	candidates := set.All()
	if kid != "" {
		if key, ok := set.ByID(kid); ok {
			candidates = []SigningKey{key}
		}
	}

	var lastErr error
	for _, key := range candidates {
		mc, err := v.verifyWithKey(tokenStr, key.Key)
		if err == nil {
			return mc, nil
		}
		lastErr = err
		if !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			// Signature checked out against this key but a claim
			// failed; other keys cannot rescue the token.
			return nil, err
		}
	}

	if lastErr == nil {
		lastErr = iderr.New(iderr.CodeAuthenticationInvalid,
			"auth: no signing keys available for verification")
	}
	return nil, lastErr
}

// verifyWithKey parses and verifies the token against a single public key.
func (v *Validator) verifyWithKey(tokenStr string, key any) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(*jwt.Token) (any, error) {
		return key, nil
	},
		jwt.WithValidMethods([]string{"RS256", "ES256"}),
		jwt.WithIssuer(v.issuer),
		jwt.WithLeeway(v.config.ClockSkew),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, iderr.New(iderr.CodeAuthenticationInvalid, "auth: invalid token claims")
	}
	return mc, nil
}

// classifyError converts a JWT library error to a *iderr.Error with the
// matching stable code. Errors that are already *iderr.Error pass
// through unchanged.
func classifyError(err error) *iderr.Error {
	if err == nil {
		return nil
	}

	var idErr *iderr.Error
	if errors.As(err, &idErr) {
		return idErr
	}

	if errors.Is(err, jwt.ErrTokenExpired) {
		return iderr.Wrap(err, iderr.CodeAuthenticationExpired, "auth: token has expired")
	}
	if errors.Is(err, jwt.ErrTokenMalformed) {
		return iderr.Wrap(err, iderr.CodeAuthenticationInvalid, "auth: token is malformed")
	}
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
		return iderr.Wrap(err, iderr.CodeAuthenticationInvalid, "auth: token signature is invalid")
	}
	if errors.Is(err, jwt.ErrTokenUnverifiable) {
		return iderr.Wrap(err, iderr.CodeAuthenticationInvalid, "auth: token is unverifiable")
	}
	if errors.Is(err, jwt.ErrTokenNotValidYet) || errors.Is(err, jwt.ErrTokenUsedBeforeIssued) {
		return iderr.Wrap(err, iderr.CodeAuthenticationInvalid, "auth: token is not yet valid")
	}
	if errors.Is(err, jwt.ErrTokenInvalidIssuer) {
		return iderr.Wrap(err, iderr.CodeAuthenticationInvalid, "auth: token issuer is invalid")
	}
	if errors.Is(err, jwt.ErrTokenInvalidClaims) {
		return iderr.Wrap(err, iderr.CodeAuthenticationInvalid, "auth: token claims are invalid")
	}

	return iderr.Wrap(err, iderr.CodeAuthenticationInvalid, "auth: token validation failed")
}

// recordSpanError records err on the span and marks the span status as
// error. No-op for nil err.
func recordSpanError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
