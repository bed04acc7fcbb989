package auth

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	iderr "github.com/innover-platform/identity-core/pkg/errors"
)

// DecodeAssertion decodes a gateway-forwarded identity assertion header
// value into a raw claim set. The gateway delivers a base64-encoded,
// dot-separated three-part token-like string; the payload is its second
// segment, base64url-encoded. No signature is verified: the trust
// boundary is the gateway, which validated the token before forwarding
// it. Callers must tag the resulting claims as the lower-trust
// forwarded path.
func DecodeAssertion(headerValue string) (map[string]any, error) {
	headerValue = strings.TrimSpace(headerValue)
	if headerValue == "" {
		return nil, iderr.New(iderr.CodeValidation, "auth: assertion header is empty")
	}

	decoded, err := base64.StdEncoding.DecodeString(headerValue)
	if err != nil {
		// Some gateways strip the padding.
		decoded, err = base64.RawStdEncoding.DecodeString(headerValue)
		if err != nil {
			return nil, iderr.Wrap(err, iderr.CodeValidation,
				"auth: assertion header is not valid base64")
		}
	}

	parts := strings.Split(string(decoded), ".")
	if len(parts) < 2 {
		return nil, iderr.New(iderr.CodeValidation,
			"auth: assertion is not a dot-separated token")
	}

	payload := parts[1]
	if m := len(payload) % 4; m != 0 {
		payload += strings.Repeat("=", 4-m)
	}

	payloadBytes, err := base64.URLEncoding.DecodeString(payload)
	if err != nil {
		return nil, iderr.Wrap(err, iderr.CodeValidation,
			"auth: assertion payload is not valid base64url")
	}

	var claims map[string]any
	if err := json.Unmarshal(payloadBytes, &claims); err != nil {
		return nil, iderr.Wrap(err, iderr.CodeValidation,
			"auth: assertion payload is not valid JSON")
	}

	return claims, nil
}
