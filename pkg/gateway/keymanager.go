package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	iderr "github.com/innover-platform/identity-core/pkg/errors"
)

// KeyManager is a gateway key-manager configuration: the identity
// provider the gateway trusts for token validation on published APIs.
type KeyManager struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Enabled     bool   `json:"enabled"`

	Issuer           string `json:"issuer,omitempty"`
	ScopesClaim      string `json:"scopesClaim,omitempty"`
	ConsumerKeyClaim string `json:"consumerKeyClaim,omitempty"`

	IntrospectionEndpoint      string `json:"introspectionEndpoint,omitempty"`
	TokenEndpoint              string `json:"tokenEndpoint,omitempty"`
	RevokeEndpoint             string `json:"revokeEndpoint,omitempty"`
	AuthorizeEndpoint          string `json:"authorizeEndpoint,omitempty"`
	ClientRegistrationEndpoint string `json:"clientRegistrationEndpoint,omitempty"`
	UserInfoEndpoint           string `json:"userInfoEndpoint,omitempty"`

	Certificates    *KeyManagerCertificates `json:"certificates,omitempty"`
	TokenValidation []TokenValidationRule   `json:"tokenValidation,omitempty"`

	AdditionalProperties map[string]string `json:"additionalProperties,omitempty"`
}

// KeyManagerCertificates points the gateway at the provider's signing
// keys, by JWKS URL or inline PEM.
type KeyManagerCertificates struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// TokenValidationRule tells the gateway how to validate tokens from
// this key manager.
type TokenValidationRule struct {
	Type  string         `json:"type"`
	Value map[string]any `json:"value"`
}

// oidcDiscovery is the subset of an OIDC discovery document needed to
// build a key-manager configuration.
type oidcDiscovery struct {
	TokenEndpoint         string `json:"token_endpoint"`
	IntrospectionEndpoint string `json:"introspection_endpoint"`
	RevocationEndpoint    string `json:"revocation_endpoint"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	JWKSURI               string `json:"jwks_uri"`
	UserInfoEndpoint      string `json:"userinfo_endpoint"`
	RegistrationEndpoint  string `json:"registration_endpoint"`
}

// BuildOIDCKeyManager discovers the identity provider's OIDC endpoints
// from {issuer}/.well-known/openid-configuration and assembles an
// enabled JWT-validating key-manager configuration for it.
//
// Error codes returned:
//   - [iderr.CodeUnavailableDependency]: discovery endpoint unreachable
//     or undecodable
func (c *Client) BuildOIDCKeyManager(ctx context.Context, name, issuer, clientID, clientSecret string) (*KeyManager, error) {
	issuer = strings.TrimRight(issuer, "/")
	wellKnown := issuer + "/.well-known/openid-configuration"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, wellKnown, nil)
	if err != nil {
		return nil, iderr.Wrap(err, iderr.CodeInternal,
			"gateway: failed to create discovery request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, iderr.Wrap(err, iderr.CodeUnavailableDependency,
			"gateway: OIDC discovery request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, iderr.Newf(iderr.CodeUnavailableDependency,
			"gateway: OIDC discovery returned status %d", resp.StatusCode)
	}

	var oidc oidcDiscovery
	if err := decodeJSONBody(resp.Body, &oidc); err != nil {
		return nil, iderr.Wrap(err, iderr.CodeUnavailableDependency,
			"gateway: OIDC discovery response is not valid JSON")
	}

	if oidc.IntrospectionEndpoint == "" {
		oidc.IntrospectionEndpoint = oidc.TokenEndpoint + "/introspect"
	}
	if oidc.RevocationEndpoint == "" {
		oidc.RevocationEndpoint = oidc.TokenEndpoint + "/revoke"
	}
	if oidc.RegistrationEndpoint == "" {
		oidc.RegistrationEndpoint = issuer + "/clients-registrations/openid-connect"
	}

	return &KeyManager{
		Name:             name,
		DisplayName:      name,
		Type:             "default",
		Description:      name + " key manager for JWT validation",
		Enabled:          true,
		Issuer:           issuer,
		ScopesClaim:      "scope",
		ConsumerKeyClaim: "azp",

		IntrospectionEndpoint:      oidc.IntrospectionEndpoint,
		TokenEndpoint:              oidc.TokenEndpoint,
		RevokeEndpoint:             oidc.RevocationEndpoint,
		AuthorizeEndpoint:          oidc.AuthorizationEndpoint,
		ClientRegistrationEndpoint: oidc.RegistrationEndpoint,
		UserInfoEndpoint:           oidc.UserInfoEndpoint,

		Certificates: &KeyManagerCertificates{
			Type:  "JWKS",
			Value: oidc.JWKSURI,
		},
		TokenValidation: []TokenValidationRule{
			{Type: "jwt", Value: map[string]any{}},
		},
		AdditionalProperties: map[string]string{
			"client_id":     clientID,
			"client_secret": clientSecret,
		},
	}, nil
}

// ListKeyManagers returns all configured key managers.
func (c *Client) ListKeyManagers(ctx context.Context) ([]KeyManager, error) {
	var result struct {
		List []KeyManager `json:"list"`
	}
	if err := c.getJSON(ctx, c.adminAPI()+"/key-managers", &result); err != nil {
		return nil, err
	}
	return result.List, nil
}

// GetKeyManagerByName returns the key manager with the given name.
//
// Error codes returned:
//   - [iderr.CodeNotFound]: no key manager with that name
func (c *Client) GetKeyManagerByName(ctx context.Context, name string) (*KeyManager, error) {
	managers, err := c.ListKeyManagers(ctx)
	if err != nil {
		return nil, err
	}
	for i := range managers {
		if managers[i].Name == name {
			return &managers[i], nil
		}
	}
	return nil, iderr.Newf(iderr.CodeNotFound,
		"gateway: no key manager named %q", name)
}

// CreateKeyManager registers a new key manager and returns it with the
// gateway-assigned id.
func (c *Client) CreateKeyManager(ctx context.Context, km *KeyManager) (*KeyManager, error) {
	var created KeyManager
	if err := c.do(ctx, http.MethodPost, c.adminAPI()+"/key-managers", km, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateKeyManager replaces the key manager with the given id.
func (c *Client) UpdateKeyManager(ctx context.Context, id string, km *KeyManager) (*KeyManager, error) {
	var updated KeyManager
	if err := c.do(ctx, http.MethodPut, c.adminAPI()+"/key-managers/"+id, km, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// EnsureKeyManager creates the key manager if absent, or updates the
// existing one of the same name. The operation is idempotent.
func (c *Client) EnsureKeyManager(ctx context.Context, km *KeyManager) (*KeyManager, error) {
	existing, err := c.GetKeyManagerByName(ctx, km.Name)
	if err != nil {
		if !iderr.IsNotFound(err) {
			return nil, err
		}
		slog.InfoContext(ctx, "gateway: creating key manager", "name", km.Name)
		return c.CreateKeyManager(ctx, km)
	}

	slog.InfoContext(ctx, "gateway: updating key manager",
		"name", km.Name,
		"id", existing.ID,
	)
	return c.UpdateKeyManager(ctx, existing.ID, km)
}
