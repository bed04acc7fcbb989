package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	iderr "github.com/innover-platform/identity-core/pkg/errors"
)

func TestClient_EnsureKeyManager_Creates(t *testing.T) {
	t.Parallel()

	g := &fakeGateway{}
	client := newFakeGatewayClient(t, g)
	ctx := context.Background()

	km := &KeyManager{
		Name:    "Keycloak",
		Type:    "default",
		Enabled: true,
		Issuer:  "http://keycloak:8080/realms/innover",
	}

	created, err := client.EnsureKeyManager(ctx, km)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Keycloak", created.Name)

	got, err := client.GetKeyManagerByName(ctx, "Keycloak")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestClient_EnsureKeyManager_UpdatesExisting(t *testing.T) {
	t.Parallel()

	g := &fakeGateway{}
	client := newFakeGatewayClient(t, g)
	ctx := context.Background()

	first, err := client.EnsureKeyManager(ctx, &KeyManager{
		Name: "Keycloak", Type: "default", Enabled: false,
	})
	require.NoError(t, err)

	second, err := client.EnsureKeyManager(ctx, &KeyManager{
		Name: "Keycloak", Type: "default", Enabled: true,
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "ensure must update, not duplicate")
	assert.True(t, second.Enabled)

	managers, err := client.ListKeyManagers(ctx)
	require.NoError(t, err)
	assert.Len(t, managers, 1)
}

func TestClient_GetKeyManagerByName_NotFound(t *testing.T) {
	t.Parallel()

	client := newFakeGatewayClient(t, &fakeGateway{})

	_, err := client.GetKeyManagerByName(context.Background(), "absent")
	require.Error(t, err)
	assert.True(t, iderr.IsNotFound(err))
}

func TestClient_BuildOIDCKeyManager(t *testing.T) {
	t.Parallel()

	var issuer string
	idp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/realms/innover/.well-known/openid-configuration", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"token_endpoint":         issuer + "/protocol/openid-connect/token",
			"authorization_endpoint": issuer + "/protocol/openid-connect/auth",
			"jwks_uri":               issuer + "/protocol/openid-connect/certs",
			"userinfo_endpoint":      issuer + "/protocol/openid-connect/userinfo",
		})
	}))
	t.Cleanup(idp.Close)
	issuer = idp.URL + "/realms/innover"

	client := newFakeGatewayClient(t, &fakeGateway{})

	km, err := client.BuildOIDCKeyManager(context.Background(),
		"Keycloak", issuer, "wso2am", "wso2am-secret")
	require.NoError(t, err)

	assert.Equal(t, "Keycloak", km.Name)
	assert.Equal(t, "default", km.Type)
	assert.True(t, km.Enabled)
	assert.Equal(t, issuer, km.Issuer)
	assert.Equal(t, "scope", km.ScopesClaim)
	assert.Equal(t, "azp", km.ConsumerKeyClaim)
	assert.Equal(t, issuer+"/protocol/openid-connect/token", km.TokenEndpoint)

	// Endpoints absent from discovery fall back to derived values.
	assert.Equal(t, issuer+"/protocol/openid-connect/token/introspect", km.IntrospectionEndpoint)
	assert.Equal(t, issuer+"/protocol/openid-connect/token/revoke", km.RevokeEndpoint)
	assert.Equal(t, issuer+"/clients-registrations/openid-connect", km.ClientRegistrationEndpoint)

	require.NotNil(t, km.Certificates)
	assert.Equal(t, "JWKS", km.Certificates.Type)
	assert.Equal(t, issuer+"/protocol/openid-connect/certs", km.Certificates.Value)

	require.Len(t, km.TokenValidation, 1)
	assert.Equal(t, "jwt", km.TokenValidation[0].Type)

	assert.Equal(t, "wso2am", km.AdditionalProperties["client_id"])
	assert.Equal(t, "wso2am-secret", km.AdditionalProperties["client_secret"])
}

func TestClient_BuildOIDCKeyManager_DiscoveryFailure(t *testing.T) {
	t.Parallel()

	idp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(idp.Close)

	client := newFakeGatewayClient(t, &fakeGateway{})

	_, err := client.BuildOIDCKeyManager(context.Background(),
		"Keycloak", idp.URL+"/realms/innover", "id", "secret")
	require.Error(t, err)
	assert.True(t, iderr.HasCode(err, iderr.CodeUnavailableDependency))
}
