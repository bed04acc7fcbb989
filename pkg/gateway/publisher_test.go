package gateway

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	iderr "github.com/innover-platform/identity-core/pkg/errors"
)

func profileAPI() APIDefinition {
	return APIDefinition{
		Name:       "Profile Service API",
		Context:    "/api/profile",
		Version:    "1.0.0",
		BackendURL: "http://profile:8000",
		Tags:       []string{"profile", "microservice"},
	}
}

func TestClient_CreateAndPublishAPI(t *testing.T) {
	t.Parallel()

	client := newFakeGatewayClient(t, &fakeGateway{})
	ctx := context.Background()

	apiID, err := client.CreateAPI(ctx, profileAPI())
	require.NoError(t, err)
	require.NotEmpty(t, apiID)

	apis, err := client.ListAPIs(ctx)
	require.NoError(t, err)
	require.Len(t, apis, 1)
	assert.Equal(t, LifecycleCreated, apis[0].LifeCycleStatus)

	require.NoError(t, client.PublishAPI(ctx, apiID))

	apis, err = client.ListAPIs(ctx)
	require.NoError(t, err)
	assert.Equal(t, LifecyclePublished, apis[0].LifeCycleStatus)
}

func TestClient_CreateAPI_MissingFields(t *testing.T) {
	t.Parallel()

	client := newFakeGatewayClient(t, &fakeGateway{})

	_, err := client.CreateAPI(context.Background(), APIDefinition{Name: "incomplete"})
	require.Error(t, err)
	assert.True(t, iderr.IsValidation(err))
}

func TestClient_CreateAPI_Duplicate(t *testing.T) {
	t.Parallel()

	client := newFakeGatewayClient(t, &fakeGateway{})
	ctx := context.Background()

	_, err := client.CreateAPI(ctx, profileAPI())
	require.NoError(t, err)

	_, err = client.CreateAPI(ctx, profileAPI())
	require.Error(t, err)
	assert.True(t, iderr.HasCode(err, iderr.CodeConflictAlreadyExists))
}

func TestClient_PublishAPI_Unknown(t *testing.T) {
	t.Parallel()

	client := newFakeGatewayClient(t, &fakeGateway{})

	err := client.PublishAPI(context.Background(), "id-missing")
	require.Error(t, err)
	assert.True(t, iderr.IsNotFound(err))
}

func TestClient_DeleteAPI(t *testing.T) {
	t.Parallel()

	client := newFakeGatewayClient(t, &fakeGateway{})
	ctx := context.Background()

	apiID, err := client.CreateAPI(ctx, profileAPI())
	require.NoError(t, err)

	require.NoError(t, client.DeleteAPI(ctx, apiID))

	apis, err := client.ListAPIs(ctx)
	require.NoError(t, err)
	assert.Empty(t, apis)

	err = client.DeleteAPI(ctx, apiID)
	require.Error(t, err)
	assert.True(t, iderr.IsNotFound(err))
}

func TestClient_EnsureAPI_CreatesAndPublishes(t *testing.T) {
	t.Parallel()

	client := newFakeGatewayClient(t, &fakeGateway{})
	ctx := context.Background()

	apiID, err := client.EnsureAPI(ctx, profileAPI())
	require.NoError(t, err)
	require.NotEmpty(t, apiID)

	apis, err := client.ListAPIs(ctx)
	require.NoError(t, err)
	require.Len(t, apis, 1)
	assert.Equal(t, LifecyclePublished, apis[0].LifeCycleStatus)
}

func TestClient_EnsureAPI_Idempotent(t *testing.T) {
	t.Parallel()

	client := newFakeGatewayClient(t, &fakeGateway{})
	ctx := context.Background()

	first, err := client.EnsureAPI(ctx, profileAPI())
	require.NoError(t, err)

	second, err := client.EnsureAPI(ctx, profileAPI())
	require.NoError(t, err)

	assert.Equal(t, first, second, "ensure must reuse the existing API")

	apis, err := client.ListAPIs(ctx)
	require.NoError(t, err)
	assert.Len(t, apis, 1)
}

func TestClient_EnsureAPI_PublishesExistingCreated(t *testing.T) {
	t.Parallel()

	client := newFakeGatewayClient(t, &fakeGateway{})
	ctx := context.Background()

	apiID, err := client.CreateAPI(ctx, profileAPI())
	require.NoError(t, err)

	ensured, err := client.EnsureAPI(ctx, profileAPI())
	require.NoError(t, err)
	assert.Equal(t, apiID, ensured)

	apis, err := client.ListAPIs(ctx)
	require.NoError(t, err)
	assert.Equal(t, LifecyclePublished, apis[0].LifeCycleStatus)
}

func TestNewAPIPayload_Defaults(t *testing.T) {
	t.Parallel()

	payload := newAPIPayload(APIDefinition{
		Name:       "Ledger Service API",
		Context:    "/api/ledger",
		BackendURL: "http://ledger:8000",
	})

	assert.Equal(t, "1.0.0", payload["version"])
	assert.Equal(t, "admin", payload["provider"])
	assert.Equal(t, LifecycleCreated, payload["lifeCycleStatus"])
	assert.Equal(t, "HTTP", payload["type"])

	endpointConfig := payload["endpointConfig"].(map[string]any)
	prod := endpointConfig["production_endpoints"].(map[string]any)
	sandbox := endpointConfig["sandbox_endpoints"].(map[string]any)
	assert.Equal(t, "http://ledger:8000", prod["url"])
	assert.Equal(t, "http://ledger:8000", sandbox["url"], "sandbox defaults to the backend URL")

	ops := payload["operations"].([]APIOperation)
	require.Len(t, ops, 5)
	for _, op := range ops {
		assert.Equal(t, "/*", op.Target)
		assert.Equal(t, "Unlimited", op.ThrottlingPolicy)
	}
}
